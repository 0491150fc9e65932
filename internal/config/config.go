// Package config loads service configuration from defaults, an optional
// YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// NotionConfig holds Notion integration and OAuth settings.
type NotionConfig struct {
	APIKey       string `koanf:"api_key"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURI  string `koanf:"redirect_uri"`
	APIVersion   string `koanf:"api_version"`
}

// DeepSeekConfig holds chat-completion settings.
type DeepSeekConfig struct {
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
	// RatePerMinute bounds suggestion requests per session.
	RatePerMinute int `koanf:"rate_per_minute"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr   string `koanf:"addr"`
	Static string `koanf:"static"`
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are honored. Empty trusts none.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// StoreConfig points at the SQLite session store.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// AppConfig holds deployment wide settings.
type AppConfig struct {
	Env     string `koanf:"env"`
	BaseURL string `koanf:"base_url"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SiteConfig feeds robots.txt and sitemap.xml.
type SiteConfig struct {
	URL string `koanf:"url"`
}

// Config is the complete service configuration.
type Config struct {
	Notion   NotionConfig   `koanf:"notion"`
	DeepSeek DeepSeekConfig `koanf:"deepseek"`
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Site     SiteConfig     `koanf:"site"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Notion: NotionConfig{
			RedirectURI: "http://localhost:3000/api/notion/callback",
			APIVersion:  "2022-06-28",
		},
		DeepSeek: DeepSeekConfig{
			BaseURL:       "https://api.deepseek.com/v1",
			Model:         "deepseek-chat",
			MaxTokens:     2048,
			Temperature:   0.7,
			RatePerMinute: 20,
		},
		Server: ServerConfig{
			Addr:   ":8080",
			Static: "web/dist",
		},
		Store: StoreConfig{
			Path: "data/notionboard.db",
		},
		App: AppConfig{
			Env:     "development",
			BaseURL: "http://localhost:3000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Site: SiteConfig{
			URL: "http://localhost:3000",
		},
	}
}

// Load reads .env (when present), the YAML file at path (when non-empty
// and present) and then environment variables, in increasing precedence.
//
// Environment variables map on their first underscore:
//
//	NOTION_CLIENT_ID   -> notion.client_id
//	DEEPSEEK_MAX_TOKENS -> deepseek.max_tokens
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// envKey splits on the first underscore only: section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.DeepSeek.MaxTokens <= 0 {
		return fmt.Errorf("deepseek max tokens must be positive, got %d", c.DeepSeek.MaxTokens)
	}
	if c.DeepSeek.Temperature < 0 || c.DeepSeek.Temperature > 2 {
		return fmt.Errorf("deepseek temperature must be within [0, 2], got %v", c.DeepSeek.Temperature)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	if c.Notion.APIVersion == "" {
		return fmt.Errorf("notion api version must not be empty")
	}
	return nil
}

// Production reports whether cookies should be marked Secure.
func (c Config) Production() bool {
	return c.App.Env == "production"
}

// NotionConfigured reports whether either an integration key or OAuth
// client credentials are present.
func (c Config) NotionConfigured() bool {
	return c.Notion.APIKey != "" || (c.Notion.ClientID != "" && c.Notion.ClientSecret != "")
}

// DeepSeekConfigured reports whether suggestion requests can be served.
func (c Config) DeepSeekConfigured() bool {
	return c.DeepSeek.APIKey != ""
}
