package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notionboard/internal/command"
	"notionboard/internal/llm"
	"notionboard/internal/notion"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Run one chat command against the integration's first database",
	Long: `Run one chat command against the first database shared with the
configured integration key.

Examples:
  notionboard chat "Show all tasks"
  notionboard chat "Move task 2 to done"
  notionboard chat "Generate sample tasks"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := llm.New(cfg.DeepSeek, logger)
	if err != nil {
		return err
	}

	in := command.New(notion.NewClient(cfg.Notion, nil).ForToken(""), svc, logger)
	ctx := cmd.Context()
	st, err := in.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), in.Handle(ctx, st, strings.Join(args, " ")))
	return nil
}
