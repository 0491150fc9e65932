// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// NotionRequests counts outbound Notion API calls.
	NotionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notionboard_notion_requests_total",
			Help: "Total number of Notion API calls",
		},
		[]string{"operation", "outcome"},
	)
	// NotionLatency observes Notion API call durations.
	NotionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notionboard_notion_request_duration_seconds",
			Help:    "Notion API call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	// LLMRequests counts chat completion calls.
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notionboard_llm_requests_total",
			Help: "Total number of chat completion calls",
		},
		[]string{"outcome"},
	)
	// HTTPRequests counts served HTTP requests.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notionboard_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
	// ChatCommands counts interpreted chat commands by intent.
	ChatCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notionboard_chat_commands_total",
			Help: "Total number of chat commands by intent",
		},
		[]string{"intent"},
	)
)

func init() {
	prometheus.MustRegister(NotionRequests, NotionLatency, LLMRequests, HTTPRequests, ChatCommands)
}

// ObserveNotion records the outcome and latency of one Notion call.
func ObserveNotion(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	NotionRequests.WithLabelValues(operation, outcome).Inc()
	NotionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
