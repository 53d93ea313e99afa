package meter

import (
	"log/slog"

	"github.com/nivara/modelbridge"
)

// LogMeter logs completion events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ modelbridge.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnRoute(e modelbridge.RouteEvent) {
	m.Logger.Info("route",
		"request_id", e.RequestID,
		"provider", e.Provider.String(),
		"model", e.Model,
		"path", e.Path,
		"attempt", e.Attempt,
		"estimated_tokens", e.EstimatedIn,
	)
}

func (m *LogMeter) OnResult(e modelbridge.ResultEvent) {
	if e.Success {
		m.Logger.Info("result",
			"request_id", e.RequestID,
			"provider", e.Provider.String(),
			"model", e.Model,
			"path", e.Path,
			"duration_ms", e.Duration.Milliseconds(),
			"prompt_tokens", e.Usage.PromptTokens,
			"completion_tokens", e.Usage.CompletionTokens,
		)
	} else {
		m.Logger.Warn("result_error",
			"request_id", e.RequestID,
			"provider", e.Provider.String(),
			"model", e.Model,
			"path", e.Path,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}
