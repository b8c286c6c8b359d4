package bridge

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// Fallback tries Primary and, on any failure, parses again with Secondary.
// Primary failures are logged and never returned.
type Fallback struct {
	Primary   core.Backend
	Secondary core.Backend
	Logger    *slog.Logger
}

// NewFallback creates a failover backend.
func NewFallback(primary, secondary core.Backend, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{Primary: primary, Secondary: secondary, Logger: logger}
}

// Parse implements core.Backend.
func (f *Fallback) Parse(ctx context.Context, src core.Source, opts core.ParseOptions) (*core.Workbook, error) {
	wb, err := f.Primary.Parse(ctx, src, opts)
	if err == nil {
		return wb, nil
	}

	f.logger().Warn("external parser failed, falling back to in-process parser",
		slog.String("file", src.Name),
		slog.String("error", err.Error()),
	)
	return f.Secondary.Parse(ctx, src, opts)
}

func (f *Fallback) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}
