package providers

import (
	"context"
	"log/slog"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
)

// logWithFeed emits a log entry if logger is non-nil and always includes the feed url.
func logWithFeed(ctx context.Context, logger *slog.Logger, level slog.Level, url string, msg string, args ...any) {
	if logger == nil {
		return
	}
	args = append(args, slog.String(logging.FieldURL, url))
	logger.Log(ctx, level, msg, args...)
}
