package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/riskscale/pkg/utils/logging"
)

// Close closes the closer and logs a failure instead of returning it.
// A nil closer is ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("failed to close", slog.Any("error", err))
	}
}
