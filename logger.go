package molview

import (
	"log/slog"

	"github.com/gogpu/molview/internal/logging"
)

// SetLogger configures the logger for molview and all its sub-packages.
// By default molview produces no log output.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. Pass nil to restore the default silent behavior.
//
// Log levels used by molview:
//   - [slog.LevelDebug]: internal diagnostics (cache churn, chunk sizes)
//   - [slog.LevelInfo]: lifecycle events (structure loaded, surface created)
//   - [slog.LevelWarn]: tolerated input problems and degraded rendering
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}
