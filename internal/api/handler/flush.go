package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/api/metrics"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
)

const (
	triggerRequest = "request"
	unsavedWarning = "changes are kept for this session but could not be saved; they will be retried by autosave"
)

// flush persists the named collections after a mutation. A failure is not
// an HTTP error: the mutation stands and the response says it is unsaved.
func flush(ctx context.Context, sess *session.Session, log zerolog.Logger, collections ...ports.Collection) ports.FlushResult {
	start := time.Now()
	err := sess.Flush(ctx, collections...)
	metrics.FlushDuration.WithLabelValues(triggerRequest).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FlushesTotal.WithLabelValues(triggerRequest, "error").Inc()
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("flush after mutation failed")
		return ports.FlushResult{Persisted: false, Warning: unsavedWarning}
	}
	metrics.FlushesTotal.WithLabelValues(triggerRequest, "ok").Inc()
	return ports.FlushResult{Persisted: true}
}
