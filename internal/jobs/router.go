package jobs

import (
	"context"
	"log/slog"

	"wanderplan/internal/featureflags"
	"wanderplan/internal/middleware"
	"wanderplan/internal/service"
)

// Router sends renames to the queue when the queued_cascade flag is on and a
// queue is configured, and runs them inline otherwise. A failed enqueue
// falls back to the inline cascade.
type Router struct {
	queue  service.CascadeDispatcher
	inline service.CascadeDispatcher
	flags  service.FlagChecker
}

func NewRouter(queue, inline service.CascadeDispatcher, flags service.FlagChecker) *Router {
	return &Router{queue: queue, inline: inline, flags: flags}
}

func (r *Router) DispatchRename(ctx context.Context, userID uint, username string) error {
	if r.queue != nil && (r.flags == nil || r.flags.Enabled(featureflags.QueuedCascade, userID)) {
		err := r.queue.DispatchRename(ctx, userID, username)
		if err == nil {
			return nil
		}
		middleware.Logger.WarnContext(ctx, "cascade enqueue failed, running inline",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
	return r.inline.DispatchRename(ctx, userID, username)
}
