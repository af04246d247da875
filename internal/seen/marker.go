package seen

import (
	"context"
	"fmt"
	"sync"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/marketplace"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 8

// MarkFunc flips one record to seen on the remote side.
type MarkFunc func(ctx context.Context, id string) error

// Discard adapts a marketplace mark call whose acknowledgement nobody reads.
func Discard(f func(context.Context, string) (marketplace.Ack, error)) MarkFunc {
	return func(ctx context.Context, id string) error {
		_, err := f(ctx, id)
		return err
	}
}

type MarkResult struct {
	Entity    string   `json:"entity"`
	Total     int      `json:"total"`
	Marked    int      `json:"marked"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// AuditWriter is satisfied by *database.AuditLogRepo.
type AuditWriter interface {
	Create(log *database.AuditLog) error
}

// Marker issues mark-seen calls for a batch of ids with bounded concurrency.
// Every id is attempted once; failures are logged and counted, never retried.
type Marker struct {
	limit int
	audit AuditWriter
}

// NewMarker returns a Marker; audit may be nil.
func NewMarker(limit int, audit AuditWriter) *Marker {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Marker{limit: limit, audit: audit}
}

func (m *Marker) MarkAll(ctx context.Context, entity string, ids []string, mark MarkFunc) MarkResult {
	res := MarkResult{Entity: entity, Total: len(ids)}
	if len(ids) == 0 {
		return res
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	var g errgroup.Group
	g.SetLimit(m.limit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := mark(ctx, id); err != nil {
				logger.Seen.Warn().Err(err).Str("entity", entity).Str("id", id).Msg("mark seen failed")
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Failed = len(failed)
	res.Marked = res.Total - res.Failed
	res.FailedIDs = failed

	logger.Seen.Info().
		Str("entity", entity).
		Int("total", res.Total).
		Int("failed", res.Failed).
		Msg("mark seen batch done")
	m.record(ctx, res)
	return res
}

func (m *Marker) record(ctx context.Context, res MarkResult) {
	if m.audit == nil {
		return
	}
	result := "success"
	switch {
	case res.Failed == res.Total:
		result = "failed"
	case res.Failed > 0:
		result = "partial"
	}
	actor := ActorFrom(ctx)
	_ = m.audit.Create(&database.AuditLog{
		UserID:   actor.UserID,
		Username: actor.Username,
		IP:       actor.IP,
		Action:   constants.ActionSeenMark,
		Detail:   fmt.Sprintf("entity=%s total=%d failed=%d", res.Entity, res.Total, res.Failed),
		Result:   result,
	})
}

// Actor identifies who triggered a batch, for the audit trail.
type Actor struct {
	UserID   uint
	Username string
	IP       string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom falls back to the "system" actor used by background refreshes.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{Username: "system"}
}
