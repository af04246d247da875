package badge

import (
	"context"
	"sync"
	"sync/atomic"

	"hubdeck/internal/logger"
	"hubdeck/internal/marketplace"
	"hubdeck/internal/seen"

	"golang.org/x/sync/errgroup"
)

const DefaultTicketConcurrency = 4

// UnreadMap maps ticket id to its number of admin-unseen messages.
// Tickets with none are absent, never stored as zero.
type UnreadMap map[string]int

// Conversations is the number of tickets with at least one unseen message.
func (m UnreadMap) Conversations() int { return len(m) }

// Messages is the total number of unseen messages.
func (m UnreadMap) Messages() int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func (m UnreadMap) Clone() UnreadMap {
	out := make(UnreadMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type MessageLister interface {
	ListTicketMessages(ctx context.Context, ticketID string) ([]marketplace.TicketMessage, error)
}

// TicketAggregator fans out one message fetch per ticket with a
// concurrency cap. Runs are versioned: a run only commits if no newer run
// started while it was in flight.
type TicketAggregator struct {
	src   MessageLister
	limit int

	gen      atomic.Uint64
	commitMu sync.Mutex
}

func NewTicketAggregator(src MessageLister, limit int) *TicketAggregator {
	if limit <= 0 {
		limit = DefaultTicketConcurrency
	}
	return &TicketAggregator{src: src, limit: limit}
}

// Aggregate computes the unread map for tickets. A ticket whose messages
// cannot be fetched is logged and contributes nothing.
func (a *TicketAggregator) Aggregate(ctx context.Context, tickets []marketplace.Ticket) UnreadMap {
	var mu sync.Mutex
	out := UnreadMap{}

	var g errgroup.Group
	g.SetLimit(a.limit)
	for _, t := range tickets {
		id := t.TicketID.String()
		if id == "" {
			logger.Badge.Warn().Msg("ticket without id skipped")
			continue
		}
		g.Go(func() error {
			msgs, err := a.src.ListTicketMessages(ctx, id)
			if err != nil {
				logger.Badge.Warn().Err(err).Str("ticket_id", id).Msg("fetch ticket messages failed")
				return nil
			}
			if n := seen.Count(msgs, seen.TicketMessage); n > 0 {
				mu.Lock()
				out[id] = n
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Run aggregates and, if still current, passes the result to commit.
// It reports whether the result was committed; superseded results are dropped.
func (a *TicketAggregator) Run(ctx context.Context, tickets []marketplace.Ticket, commit func(UnreadMap)) (UnreadMap, bool) {
	g := a.gen.Add(1)
	m := a.Aggregate(ctx, tickets)

	a.commitMu.Lock()
	defer a.commitMu.Unlock()
	if a.gen.Load() != g {
		logger.Badge.Debug().Uint64("generation", g).Msg("stale ticket aggregation discarded")
		return m, false
	}
	if commit != nil {
		commit(m)
	}
	return m, true
}

// Generation is the number of runs started so far.
func (a *TicketAggregator) Generation() uint64 {
	return a.gen.Load()
}
