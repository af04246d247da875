package badge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/marketplace"
	"hubdeck/internal/seen"

	"github.com/google/uuid"
)

// Refresh triggers.
const (
	TriggerMount = "mount"
	TriggerPoll  = "poll"
)

var ErrBusy = errors.New("badge refresh already running")

// Market is the subset of the marketplace API a refresh needs.
type Market interface {
	ListUsers(ctx context.Context) ([]marketplace.User, error)
	ListSellers(ctx context.Context) ([]marketplace.Seller, error)
	ListProducts(ctx context.Context) ([]marketplace.Product, error)
	ListOrders(ctx context.Context) ([]marketplace.Order, error)
	ListPayments(ctx context.Context) ([]marketplace.Payment, error)
	ListTickets(ctx context.Context) ([]marketplace.Ticket, error)
	MessageLister

	MarkUserSeen(ctx context.Context, id string) (marketplace.Ack, error)
	MarkSellerSeen(ctx context.Context, id string) (marketplace.Ack, error)
	MarkProductSeen(ctx context.Context, id string) (marketplace.Ack, error)
}

// Alerter is told about counters that grew between two refreshes.
type Alerter interface {
	BadgeIncrease(ctx context.Context, prev, next Counts)
}

// RunRecorder persists refresh history; *database.RefreshRunRepo satisfies it.
type RunRecorder interface {
	Create(run *database.RefreshRun) error
}

type Options struct {
	MarkSeen          bool
	MarkConcurrency   int
	TicketConcurrency int
}

type RefreshReport struct {
	RunID     string            `json:"run_id"`
	Trigger   string            `json:"trigger"`
	Counts    Counts            `json:"counts"`
	Errors    map[string]string `json:"errors,omitempty"`
	Marks     []seen.MarkResult `json:"marks,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
}

// Refresher runs the mount cycle: every source is fetched independently,
// filtered into its counter, and optionally marked seen.
type Refresher struct {
	market  Market
	store   *Store
	marker  *seen.Marker
	tickets *TicketAggregator
	opts    Options

	runs    RunRecorder
	audit   seen.AuditWriter
	alerter Alerter

	mu sync.Mutex
}

func NewRefresher(market Market, store *Store, opts Options) *Refresher {
	return &Refresher{
		market:  market,
		store:   store,
		marker:  seen.NewMarker(opts.MarkConcurrency, nil),
		tickets: NewTicketAggregator(market, opts.TicketConcurrency),
		opts:    opts,
	}
}

// WithHistory records each run and the mark-seen batches it issues.
func (r *Refresher) WithHistory(runs RunRecorder, audit seen.AuditWriter) *Refresher {
	r.runs = runs
	r.audit = audit
	r.marker = seen.NewMarker(r.opts.MarkConcurrency, audit)
	return r
}

func (r *Refresher) WithAlerter(a Alerter) *Refresher {
	r.alerter = a
	return r
}

func (r *Refresher) Store() *Store { return r.store }

func (r *Refresher) Tickets() *TicketAggregator { return r.tickets }

// Refresh recomputes every counter. Source failures are reported, never
// returned; the only error is ErrBusy when another refresh is in flight.
// A mount starts from zero; a poll keeps last known values for failed sources.
func (r *Refresher) Refresh(ctx context.Context, trigger string) (RefreshReport, error) {
	if !r.mu.TryLock() {
		return RefreshReport{}, ErrBusy
	}
	defer r.mu.Unlock()

	rep := RefreshReport{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	prev := r.store.Counts()
	if trigger != TriggerPoll {
		r.store.Reset()
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	fail := func(source string, err error) {
		logger.Badge.Warn().Err(err).Str("source", source).Msg("badge source failed")
		mu.Lock()
		if rep.Errors == nil {
			rep.Errors = map[string]string{}
		}
		rep.Errors[source] = err.Error()
		mu.Unlock()
	}
	marked := func(res seen.MarkResult) {
		mu.Lock()
		rep.Marks = append(rep.Marks, res)
		mu.Unlock()
	}

	sources := map[string]func(context.Context) error{
		"users": func(ctx context.Context) error {
			users, err := r.market.ListUsers(ctx)
			if err != nil {
				return err
			}
			r.store.Set(KeyUsers, seen.Count(users, seen.UserSidebar))
			if r.opts.MarkSeen {
				marked(r.marker.MarkAll(ctx, constants.EntityUser, seen.IDs(users, seen.UserID), seen.Discard(r.market.MarkUserSeen)))
			}
			return nil
		},
		"sellers": func(ctx context.Context) error {
			sellers, err := r.market.ListSellers(ctx)
			if err != nil {
				return err
			}
			r.store.Set(KeySellers, seen.Count(sellers, seen.SellerSidebar))
			if r.opts.MarkSeen {
				marked(r.marker.MarkAll(ctx, constants.EntitySeller, seen.IDs(sellers, seen.SellerID), seen.Discard(r.market.MarkSellerSeen)))
			}
			return nil
		},
		"products": func(ctx context.Context) error {
			products, err := r.market.ListProducts(ctx)
			if err != nil {
				return err
			}
			r.store.Set(KeyPendingProducts, seen.Count(products, seen.ProductPending))
			r.store.Set(KeyProducts, seen.Count(products, seen.ProductGeneral))
			if r.opts.MarkSeen {
				marked(r.marker.MarkAll(ctx, constants.EntityProduct, seen.IDs(products, seen.ProductID), seen.Discard(r.market.MarkProductSeen)))
			}
			return nil
		},
		"orders": func(ctx context.Context) error {
			orders, err := r.market.ListOrders(ctx)
			if err != nil {
				return err
			}
			r.store.Set(KeyOrders, seen.Count(orders, seen.Order))
			return nil
		},
		"payments": func(ctx context.Context) error {
			payments, err := r.market.ListPayments(ctx)
			if err != nil {
				return err
			}
			r.store.Set(KeyPayments, seen.Count(payments, seen.Payment))
			return nil
		},
		"tickets": func(ctx context.Context) error {
			tickets, err := r.market.ListTickets(ctx)
			if err != nil {
				return err
			}
			r.tickets.Run(ctx, tickets, r.store.SetTicketUnread)
			return nil
		},
	}

	for name, run := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					fail(name, fmt.Errorf("panic: %v", p))
				}
			}()
			if err := run(ctx); err != nil {
				fail(name, err)
			}
		}()
	}
	wg.Wait()

	rep.Counts = r.store.Counts()
	rep.Duration = time.Since(rep.StartedAt)

	logger.Badge.Info().
		Str("run_id", rep.RunID).
		Str("trigger", trigger).
		Int("errors", len(rep.Errors)).
		Dur("elapsed", rep.Duration).
		Msg("badge refresh done")

	r.record(ctx, rep)
	if r.alerter != nil {
		r.alerter.BadgeIncrease(ctx, prev, rep.Counts)
	}
	return rep, nil
}

func (r *Refresher) record(ctx context.Context, rep RefreshReport) {
	if r.runs != nil {
		run := &database.RefreshRun{
			RunID:               rep.RunID,
			Trigger:             rep.Trigger,
			Users:               rep.Counts.Users,
			Sellers:             rep.Counts.Sellers,
			Products:            rep.Counts.Products,
			PendingProducts:     rep.Counts.PendingProducts,
			Orders:              rep.Counts.Orders,
			Payments:            rep.Counts.Payments,
			UnreadConversations: rep.Counts.UnreadConversations,
			DurationMs:          rep.Duration.Milliseconds(),
		}
		for _, m := range rep.Marks {
			run.Marked += m.Marked
			run.MarkFailed += m.Failed
		}
		if len(rep.Errors) > 0 {
			if b, err := json.Marshal(rep.Errors); err == nil {
				run.Errors = string(b)
			}
		}
		if err := r.runs.Create(run); err != nil {
			logger.Badge.Error().Err(err).Str("run_id", rep.RunID).Msg("failed to record refresh run")
		}
	}
	if r.audit != nil && rep.Trigger != TriggerPoll {
		actor := seen.ActorFrom(ctx)
		result := "success"
		if len(rep.Errors) > 0 {
			result = "partial"
		}
		_ = r.audit.Create(&database.AuditLog{
			UserID:   actor.UserID,
			Username: actor.Username,
			IP:       actor.IP,
			Action:   constants.ActionBadgeRefresh,
			Detail:   fmt.Sprintf("run_id=%s trigger=%s errors=%d", rep.RunID, rep.Trigger, len(rep.Errors)),
			Result:   result,
		})
	}
}
