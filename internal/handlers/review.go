package handlers

import (
	"context"
	"net/http"

	"hubdeck/internal/badge"
	"hubdeck/internal/constants"
	"hubdeck/internal/logger"
	"hubdeck/internal/marketplace"
	"hubdeck/internal/seen"
	"hubdeck/internal/web"
)

// ReviewMarket is the part of the marketplace client the review pages use.
type ReviewMarket interface {
	ListUsers(ctx context.Context) ([]marketplace.User, error)
	ListSellers(ctx context.Context) ([]marketplace.Seller, error)
	ListProducts(ctx context.Context) ([]marketplace.Product, error)
	ListNotifications(ctx context.Context) ([]marketplace.Notification, error)
	ListTickets(ctx context.Context) ([]marketplace.Ticket, error)

	MarkUserSeen(ctx context.Context, id string) (marketplace.Ack, error)
	MarkSellerSeen(ctx context.Context, id string) (marketplace.Ack, error)
	MarkProductSeen(ctx context.Context, id string) (marketplace.Ack, error)
	MarkNotificationSeen(ctx context.Context, id string) (marketplace.Ack, error)
}

// reviewRow is one record as a review page shows it.
type reviewRow struct {
	ID        string `json:"id"`
	Highlight bool   `json:"highlight"`
	Record    any    `json:"record"`
}

type reviewPage struct {
	Kind   string      `json:"kind"`
	Items  []reviewRow `json:"items"`
	Total  int         `json:"total"`
	Unseen int         `json:"unseen"`
}

type reviewKind struct {
	entity string
	load   func(ctx context.Context, r *http.Request) ([]reviewRow, error)
	mark   seen.MarkFunc
}

// ReviewHandler backs the users, sellers, products and notifications pages.
// Reading a page never marks anything; marking is a separate POST.
type ReviewHandler struct {
	market    ReviewMarket
	marker    *seen.Marker
	refresher *badge.Refresher
	kinds     map[string]reviewKind
}

func NewReviewHandler(market ReviewMarket, marker *seen.Marker, refresher *badge.Refresher) *ReviewHandler {
	h := &ReviewHandler{market: market, marker: marker, refresher: refresher}
	h.kinds = map[string]reviewKind{
		"users": {
			entity: constants.EntityUser,
			load: func(ctx context.Context, _ *http.Request) ([]reviewRow, error) {
				users, err := market.ListUsers(ctx)
				return rows(users, seen.UserID, seen.UserPage), err
			},
			mark: seen.Discard(market.MarkUserSeen),
		},
		"sellers": {
			entity: constants.EntitySeller,
			load: func(ctx context.Context, _ *http.Request) ([]reviewRow, error) {
				sellers, err := market.ListSellers(ctx)
				return rows(sellers, seen.SellerID, seen.SellerPage), err
			},
			mark: seen.Discard(market.MarkSellerSeen),
		},
		"products": {
			entity: constants.EntityProduct,
			load: func(ctx context.Context, r *http.Request) ([]reviewRow, error) {
				products, err := market.ListProducts(ctx)
				if err != nil {
					return nil, err
				}
				status := constants.ProductApproved
				if r.URL.Query().Get("status") == constants.ProductPending {
					status = constants.ProductPending
				}
				products = seen.Filter(products, func(p marketplace.Product) seen.State {
					if p.Status == status {
						return seen.Unseen
					}
					return seen.Seen
				})
				return rows(products, seen.ProductID, seen.ProductPage), nil
			},
			mark: seen.Discard(market.MarkProductSeen),
		},
		"notifications": {
			entity: constants.EntityNotification,
			load: func(ctx context.Context, _ *http.Request) ([]reviewRow, error) {
				notes, err := market.ListNotifications(ctx)
				return rows(notes, seen.NotificationID, seen.Notification), err
			},
			mark: seen.Discard(market.MarkNotificationSeen),
		},
	}
	return h
}

func rows[T any](items []T, id func(T) marketplace.ID, adapt func(T) seen.State) []reviewRow {
	out := make([]reviewRow, len(items))
	for i, it := range items {
		out[i] = reviewRow{ID: id(it).String(), Highlight: adapt(it) == seen.Unseen, Record: it}
	}
	return out
}

func (h *ReviewHandler) kind(w http.ResponseWriter, r *http.Request) (string, reviewKind, bool) {
	name := r.PathValue("kind")
	k, ok := h.kinds[name]
	if !ok {
		web.FailErr(w, r, web.ErrUnknownEntity, name)
	}
	return name, k, ok
}

// List returns one review page with its highlight flags.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	name, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	items, err := k.load(r.Context(), r)
	if err != nil {
		logger.Market.Warn().Err(err).Str("kind", name).Msg("review page fetch failed")
		web.FailErr(w, r, web.ErrMarketUnavailable)
		return
	}
	page := reviewPage{Kind: name, Items: items, Total: len(items)}
	for _, it := range items {
		if it.Highlight {
			page.Unseen++
		}
	}
	web.OK(w, r, page)
}

type markSeenRequest struct {
	IDs []string `json:"ids"`
}

// MarkSeen marks the given ids, or every record currently on the page
// when none are given.
func (h *ReviewHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	name, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	var req markSeenRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}

	ids := dedupe(req.IDs)
	if len(req.IDs) == 0 {
		items, err := k.load(r.Context(), r)
		if err != nil {
			logger.Market.Warn().Err(err).Str("kind", name).Msg("review page fetch failed")
			web.FailErr(w, r, web.ErrMarketUnavailable)
			return
		}
		ids = make([]string, 0, len(items))
		for _, it := range items {
			if it.ID != "" {
				ids = append(ids, it.ID)
			}
		}
	}

	ctx := seen.WithActor(r.Context(), actorOf(r))
	web.OK(w, r, h.marker.MarkAll(ctx, k.entity, ids, k.mark))
}

type ticketUnread struct {
	Unread                   badge.UnreadMap `json:"unread"`
	TotalUnreadMessages      int             `json:"total_unread_messages"`
	TotalUnreadConversations int             `json:"total_unread_conversations"`
	Stale                    bool            `json:"stale,omitempty"`
}

// TicketsUnread returns the per-ticket unread map. With refresh=1 it is
// recomputed from a fresh ticket list first.
func (h *ReviewHandler) TicketsUnread(w http.ResponseWriter, r *http.Request) {
	store := h.refresher.Store()
	if web.QueryBool(r, "refresh") {
		tickets, err := h.market.ListTickets(r.Context())
		if err != nil {
			logger.Market.Warn().Err(err).Msg("ticket list fetch failed")
			web.FailErr(w, r, web.ErrMarketUnavailable)
			return
		}
		m, committed := h.refresher.Tickets().Run(r.Context(), tickets, store.SetTicketUnread)
		if !committed {
			// a newer run owns the store; report it rather than our result
			resp := unreadResponse(store.TicketUnread())
			resp.Stale = true
			web.OK(w, r, resp)
			return
		}
		web.OK(w, r, unreadResponse(m))
		return
	}
	web.OK(w, r, unreadResponse(store.TicketUnread()))
}

func unreadResponse(m badge.UnreadMap) ticketUnread {
	if m == nil {
		m = badge.UnreadMap{}
	}
	return ticketUnread{
		Unread:                   m,
		TotalUnreadMessages:      m.Messages(),
		TotalUnreadConversations: m.Conversations(),
	}
}

func dedupe(ids []string) []string {
	seenIDs := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seenIDs[id] {
			continue
		}
		seenIDs[id] = true
		out = append(out, id)
	}
	return out
}
