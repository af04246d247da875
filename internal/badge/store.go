// Package badge owns the sidebar badge counters and the refresh cycle that
// recomputes them from the marketplace.
package badge

import (
	"slices"
	"sync"
	"time"
)

type Key string

const (
	KeyUsers               Key = "users"
	KeySellers             Key = "sellers"
	KeyProducts            Key = "products"
	KeyPendingProducts     Key = "pending_products"
	KeyOrders              Key = "orders"
	KeyPayments            Key = "payments"
	KeyUnreadConversations Key = "unread_conversations"
)

// Keys lists every counter in sidebar order.
var Keys = []Key{
	KeyUsers,
	KeySellers,
	KeyProducts,
	KeyPendingProducts,
	KeyOrders,
	KeyPayments,
	KeyUnreadConversations,
}

type Counts struct {
	Users               int `json:"users"`
	Sellers             int `json:"sellers"`
	Products            int `json:"products"`
	PendingProducts     int `json:"pending_products"`
	Orders              int `json:"orders"`
	Payments            int `json:"payments"`
	UnreadConversations int `json:"unread_conversations"`
}

func (c Counts) Get(k Key) int {
	if p := c.field(k); p != nil {
		return *p
	}
	return 0
}

func (c *Counts) field(k Key) *int {
	switch k {
	case KeyUsers:
		return &c.Users
	case KeySellers:
		return &c.Sellers
	case KeyProducts:
		return &c.Products
	case KeyPendingProducts:
		return &c.PendingProducts
	case KeyOrders:
		return &c.Orders
	case KeyPayments:
		return &c.Payments
	case KeyUnreadConversations:
		return &c.UnreadConversations
	}
	return nil
}

// Snapshot is a read-only copy of the store.
type Snapshot struct {
	Counts    Counts    `json:"counts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the single owner of the badge counters. Every key has one
// mutation path; readers only ever see copies.
type Store struct {
	mu        sync.RWMutex
	counts    Counts
	unread    UnreadMap
	updatedAt time.Time

	// pubMu is held from mutation through publish so subscribers see
	// snapshots in the order they were taken.
	pubMu sync.Mutex
	subMu sync.RWMutex
	subs  []func(Snapshot)
}

func NewStore() *Store {
	return &Store{unread: UnreadMap{}}
}

// OnChange registers fn to receive a snapshot after every change.
// fn runs on the mutating goroutine, must not block and must not mutate
// the store.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

// Set updates one counter; unknown keys and unchanged values are ignored.
func (s *Store) Set(k Key, v int) {
	if v < 0 {
		v = 0
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	p := s.counts.field(k)
	if p == nil || *p == v {
		s.mu.Unlock()
		return
	}
	*p = v
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// SetTicketUnread stores the per-ticket map and its derived conversation count together.
func (s *Store) SetTicketUnread(m UnreadMap) {
	cp := m.Clone()
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	s.unread = cp
	changed := s.counts.UnreadConversations != cp.Conversations()
	s.counts.UnreadConversations = cp.Conversations()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if changed {
		s.publish(snap)
	}
}

// Reset zeroes every counter, as on a fresh mount of the admin shell.
func (s *Store) Reset() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	s.counts = Counts{}
	s.unread = UnreadMap{}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Counts: s.counts, UpdatedAt: s.updatedAt}
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts
}

// TicketUnread returns a copy of the latest per-ticket unread map.
func (s *Store) TicketUnread() UnreadMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread.Clone()
}

func (s *Store) snapshotLocked() Snapshot {
	s.updatedAt = time.Now()
	return Snapshot{Counts: s.counts, UpdatedAt: s.updatedAt}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.RLock()
	subs := slices.Clone(s.subs)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}
