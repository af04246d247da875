package seen

import "hubdeck/internal/marketplace"

// Filter returns the unseen records in input order. It never returns nil.
func Filter[T any](items []T, adapt func(T) State) []T {
	out := make([]T, 0)
	for _, it := range items {
		if adapt(it) == Unseen {
			out = append(out, it)
		}
	}
	return out
}

// Count is len(Filter(items, adapt)) without the allocation.
func Count[T any](items []T, adapt func(T) State) int {
	n := 0
	for _, it := range items {
		if adapt(it) == Unseen {
			n++
		}
	}
	return n
}

// IDs extracts non-empty record ids in input order.
func IDs[T any](items []T, id func(T) marketplace.ID) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if v := id(it); v != "" {
			out = append(out, v.String())
		}
	}
	return out
}

func UserID(u marketplace.User) marketplace.ID { return u.ID }
func SellerID(s marketplace.Seller) marketplace.ID { return s.SellerID }
func ProductID(p marketplace.Product) marketplace.ID { return p.ID }
func NotificationID(n marketplace.Notification) marketplace.ID { return n.ID }
