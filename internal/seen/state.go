// Package seen translates the marketplace's per-entity "seen" wire values
// into a single State and marks records seen on the remote side.
package seen

import (
	"bytes"
	"encoding/json"

	"hubdeck/internal/constants"
	"hubdeck/internal/marketplace"
)

type State int

const (
	Seen State = iota
	Unseen
)

func (s State) String() string {
	if s == Unseen {
		return "unseen"
	}
	return "seen"
}

// Wire sentinels. Each entity uses its own; they are not interchangeable.
const (
	UserNotSeen         = "NOT_SEEN"
	SellerUnSeen        = "UN-SEEN"
	NotificationNotSeen = "FALSE"
)

func stateOf(unseen bool) State {
	if unseen {
		return Unseen
	}
	return Seen
}

// isNull matches a present JSON null only. A field the record does not
// carry decodes to an empty RawMessage and reads as seen.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isString(raw json.RawMessage, want string) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && s == want
}

// isNumericZero matches the number 0 only; "0", false and null do not count.
func isNumericZero(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return false
	}
	var f float64
	return json.Unmarshal(raw, &f) == nil && f == 0
}

// UserSidebar is the sidebar badge convention for buyers.
func UserSidebar(u marketplace.User) State { return stateOf(isString(u.Seen, UserNotSeen)) }

// UserPage is the users page highlight convention.
func UserPage(u marketplace.User) State { return stateOf(isNull(u.Seen)) }

func SellerSidebar(s marketplace.Seller) State { return stateOf(isString(s.Seen, SellerUnSeen)) }

func SellerPage(s marketplace.Seller) State { return stateOf(isNull(s.Seen)) }

// ProductPending counts the pending-review queue.
func ProductPending(p marketplace.Product) State {
	return stateOf(p.Status == constants.ProductPending)
}

// ProductGeneral is disjoint from ProductPending: a pending product is never
// counted here regardless of seen_by_admin.
func ProductGeneral(p marketplace.Product) State {
	return stateOf(p.Status != constants.ProductPending && isNull(p.SeenByAdmin))
}

func ProductPage(p marketplace.Product) State { return stateOf(isNull(p.Seen)) }

func Order(o marketplace.Order) State { return stateOf(isNull(o.SeenByAdmin)) }

func Payment(p marketplace.Payment) State { return stateOf(isNull(p.SeenByAdmin)) }

func TicketMessage(m marketplace.TicketMessage) State {
	return stateOf(isNumericZero(m.SeenByAdmin))
}

func Notification(n marketplace.Notification) State {
	return stateOf(isString(n.Seen, NotificationNotSeen))
}
