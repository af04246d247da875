package marketplace

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts both JSON strings and numbers; the marketplace API is not
// consistent about which it sends.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User is a marketplace buyer account.
type User struct {
	ID        ID              `json:"id"`
	Username  string          `json:"username,omitempty"`
	Email     string          `json:"email,omitempty"`
	FullName  string          `json:"fullName,omitempty"`
	Verified  string          `json:"verified,omitempty"`
	AccStatus string          `json:"acc_status,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	Seen      json.RawMessage `json:"seen,omitempty"`
}

type Seller struct {
	SellerID           ID              `json:"seller_id"`
	Email              string          `json:"email,omitempty"`
	FullName           string          `json:"fullName,omitempty"`
	Country            string          `json:"country,omitempty"`
	VerificationStatus string          `json:"verification_status,omitempty"`
	AccStatus          string          `json:"acc_status,omitempty"`
	CreatedAt          string          `json:"created_at,omitempty"`
	Seen               json.RawMessage `json:"seen,omitempty"`
}

type Product struct {
	ID           ID              `json:"id"`
	PlatformName string          `json:"platform_name,omitempty"`
	Category     string          `json:"category,omitempty"`
	Price        json.RawMessage `json:"price,omitempty"`
	Status       string          `json:"status"`
	DateCreated  string          `json:"date_created,omitempty"`
	SeenByAdmin  json.RawMessage `json:"seen_by_admin,omitempty"`
	Seen         json.RawMessage `json:"seen,omitempty"`
}

type Order struct {
	OrderID     ID              `json:"order_id"`
	Status      string          `json:"status,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	SeenByAdmin json.RawMessage `json:"seen_by_admin,omitempty"`
}

type Payment struct {
	PaymentID   ID              `json:"payment_id"`
	Status      string          `json:"status,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	SeenByAdmin json.RawMessage `json:"seen_by_admin,omitempty"`
}

type Ticket struct {
	TicketID  ID     `json:"ticket_id"`
	Subject   string `json:"subject,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TicketMessage has no id of its own; it is addressed by position.
type TicketMessage struct {
	Sender      string          `json:"sender,omitempty"`
	Message     string          `json:"message,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	SeenByAdmin json.RawMessage `json:"seen_by_admin,omitempty"`
}

type Notification struct {
	ID               ID              `json:"id"`
	Title            string          `json:"title,omitempty"`
	Details          string          `json:"details,omitempty"`
	Priority         string          `json:"priority,omitempty"`
	NotificationType string          `json:"notification_type,omitempty"`
	CreatedAt        string          `json:"created_at,omitempty"`
	Seen             json.RawMessage `json:"seen,omitempty"`
}

// Ack is the mark-seen acknowledgement. Callers normally discard it.
type Ack struct {
	StatusCode int
	Body       json.RawMessage
}

// String is a helper for building raw string values in tests and fixtures.
func String(s string) json.RawMessage {
	return json.RawMessage(strconv.Quote(s))
}

// Number builds a raw numeric value.
func Number(n int) json.RawMessage {
	return json.RawMessage(strconv.Itoa(n))
}

// Null is the raw JSON null.
var Null = json.RawMessage("null")
