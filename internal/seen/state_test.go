package seen

import (
	"encoding/json"
	"testing"

	"hubdeck/internal/marketplace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	str  = marketplace.String
	num  = marketplace.Number
	null = marketplace.Null
)

func TestUserConventionsDiverge(t *testing.T) {
	tests := []struct {
		name    string
		seen    json.RawMessage
		sidebar State
		page    State
	}{
		{"NOT_SEEN", str("NOT_SEEN"), Unseen, Seen},
		{"null", null, Seen, Unseen},
		{"absent", nil, Seen, Seen},
		{"SEEN", str("SEEN"), Seen, Seen},
		{"lowercase", str("not_seen"), Seen, Seen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := marketplace.User{ID: "u", Seen: tt.seen}
			assert.Equal(t, tt.sidebar, UserSidebar(u))
			assert.Equal(t, tt.page, UserPage(u))
		})
	}
}

func TestSellerConventions(t *testing.T) {
	assert.Equal(t, Unseen, SellerSidebar(marketplace.Seller{Seen: str("UN-SEEN")}))
	assert.Equal(t, Seen, SellerSidebar(marketplace.Seller{Seen: str("NOT_SEEN")}))
	assert.Equal(t, Seen, SellerSidebar(marketplace.Seller{Seen: null}))
	assert.Equal(t, Unseen, SellerPage(marketplace.Seller{Seen: null}))
	assert.Equal(t, Seen, SellerPage(marketplace.Seller{Seen: str("UN-SEEN")}))
}

func TestProductConventions(t *testing.T) {
	tests := []struct {
		name    string
		p       marketplace.Product
		pending State
		general State
	}{
		{"pending with null", marketplace.Product{Status: "pending", SeenByAdmin: null}, Unseen, Seen},
		{"pending absent", marketplace.Product{Status: "pending"}, Unseen, Seen},
		{"approved null", marketplace.Product{Status: "approved", SeenByAdmin: null}, Seen, Unseen},
		{"approved absent", marketplace.Product{Status: "approved"}, Seen, Seen},
		{"approved seen", marketplace.Product{Status: "approved", SeenByAdmin: str("x")}, Seen, Seen},
		{"rejected zero", marketplace.Product{Status: "rejected", SeenByAdmin: num(0)}, Seen, Seen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pending, ProductPending(tt.p))
			assert.Equal(t, tt.general, ProductGeneral(tt.p))
		})
	}
}

func TestOrderAndPayment_ExplicitNullOnly(t *testing.T) {
	assert.Equal(t, Unseen, Order(marketplace.Order{SeenByAdmin: null}))
	assert.Equal(t, Seen, Order(marketplace.Order{}))
	assert.Equal(t, Seen, Order(marketplace.Order{SeenByAdmin: num(0)}))
	assert.Equal(t, Seen, Order(marketplace.Order{SeenByAdmin: json.RawMessage("false")}))

	assert.Equal(t, Unseen, Payment(marketplace.Payment{SeenByAdmin: json.RawMessage(" null ")}))
	assert.Equal(t, Seen, Payment(marketplace.Payment{SeenByAdmin: str("")}))
}

func TestTicketMessage_NumericZeroOnly(t *testing.T) {
	tests := map[string]struct {
		raw  json.RawMessage
		want State
	}{
		"zero":        {num(0), Unseen},
		"zero float":  {json.RawMessage("0.0"), Unseen},
		"one":         {num(1), Seen},
		"string zero": {str("0"), Seen},
		"false":       {json.RawMessage("false"), Seen},
		"null":        {null, Seen},
		"absent":      {nil, Seen},
	}
	for name, tt := range tests {
		assert.Equal(t, tt.want, TicketMessage(marketplace.TicketMessage{SeenByAdmin: tt.raw}), name)
	}
}

func TestNotification(t *testing.T) {
	assert.Equal(t, Unseen, Notification(marketplace.Notification{Seen: str("FALSE")}))
	assert.Equal(t, Seen, Notification(marketplace.Notification{Seen: str("TRUE")}))
	assert.Equal(t, Seen, Notification(marketplace.Notification{Seen: json.RawMessage("false")}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unseen", Unseen.String())
	assert.Equal(t, "seen", Seen.String())
}

func TestDecodedRecords_MissingFieldIsSeen(t *testing.T) {
	var orders []marketplace.Order
	require.NoError(t, json.Unmarshal([]byte(
		`[{"order_id":1},{"order_id":2,"seen_by_admin":null},{"order_id":3,"seen_by_admin":1}]`), &orders))
	unseen := Filter(orders, Order)
	require.Len(t, unseen, 1)
	assert.Equal(t, marketplace.ID("2"), unseen[0].OrderID)

	var users []marketplace.User
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1},{"id":2,"seen":null}]`), &users))
	assert.Equal(t, Seen, UserPage(users[0]))
	assert.Equal(t, Unseen, UserPage(users[1]))

	var products []marketplace.Product
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"status":"approved"},{"id":2,"status":"approved","seen_by_admin":null}]`), &products))
	assert.Equal(t, 1, Count(products, ProductGeneral))
}
