package seen

import (
	"testing"

	"hubdeck/internal/marketplace"

	"github.com/stretchr/testify/assert"
)

func TestFilterAndCount_Agree(t *testing.T) {
	users := []marketplace.User{
		{ID: "1", Seen: str("NOT_SEEN")},
		{ID: "2", Seen: str("SEEN")},
		{ID: "3", Seen: str("NOT_SEEN")},
		{ID: "4", Seen: null},
	}

	got := Filter(users, UserSidebar)
	assert.Len(t, got, Count(users, UserSidebar))
	assert.Equal(t, marketplace.ID("1"), got[0].ID)
	assert.Equal(t, marketplace.ID("3"), got[1].ID)

	assert.Equal(t, 1, Count(users, UserPage))
}

func TestFilter_EmptyAndNil(t *testing.T) {
	assert.NotNil(t, Filter([]marketplace.Order(nil), Order))
	assert.Empty(t, Filter([]marketplace.Order{}, Order))
	assert.Zero(t, Count([]marketplace.Order(nil), Order))
}

func TestProducts_PendingAndGeneral(t *testing.T) {
	products := []marketplace.Product{
		{ID: "1", Status: "pending"},
		{ID: "2", Status: "approved", SeenByAdmin: null},
		{ID: "3", Status: "approved", SeenByAdmin: str("x")},
	}

	assert.Equal(t, 1, Count(products, ProductPending))
	general := Filter(products, ProductGeneral)
	if assert.Len(t, general, 1) {
		assert.Equal(t, marketplace.ID("2"), general[0].ID)
	}
}

func TestSellers_SidebarCount(t *testing.T) {
	sellers := []marketplace.Seller{
		{SellerID: "s1", Seen: str("UN-SEEN")},
		{SellerID: "s2", Seen: str("SEEN")},
	}
	assert.Equal(t, 1, Count(sellers, SellerSidebar))
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	orders := []marketplace.Order{{OrderID: "a", SeenByAdmin: null}, {OrderID: "b", SeenByAdmin: num(1)}}
	before := append([]marketplace.Order(nil), orders...)

	_ = Filter(orders, Order)
	assert.Equal(t, before, orders)
}

func TestIDs_SkipsEmpty(t *testing.T) {
	sellers := []marketplace.Seller{{SellerID: "s1"}, {SellerID: ""}, {SellerID: "s3"}}
	assert.Equal(t, []string{"s1", "s3"}, IDs(sellers, SellerID))
	assert.Empty(t, IDs([]marketplace.User(nil), UserID))
}
