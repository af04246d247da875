package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hubdeck/internal/badge"
	"hubdeck/internal/database"
	"hubdeck/internal/seen"
	"hubdeck/internal/testutil"
	"hubdeck/internal/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewHandler(t *testing.T, market *testutil.FakeMarket) *ReviewHandler {
	t.Helper()
	client := market.Client()
	r := badge.NewRefresher(client, badge.NewStore(), badge.Options{})
	return NewReviewHandler(client, seen.NewMarker(2, database.NewAuditLogRepo()), r)
}

func reviewRequest(method, target, body, kind string) *http.Request {
	req := request(method, target, body, adminPrincipal)
	req.SetPathValue("kind", kind)
	return req
}

type pageResp struct {
	Kind   string `json:"kind"`
	Total  int    `json:"total"`
	Unseen int    `json:"unseen"`
	Items  []struct {
		ID        string `json:"id"`
		Highlight bool   `json:"highlight"`
	} `json:"items"`
}

func TestReview_ListHighlightsWithPageConvention(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	// the page convention is an explicit null, unlike the sidebar's "NOT_SEEN"
	market.Set("/users", `[{"id":"u1","seen":"NOT_SEEN"},{"id":"u2","seen":null},{"id":"u3"}]`)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.List(w, reviewRequest(http.MethodGet, "/api/v1/review/users", "", "users"))

	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageResp](t, w).Data
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Unseen)
	assert.False(t, page.Items[0].Highlight)
	assert.True(t, page.Items[1].Highlight)
	assert.False(t, page.Items[2].Highlight, "a missing seen field is not null")
	assert.Empty(t, market.Puts(), "reading a page never marks")
}

func TestReview_ProductsByStatus(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	market.Set("/digital-products", `[{"id":1,"status":"pending"},{"id":2,"status":"approved","seen":null},{"id":3,"status":"approved","seen":"yes"},{"id":4,"status":"rejected"}]`)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.List(w, reviewRequest(http.MethodGet, "/api/v1/review/products", "", "products"))
	page := decode[pageResp](t, w).Data
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Unseen)

	w = httptest.NewRecorder()
	h.List(w, reviewRequest(http.MethodGet, "/api/v1/review/products?status=pending", "", "products"))
	page = decode[pageResp](t, w).Data
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Items[0].ID)
}

func TestReview_Notifications(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	market.Set("/notifications/admin", `{"data":[{"id":9,"seen":"FALSE"},{"id":10,"seen":"TRUE"}]}`)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.List(w, reviewRequest(http.MethodGet, "/api/v1/review/notifications", "", "notifications"))
	assert.Equal(t, 1, decode[pageResp](t, w).Data.Unseen)
}

func TestReview_UnknownKind(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	h := newReviewHandler(t, testutil.NewFakeMarket(t))

	w := httptest.NewRecorder()
	h.List(w, reviewRequest(http.MethodGet, "/api/v1/review/orders", "", "orders"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, web.ErrUnknownEntity.Code, decode[any](t, w).ErrorCode)
}

func TestReview_MarketFailure(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	market.Fail("/sellers", http.StatusInternalServerError)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.List(w, reviewRequest(http.MethodGet, "/api/v1/review/sellers", "", "sellers"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestReview_MarkSeenGivenIDs(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.MarkSeen(w, reviewRequest(http.MethodPost, "/api/v1/review/sellers/seen", `{"ids":["s2","s1","s2",""]}`, "sellers"))

	require.Equal(t, http.StatusOK, w.Code)
	res := decode[seen.MarkResult](t, w).Data
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Marked)
	assert.Equal(t, []string{"/sellers/updateSeen/s1", "/sellers/updateSeen/s2"}, market.Puts())
	assert.Zero(t, market.Calls("/sellers"), "explicit ids need no list fetch")
	assert.Equal(t, []string{"seen.mark"}, auditActions(t))
}

func TestReview_MarkSeenWholePage(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	market.Set("/notifications/admin", `{"data":[{"id":9,"seen":"FALSE"},{"id":10,"seen":"TRUE"}]}`)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.MarkSeen(w, reviewRequest(http.MethodPost, "/api/v1/review/notifications/seen", "", "notifications"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"/notice-seen/10", "/notice-seen/9"}, market.Puts())
}

func TestReview_MarkSeenPartialFailure(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	market.Fail("/users/updateSeen/u2", http.StatusInternalServerError)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.MarkSeen(w, reviewRequest(http.MethodPost, "/api/v1/review/users/seen", `{"ids":["u1","u2","u3"]}`, "users"))

	require.Equal(t, http.StatusOK, w.Code, "mark failures are reported, not returned as errors")
	res := decode[seen.MarkResult](t, w).Data
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"u2"}, res.FailedIDs)
	assert.Equal(t, 2, market.Calls("/users/updateSeen/u1")+market.Calls("/users/updateSeen/u3"))
}

func TestReview_MarkSeenBadBody(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	h := newReviewHandler(t, testutil.NewFakeMarket(t))

	w := httptest.NewRecorder()
	h.MarkSeen(w, reviewRequest(http.MethodPost, "/api/v1/review/users/seen", `{"ids":"u1"}`, "users"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReview_TicketsUnread(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	market := testutil.NewFakeMarket(t)
	market.Set("/tickets", `{"tickets":[{"ticket_id":"t1"},{"ticket_id":"t2"},{"ticket_id":"t3"}]}`)
	market.Set("/tickets/t1/messages", `{"result":[{"seen_by_admin":0},{"seen_by_admin":0},{"seen_by_admin":1}]}`)
	market.Set("/tickets/t2/messages", `{"result":[{"seen_by_admin":1}]}`)
	market.Set("/tickets/t3/messages", `{"result":[{"seen_by_admin":0}]}`)
	h := newReviewHandler(t, market)

	w := httptest.NewRecorder()
	h.TicketsUnread(w, request(http.MethodGet, "/api/v1/review/tickets/unread", "", adminPrincipal))
	cached := decode[ticketUnread](t, w).Data
	assert.Empty(t, cached.Unread)
	assert.Zero(t, market.Calls("/tickets"))

	w = httptest.NewRecorder()
	h.TicketsUnread(w, request(http.MethodGet, "/api/v1/review/tickets/unread?refresh=1", "", adminPrincipal))
	fresh := decode[ticketUnread](t, w).Data
	assert.Equal(t, badge.UnreadMap{"t1": 2, "t3": 1}, fresh.Unread)
	assert.Equal(t, 3, fresh.TotalUnreadMessages)
	assert.Equal(t, 2, fresh.TotalUnreadConversations)
	assert.Equal(t, 2, h.refresher.Store().Counts().UnreadConversations)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
	assert.Empty(t, dedupe(nil))
}
