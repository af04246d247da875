package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"hubdeck/internal/badge"
	"hubdeck/internal/database"
	"hubdeck/internal/testutil"
	"hubdeck/internal/webconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSettings map[string]string

func (m mapSettings) GetAll() (map[string]string, error) { return m, nil }

func TestGrowth(t *testing.T) {
	prev := badge.Counts{Users: 2, Orders: 5, PendingProducts: 1}
	next := badge.Counts{Users: 3, Orders: 4, PendingProducts: 4, UnreadConversations: 2}

	got := Growth(prev, next, 1)
	require.Len(t, got, 3)
	assert.Equal(t, Increase{Key: badge.KeyUsers, From: 2, To: 3}, got[0])
	assert.Equal(t, Increase{Key: badge.KeyPendingProducts, From: 1, To: 4}, got[1])
	assert.Equal(t, Increase{Key: badge.KeyUnreadConversations, From: 0, To: 2}, got[2])

	got = Growth(prev, next, 2)
	require.Len(t, got, 2)
	assert.Equal(t, badge.KeyPendingProducts, got[0].Key)

	assert.Empty(t, Growth(next, next, 0))
}

func TestIncrease_Message(t *testing.T) {
	i := Increase{Key: badge.KeyPendingProducts, From: 1, To: 4}
	assert.Equal(t, "4 products pending review (was 1)", i.Message())
}

func TestReload_NoChannels(t *testing.T) {
	m := NewManager(webconfig.AlertConfig{}, nil)
	require.NoError(t, m.Reload(mapSettings{}))

	assert.False(t, m.HasChannels())
	assert.Empty(t, m.ChannelNames())
	assert.ErrorIs(t, m.Send(context.Background(), "hi"), ErrNoChannels)
}

func TestReload_BuildsConfiguredChannels(t *testing.T) {
	m := NewManager(webconfig.AlertConfig{}, nil)
	require.NoError(t, m.Reload(mapSettings{
		KeyLarkWebhookURL: "http://lark.invalid/hook",
		KeyDingTalkToken:  "dd",
		KeyDingTalkSecret: "SEC",
		KeyWebhookURL:     "http://hook.invalid",
		// incomplete pairs are ignored
		KeySlackToken:    "xoxb",
		KeyTelegramToken: "123:abc",
	}))

	assert.Equal(t, []string{"lark", "dingtalk", "webhook"}, m.ChannelNames())
}

func TestReload_IncompleteDingTalkIsSkipped(t *testing.T) {
	for name, settings := range map[string]mapSettings{
		"token only":  {KeyDingTalkToken: "dd"},
		"secret only": {KeyDingTalkSecret: "SEC"},
	} {
		t.Run(name, func(t *testing.T) {
			m := NewManager(webconfig.AlertConfig{}, nil)
			require.NotPanics(t, func() { require.NoError(t, m.Reload(settings)) })
			assert.False(t, m.HasChannels())
		})
	}
}

func TestReload_InvalidTelegramChatIsSkipped(t *testing.T) {
	m := NewManager(webconfig.AlertConfig{}, nil)
	require.NoError(t, m.Reload(mapSettings{KeyTelegramToken: "t", KeyTelegramChatID: "not-a-number"}))
	assert.False(t, m.HasChannels())
}

type hookServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newHookServer(t *testing.T) *hookServer {
	h := &hookServer{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.bodies = append(h.bodies, string(b))
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *hookServer) Bodies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bodies...)
}

func TestSend_WebhookDefaultPayload(t *testing.T) {
	hook := newHookServer(t)
	m := NewManager(webconfig.AlertConfig{}, nil)
	require.NoError(t, m.Reload(mapSettings{KeyWebhookURL: hook.URL}))

	require.NoError(t, m.Send(context.Background(), "2 new orders"))

	bodies := hook.Bodies()
	require.Len(t, bodies, 1)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &payload))
	assert.Equal(t, "HubDeck", payload["subject"])
	assert.Equal(t, "2 new orders", payload["message"])
}

func TestSend_WebhookTemplateEscapesMessage(t *testing.T) {
	hook := newHookServer(t)
	m := NewManager(webconfig.AlertConfig{}, nil)
	require.NoError(t, m.Reload(mapSettings{
		KeyWebhookURL:      hook.URL,
		KeyWebhookTemplate: `{"msgtype":"text","text":{"content":"{message}"}}`,
	}))

	require.NoError(t, m.Send(context.Background(), "line \"one\"\nline two"))

	bodies := hook.Bodies()
	require.Len(t, bodies, 1)
	var payload struct {
		Text struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &payload))
	assert.Equal(t, "line \"one\"\nline two", payload.Text.Content)
}

func TestSend_WebhookPlainTemplate(t *testing.T) {
	hook := newHookServer(t)
	m := NewManager(webconfig.AlertConfig{}, nil)
	require.NoError(t, m.Reload(mapSettings{
		KeyWebhookURL:      hook.URL,
		KeyWebhookTemplate: "alert: {message}",
	}))

	require.NoError(t, m.Send(context.Background(), "2 new orders"))

	bodies := hook.Bodies()
	require.Len(t, bodies, 1)
	assert.Equal(t, "alert: 2 new orders", bodies[0])
}

func TestBadgeIncrease_DisabledRecordsWithoutSending(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	hook := newHookServer(t)
	repo := database.NewBadgeAlertRepo()
	m := NewManager(webconfig.AlertConfig{Enabled: false, MinIncrease: 1}, repo)
	require.NoError(t, m.Reload(mapSettings{KeyWebhookURL: hook.URL}))
	m.BadgeIncrease(context.Background(), badge.Counts{}, badge.Counts{Orders: 3})

	alerts, _, err := repo.List(database.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "orders", alerts[0].Badge)
	assert.False(t, alerts[0].Notified)
	assert.Empty(t, hook.Bodies())
}

func TestBadgeIncrease_RecordsAndNotifies(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	hook := newHookServer(t)
	repo := database.NewBadgeAlertRepo()
	m := NewManager(webconfig.AlertConfig{Enabled: true, MinIncrease: 1}, repo)
	require.NoError(t, m.Reload(mapSettings{KeyWebhookURL: hook.URL}))

	m.BadgeIncrease(context.Background(),
		badge.Counts{Orders: 1, Users: 5},
		badge.Counts{Orders: 3, Users: 5, PendingProducts: 1})

	alerts, total, err := repo.List(database.AlertFilter{SortBy: "id", SortOrder: "asc"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	assert.Equal(t, "pending_products", alerts[0].Badge)
	assert.Equal(t, "orders", alerts[1].Badge)
	assert.True(t, alerts[0].Notified)
	assert.True(t, alerts[1].Notified)

	require.Len(t, hook.Bodies(), 1)
	assert.Contains(t, hook.Bodies()[0], "3 new orders (was 1)")
}

func TestBadgeIncrease_NoChannelsStillRecords(t *testing.T) {
	cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	repo := database.NewBadgeAlertRepo()
	m := NewManager(webconfig.AlertConfig{Enabled: true, MinIncrease: 1}, repo)
	m.BadgeIncrease(context.Background(), badge.Counts{}, badge.Counts{Sellers: 1})

	alerts, _, err := repo.List(database.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Notified)
}
