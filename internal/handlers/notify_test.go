package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"hubdeck/internal/database"
	"hubdeck/internal/notify"
	"hubdeck/internal/testutil"
	"hubdeck/internal/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotifyHandler() *NotifyHandler {
	m := notify.NewManager(testutil.TestConfig().Alert, database.NewBadgeAlertRepo())
	return NewNotifyHandler(m)
}

func TestNotify_GetConfigMasksSecrets(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	repo := database.NewSettingRepo()
	require.NoError(t, repo.SetBatch(map[string]string{
		notify.KeySlackToken:     "xoxb-secret",
		notify.KeySlackChannelID: "C123",
		"unrelated":              "x",
	}))
	h := newNotifyHandler()

	w := httptest.NewRecorder()
	h.GetConfig(w, request(http.MethodGet, "/api/v1/notify/config", "", adminPrincipal))

	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[struct {
		Config map[string]string `json:"config"`
	}](t, w).Data.Config
	assert.Equal(t, secretMask, cfg[notify.KeySlackToken])
	assert.Equal(t, "C123", cfg[notify.KeySlackChannelID])
	assert.Equal(t, "", cfg[notify.KeyWebhookURL])
	assert.NotContains(t, cfg, "unrelated")
}

func TestNotify_UpdateConfigAndTestSend(t *testing.T) {
	defer testutil.SetupTestDB(t)()

	var (
		mu     sync.Mutex
		bodies []map[string]string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
	}))
	defer hook.Close()

	h := newNotifyHandler()

	w := httptest.NewRecorder()
	h.TestSend(w, request(http.MethodPost, "/api/v1/notify/test", "", adminPrincipal))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, web.ErrNotifyNoChannels.Code, decode[any](t, w).ErrorCode)

	w = httptest.NewRecorder()
	body := `{"notify_webhook_url":"` + hook.URL + `","notify_slack_token":"` + secretMask + `","bogus":"1"}`
	h.UpdateConfig(w, request(http.MethodPut, "/api/v1/notify/config", body, adminPrincipal))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"webhook"}, decode[struct {
		Active []string `json:"active_channels"`
	}](t, w).Data.Active)

	stored, err := database.NewSettingRepo().GetAll()
	require.NoError(t, err)
	assert.Equal(t, hook.URL, stored[notify.KeyWebhookURL])
	assert.NotContains(t, stored, notify.KeySlackToken, "masked value is not written back")
	assert.NotContains(t, stored, "bogus")
	assert.Equal(t, []string{"settings.update"}, auditActions(t))

	w = httptest.NewRecorder()
	h.TestSend(w, request(http.MethodPost, "/api/v1/notify/test", `{"message":"hello"}`, adminPrincipal))
	require.Equal(t, http.StatusOK, w.Code)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Equal(t, "hello", bodies[0]["message"])
	assert.Equal(t, "HubDeck", bodies[0]["subject"])
}

func TestNotify_UpdateConfigRejectsUnknownOnly(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	h := newNotifyHandler()

	w := httptest.NewRecorder()
	h.UpdateConfig(w, request(http.MethodPut, "/api/v1/notify/config", `{"bogus":"1"}`, adminPrincipal))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotify_TestSendFailure(t *testing.T) {
	defer testutil.SetupTestDB(t)()
	// a closed server refuses the connection
	hook := httptest.NewServer(http.NotFoundHandler())
	hook.Close()

	require.NoError(t, database.NewSettingRepo().Set(notify.KeyWebhookURL, hook.URL))
	h := newNotifyHandler()
	require.NoError(t, h.manager.Reload(database.NewSettingRepo()))

	w := httptest.NewRecorder()
	h.TestSend(w, request(http.MethodPost, "/api/v1/notify/test", "", adminPrincipal))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
