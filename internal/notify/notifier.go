package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"hubdeck/internal/badge"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/webconfig"

	nfy "github.com/nikoksr/notify"
	nfydd "github.com/nikoksr/notify/service/dingding"
	nfydc "github.com/nikoksr/notify/service/discord"
	nfyhttp "github.com/nikoksr/notify/service/http"
	nfylark "github.com/nikoksr/notify/service/lark"
	nfyslack "github.com/nikoksr/notify/service/slack"
	nfytg "github.com/nikoksr/notify/service/telegram"
)

const (
	subject   = "HubDeck"
	textPlain = "text/plain; charset=utf-8"
)

// Setting keys, stored in the settings table.
const (
	KeyTelegramToken   = "notify_telegram_token"
	KeyTelegramChatID  = "notify_telegram_chat_id"
	KeySlackToken      = "notify_slack_token"
	KeySlackChannelID  = "notify_slack_channel_id"
	KeyDiscordToken    = "notify_discord_token"
	KeyDiscordChannel  = "notify_discord_channel_id"
	KeyLarkWebhookURL  = "notify_lark_webhook_url"
	KeyDingTalkToken   = "notify_dingtalk_token"
	KeyDingTalkSecret  = "notify_dingtalk_secret"
	KeyWebhookURL      = "notify_webhook_url"
	KeyWebhookMethod   = "notify_webhook_method"
	KeyWebhookHeaders  = "notify_webhook_headers"
	KeyWebhookTemplate = "notify_webhook_template"
)

// SettingKeys lists every key the config endpoint may read or write.
var SettingKeys = []string{
	KeyTelegramToken, KeyTelegramChatID,
	KeySlackToken, KeySlackChannelID,
	KeyDiscordToken, KeyDiscordChannel,
	KeyLarkWebhookURL,
	KeyDingTalkToken, KeyDingTalkSecret,
	KeyWebhookURL, KeyWebhookMethod, KeyWebhookHeaders, KeyWebhookTemplate,
}

// SecretKeys are masked when settings are read back.
var SecretKeys = map[string]bool{
	KeyTelegramToken:  true,
	KeySlackToken:     true,
	KeyDiscordToken:   true,
	KeyDingTalkToken:  true,
	KeyDingTalkSecret: true,
}

var ErrNoChannels = errors.New("no notification channels configured")

type SettingsReader interface {
	GetAll() (map[string]string, error)
}

// AlertRecorder is satisfied by *database.BadgeAlertRepo.
type AlertRecorder interface {
	Create(alert *database.BadgeAlert) error
	MarkNotified(id uint) error
}

// Manager wraps nikoksr/notify and turns badge growth into alerts.
type Manager struct {
	mu       sync.RWMutex
	notifier *nfy.Notify
	names    []string

	alert  webconfig.AlertConfig
	alerts AlertRecorder
}

func NewManager(alert webconfig.AlertConfig, alerts AlertRecorder) *Manager {
	return &Manager{notifier: nfy.New(), alert: alert, alerts: alerts}
}

type channelBuilder func(n *nfy.Notify, s map[string]string) (bool, error)

var builders = []struct {
	name  string
	build channelBuilder
}{
	{"telegram", buildTelegram},
	{"slack", buildSlack},
	{"discord", buildDiscord},
	{"lark", buildLark},
	{"dingtalk", buildDingTalk},
	{"webhook", buildWebhook},
}

// Reload rebuilds every channel from stored settings. A channel that fails
// to initialize is skipped and logged.
func (m *Manager) Reload(settings SettingsReader) error {
	all, err := settings.GetAll()
	if err != nil {
		return err
	}

	n := nfy.New()
	var names []string
	for _, b := range builders {
		ok, err := b.build(n, all)
		if err != nil {
			logger.Notify.Warn().Err(err).Str("channel", b.name).Msg("channel init failed")
			continue
		}
		if ok {
			names = append(names, b.name)
		}
	}

	m.mu.Lock()
	m.notifier = n
	m.names = names
	m.mu.Unlock()

	logger.Notify.Info().Strs("channels", names).Msg("notification channels reloaded")
	return nil
}

func (m *Manager) HasChannels() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names) > 0
}

func (m *Manager) ChannelNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.names...)
}

// Send dispatches text to every configured channel.
func (m *Manager) Send(ctx context.Context, text string) error {
	m.mu.RLock()
	n, count := m.notifier, len(m.names)
	m.mu.RUnlock()

	if count == 0 {
		return ErrNoChannels
	}
	return n.Send(ctx, subject, text)
}

// BadgeIncrease records one alert per counter that grew by at least the
// configured minimum. Sending to channels only happens when alerts are enabled.
func (m *Manager) BadgeIncrease(ctx context.Context, prev, next badge.Counts) {
	growth := Growth(prev, next, m.alert.MinIncrease)
	if len(growth) == 0 {
		return
	}

	lines := make([]string, len(growth))
	ids := make([]uint, 0, len(growth))
	for i, g := range growth {
		lines[i] = g.Message()
		if m.alerts == nil {
			continue
		}
		row := &database.BadgeAlert{Badge: string(g.Key), From: g.From, To: g.To, Message: lines[i]}
		if err := m.alerts.Create(row); err != nil {
			logger.Notify.Error().Err(err).Str("badge", string(g.Key)).Msg("failed to record badge alert")
			continue
		}
		ids = append(ids, row.ID)
	}

	if !m.alert.Enabled || !m.HasChannels() {
		return
	}
	if err := m.Send(ctx, strings.Join(lines, "\n")); err != nil {
		logger.Notify.Warn().Err(err).Msg("alert send failed")
		return
	}
	if m.alerts == nil {
		return
	}
	for _, id := range ids {
		_ = m.alerts.MarkNotified(id)
	}
}

// Increase is one counter that grew.
type Increase struct {
	Key  badge.Key
	From int
	To   int
}

var labels = map[badge.Key]string{
	badge.KeyUsers:               "new buyers",
	badge.KeySellers:             "new sellers",
	badge.KeyProducts:            "unseen products",
	badge.KeyPendingProducts:     "products pending review",
	badge.KeyOrders:              "new orders",
	badge.KeyPayments:            "new payments",
	badge.KeyUnreadConversations: "unread ticket conversations",
}

func (i Increase) Message() string {
	return fmt.Sprintf("%d %s (was %d)", i.To, labels[i.Key], i.From)
}

// Growth lists counters where next exceeds prev by at least min, in
// sidebar order.
func Growth(prev, next badge.Counts, min int) []Increase {
	if min <= 0 {
		min = 1
	}
	var out []Increase
	for _, k := range badge.Keys {
		from, to := prev.Get(k), next.Get(k)
		if to-from >= min {
			out = append(out, Increase{Key: k, From: from, To: to})
		}
	}
	return out
}

func buildTelegram(n *nfy.Notify, s map[string]string) (bool, error) {
	token, chat := s[KeyTelegramToken], strings.TrimSpace(s[KeyTelegramChatID])
	if token == "" || chat == "" {
		return false, nil
	}
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid telegram chat id %q", chat)
	}
	svc, err := nfytg.New(token)
	if err != nil {
		return false, err
	}
	svc.AddReceivers(id)
	n.UseServices(svc)
	return true, nil
}

func buildSlack(n *nfy.Notify, s map[string]string) (bool, error) {
	token, channel := s[KeySlackToken], strings.TrimSpace(s[KeySlackChannelID])
	if token == "" || channel == "" {
		return false, nil
	}
	svc := nfyslack.New(token)
	svc.AddReceivers(channel)
	n.UseServices(svc)
	return true, nil
}

func buildDiscord(n *nfy.Notify, s map[string]string) (bool, error) {
	token, channel := s[KeyDiscordToken], strings.TrimSpace(s[KeyDiscordChannel])
	if token == "" || channel == "" {
		return false, nil
	}
	svc := nfydc.New()
	if err := svc.AuthenticateWithBotToken(token); err != nil {
		return false, err
	}
	svc.AddReceivers(channel)
	n.UseServices(svc)
	return true, nil
}

func buildLark(n *nfy.Notify, s map[string]string) (bool, error) {
	url := s[KeyLarkWebhookURL]
	if url == "" {
		return false, nil
	}
	n.UseServices(nfylark.NewWebhookService(url))
	return true, nil
}

func buildDingTalk(n *nfy.Notify, s map[string]string) (bool, error) {
	token, secret := s[KeyDingTalkToken], s[KeyDingTalkSecret]
	if token == "" && secret == "" {
		return false, nil
	}
	// the dingtalk client panics on a missing token or secret
	if token == "" || secret == "" {
		return false, errors.New("dingtalk needs both token and secret")
	}
	n.UseServices(nfydd.New(&nfydd.Config{Token: token, Secret: secret}))
	return true, nil
}

// buildWebhook posts {"subject","message"} JSON unless a template is set;
// a template replaces {message} with the text and is sent verbatim.
func buildWebhook(n *nfy.Notify, s map[string]string) (bool, error) {
	url := s[KeyWebhookURL]
	if url == "" {
		return false, nil
	}
	method := strings.ToUpper(strings.TrimSpace(s[KeyWebhookMethod]))
	if method == "" {
		method = http.MethodPost
	}

	hdrs := make(http.Header)
	for _, h := range strings.Split(s[KeyWebhookHeaders], ",") {
		if k, v, ok := strings.Cut(strings.TrimSpace(h), ":"); ok {
			hdrs.Set(strings.TrimSpace(k), strings.TrimSpace(v))
		}
	}

	tmpl := s[KeyWebhookTemplate]
	contentType := "application/json; charset=utf-8"
	if t := strings.TrimSpace(tmpl); t != "" && !json.Valid([]byte(strings.ReplaceAll(t, "{message}", ""))) {
		contentType = textPlain
	}

	svc := nfyhttp.New()
	svc.AddReceivers(&nfyhttp.Webhook{
		URL:         url,
		Header:      hdrs,
		ContentType: contentType,
		Method:      method,
		BuildPayload: func(subj, message string) (payload any) {
			// the http service marshals JSON payloads itself
			if tmpl == "" {
				return map[string]string{"subject": subj, "message": message}
			}
			if contentType == textPlain {
				return strings.ReplaceAll(tmpl, "{message}", message)
			}
			// the placeholder sits inside a JSON string literal
			b, _ := json.Marshal(message)
			return json.RawMessage(strings.ReplaceAll(tmpl, "{message}", string(b[1:len(b)-1])))
		},
	})
	n.UseServices(svc)
	return true, nil
}
