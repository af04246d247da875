package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hubdeck/internal/logger"
	"hubdeck/internal/version"
	"hubdeck/internal/webconfig"
)

const maxBodyBytes = 16 << 20

// Client talks to the remote marketplace API. It holds no state besides
// its configuration and is safe for concurrent use.
type Client struct {
	base      string
	token     string
	userAgent string
	http      *http.Client
}

func NewClient(cfg webconfig.MarketplaceConfig, timeout time.Duration) *Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = "hubdeck"
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIPrefix, "/"),
		token:     cfg.Token,
		userAgent: ua + "/" + version.Version,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return listOf[User](ctx, c, "/users", "users", "data")
}

func (c *Client) ListSellers(ctx context.Context) ([]Seller, error) {
	return listOf[Seller](ctx, c, "/sellers", "sellers", "data")
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	return listOf[Product](ctx, c, "/digital-products", "products", "data")
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	return listOf[Order](ctx, c, "/orders", "orders", "data")
}

func (c *Client) ListPayments(ctx context.Context) ([]Payment, error) {
	return listOf[Payment](ctx, c, "/payments", "payments", "data")
}

func (c *Client) ListTickets(ctx context.Context) ([]Ticket, error) {
	return listOf[Ticket](ctx, c, "/tickets", "tickets", "data")
}

func (c *Client) ListTicketMessages(ctx context.Context, ticketID string) ([]TicketMessage, error) {
	return listOf[TicketMessage](ctx, c, "/tickets/"+url.PathEscape(ticketID)+"/messages", "result", "messages")
}

func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	return listOf[Notification](ctx, c, "/notifications/admin", "data", "notifications")
}

func (c *Client) MarkUserSeen(ctx context.Context, id string) (Ack, error) {
	return c.put(ctx, "/users/updateSeen/"+url.PathEscape(id))
}

func (c *Client) MarkSellerSeen(ctx context.Context, id string) (Ack, error) {
	return c.put(ctx, "/sellers/updateSeen/"+url.PathEscape(id))
}

func (c *Client) MarkProductSeen(ctx context.Context, id string) (Ack, error) {
	return c.put(ctx, "/product-seen/"+url.PathEscape(id))
}

func (c *Client) MarkNotificationSeen(ctx context.Context, id string) (Ack, error) {
	return c.put(ctx, "/notice-seen/"+url.PathEscape(id))
}

func listOf[T any](ctx context.Context, c *Client, path string, keys ...string) ([]T, error) {
	body, _, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := decodeList(body, &out, keys...); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func (c *Client) put(ctx context.Context, path string) (Ack, error) {
	body, status, err := c.do(ctx, http.MethodPut, path)
	if err != nil {
		return Ack{StatusCode: status}, err
	}
	ack := Ack{StatusCode: status}
	if json.Valid(body) {
		ack.Body = body
	}
	return ack, nil
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	logger.Market.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("marketplace request")
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}
	return body, resp.StatusCode, nil
}

// decodeList accepts either a bare JSON array or an object carrying the
// array under one of keys. An empty body, null, or a missing key all
// decode to an empty list.
func decodeList(body []byte, out interface{}, keys ...string) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if body[0] == '[' {
		return json.Unmarshal(body, out)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	for _, k := range keys {
		raw, ok := envelope[k]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		return json.Unmarshal(raw, out)
	}
	return nil
}
