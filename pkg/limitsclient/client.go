// Package limitsclient - клиент для GET /api/fortune-limits.
// Используется фронтовыми BFF и внутренними сервисами, которым нужно заранее
// знать, можно ли запустить гадание.
package limitsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type FortuneType string

const (
	Hand   FortuneType = "HAND"
	Face   FortuneType = "FACE"
	Coffee FortuneType = "COFFEE"
	Tarot  FortuneType = "TAROT"
	AIChat FortuneType = "AI_CHAT"
)

var ErrUnknownType = errors.New("limitsclient: unknown fortune type")

type Limit struct {
	Type           FortuneType `json:"type"`
	DailyLimit     int         `json:"dailyLimit"`
	Used           int         `json:"used"`
	ExtraRights    int         `json:"extraRights"`
	TotalAvailable int         `json:"totalAvailable"`
	Remaining      int         `json:"remaining"`
	LastResetDate  string      `json:"lastResetDate"`
}

type Limits struct {
	Authenticated bool    `json:"authenticated"`
	Degraded      bool    `json:"degraded"`
	Items         []Limit `json:"limits"`
}

func (l *Limits) CheckLimit(t FortuneType) (Limit, bool) {
	for _, item := range l.Items {
		if item.Type == t {
			return item, true
		}
	}
	return Limit{}, false
}

func (l *Limits) HasRemainingRights(t FortuneType) bool {
	item, ok := l.CheckLimit(t)
	return ok && item.Remaining > 0
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch запрашивает таблицу лимитов. Пустой accessToken - анонимная таблица.
func (c *Client) Fetch(ctx context.Context, accessToken string) (*Limits, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/fortune-limits", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("limitsclient: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("limitsclient: unexpected status %d", resp.StatusCode)
	}

	var limits Limits
	if err := json.NewDecoder(resp.Body).Decode(&limits); err != nil {
		return nil, fmt.Errorf("limitsclient: decode: %w", err)
	}
	return &limits, nil
}

func (c *Client) CheckLimit(ctx context.Context, accessToken string, t FortuneType) (Limit, error) {
	limits, err := c.Fetch(ctx, accessToken)
	if err != nil {
		return Limit{}, err
	}
	item, ok := limits.CheckLimit(t)
	if !ok {
		return Limit{}, ErrUnknownType
	}
	return item, nil
}

func (c *Client) HasRemainingRights(ctx context.Context, accessToken string, t FortuneType) (bool, error) {
	item, err := c.CheckLimit(ctx, accessToken, t)
	if err != nil {
		return false, err
	}
	return item.Remaining > 0, nil
}
