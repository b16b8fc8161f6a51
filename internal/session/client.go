package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jpreston42/warband-campaign/internal/battle"
)

// OpError is the single error type every transport, decoding, or server
// failure is normalized into. Its message is safe to show the viewer: the
// server's own wording when one was supplied, a per-operation fallback
// otherwise.
type OpError struct {
	Op      string // "listCampaignBattles", "joinBattle", ...
	Status  int    // HTTP status, 0 when the request never completed
	Message string
}

func (e *OpError) Error() string { return e.Message }

var fallbackMessages = map[string]string{
	"listCampaignBattles":   "could not load battles for this campaign",
	"createBattle":          "could not create the battle",
	"joinBattle":            "could not accept the invite",
	"cancelBattleAsCreator": "could not cancel the battle",
}

func opError(op string, status int, serverMsg string) *OpError {
	msg := serverMsg
	if msg == "" {
		msg = fallbackMessages[op]
	}
	return &OpError{Op: op, Status: status, Message: msg}
}

// Client is the HTTP Repository implementation. One Client acts for one
// viewer; their identity travels on every request.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) ListCampaignBattles(ctx context.Context, campaignID string) ([]battle.Battle, error) {
	const op = "listCampaignBattles"
	path := fmt.Sprintf("/campaigns/%s/battles", url.PathEscape(campaignID))

	battles := []battle.Battle{}
	if err := c.do(ctx, op, http.MethodGet, path, nil, &battles); err != nil {
		return nil, err
	}
	return battles, nil
}

func (c *Client) CreateBattle(ctx context.Context, campaignID string, in battle.CreateInput) (battle.Battle, error) {
	const op = "createBattle"
	path := fmt.Sprintf("/campaigns/%s/battles", url.PathEscape(campaignID))

	var out battle.Battle
	if err := c.do(ctx, op, http.MethodPost, path, in, &out); err != nil {
		return battle.Battle{}, err
	}
	return out, nil
}

func (c *Client) JoinBattle(ctx context.Context, campaignID, battleID string) (battle.Battle, error) {
	const op = "joinBattle"
	path := fmt.Sprintf("/campaigns/%s/battles/%s/join",
		url.PathEscape(campaignID), url.PathEscape(battleID))

	var out battle.Battle
	if err := c.do(ctx, op, http.MethodPost, path, nil, &out); err != nil {
		return battle.Battle{}, err
	}
	return out, nil
}

func (c *Client) CancelBattleAsCreator(ctx context.Context, campaignID, battleID string) (battle.Battle, error) {
	const op = "cancelBattleAsCreator"
	path := fmt.Sprintf("/campaigns/%s/battles/%s/cancel",
		url.PathEscape(campaignID), url.PathEscape(battleID))

	var out battle.Battle
	if err := c.do(ctx, op, http.MethodPost, path, nil, &out); err != nil {
		return battle.Battle{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return opError(op, 0, "")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return opError(op, 0, "")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return opError(op, 0, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return opError(op, resp.StatusCode, e.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return opError(op, resp.StatusCode, "")
		}
	}
	return nil
}
