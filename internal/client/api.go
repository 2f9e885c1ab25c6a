package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexrdz/retro-flow/internal/models"
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// APIClient talks to the REST API and implements Persistence.
type APIClient struct {
	baseURL string
	client  *http.Client
}

var _ Persistence = (*APIClient)(nil)

// NewAPIClient creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateSession creates a new retrospective session.
func (c *APIClient) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	var out models.Session
	if err := c.do(ctx, http.MethodPost, "/sessions", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns every session.
func (c *APIClient) ListSessions(ctx context.Context) ([]models.Session, error) {
	var out struct {
		Sessions []models.Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *APIClient) GetSession(ctx context.Context, id string) (*models.SessionData, error) {
	var out models.SessionData
	if err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) CreateCard(ctx context.Context, in models.NewCard) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodPost, "/cards", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateCard(ctx context.Context, id int64, patch models.CardPatch) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/cards/%d", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeleteCard(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cards/%d", id), nil, nil)
}

func (c *APIClient) CreateActionItem(ctx context.Context, in models.NewActionItem) (*models.ActionItem, error) {
	var out models.ActionItem
	if err := c.do(ctx, http.MethodPost, "/action-items", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateActionItem(ctx context.Context, id int64, patch models.ActionItemPatch) (*models.ActionItem, error) {
	var out models.ActionItem
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/action-items/%d", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeleteActionItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/action-items/%d", id), nil, nil)
}

func (c *APIClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseError prefers the JSON error or message field, then the raw body,
// then the status line.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &payload)
		switch {
		case payload.Error != "":
			apiErr.Message = payload.Error
		case payload.Message != "":
			apiErr.Message = payload.Message
		default:
			apiErr.Message = "Unknown error"
		}
		return apiErr
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		apiErr.Message = text
	} else {
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return apiErr
}
