// Package agendaclient is an HTTP implementation of the schedule store used
// by terminal and batch clients.
package agendaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

const defaultTimeout = 15 * time.Second

// Client talks to the agenda REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for baseURL, e.g. "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates and keeps the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var res models.LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

// Refresh rotates the refresh token and keeps the new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.RefreshTokenResponse, error) {
	var res models.RefreshTokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{"refresh_token": refreshToken}, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.UserInfo, error) {
	var info models.UserInfo
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListResources returns every active resource.
func (c *Client) ListResources(ctx context.Context) ([]models.Resource, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/resources", nil, nil, &raw); err != nil {
		return nil, err
	}
	resources := make([]models.Resource, 0, len(raw))
	for _, item := range raw {
		resource, err := decodeResource(item)
		if err != nil {
			return nil, appErrors.FetchFailed(err, "failed to load resources")
		}
		resources = append(resources, resource)
	}
	return resources, nil
}

// ListAppointments returns raw records; missing fields are reported by the
// reconciler rather than here.
func (c *Client) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentRecord, error) {
	query := url.Values{}
	if len(filter.ResourceIDs) > 0 {
		ids := make([]string, len(filter.ResourceIDs))
		for i, id := range filter.ResourceIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		query.Set("resource_id", strings.Join(ids, ","))
	}
	if filter.ClientID != nil {
		query.Set("client_id", strconv.FormatInt(*filter.ClientID, 10))
	}
	if filter.From != nil {
		query.Set("from", filter.From.String())
	}
	if filter.To != nil {
		query.Set("to", filter.To.String())
	}

	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/appointments", query, nil, &raw); err != nil {
		return nil, err
	}
	records := make([]models.AppointmentRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := decodeRecord(item)
		if err != nil {
			// kept as an empty record so the merge counts it as malformed
			c.logger.Debug("undecodable appointment", zap.Int("index", i), zap.Error(err))
		}
		records = append(records, rec)
	}
	return records, nil
}

// CreateAppointment stores a new appointment.
func (c *Client) CreateAppointment(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, input, &raw); err != nil {
		return nil, err
	}
	return c.savedAppointment(raw)
}

// UpdateAppointment applies a partial change.
func (c *Client) UpdateAppointment(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, "/appointments/"+strconv.FormatInt(id, 10), nil, patch, &raw); err != nil {
		return nil, err
	}
	return c.savedAppointment(raw)
}

// DeleteAppointment removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) savedAppointment(raw json.RawMessage) (*models.Appointment, error) {
	appt, err := decodeAppointment(raw)
	if err != nil {
		return nil, appErrors.FetchFailed(err, "unexpected appointment payload")
	}
	return appt, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest interface{}) error {
	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return appErrors.FetchFailed(err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()
	c.logger.Debug("agenda request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return appErrors.FetchFailed(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, path, resp.StatusCode, raw)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	data := json.RawMessage(raw)
	if trimmed := bytes.TrimSpace(raw); trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return appErrors.FetchFailed(err, "undecodable response body")
		}
		// bare objects from servers without the envelope are used as is
		if len(env.Data) > 0 {
			data = env.Data
		}
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return appErrors.FetchFailed(err, "undecodable response body")
	}
	return nil
}

func statusError(method, path string, status int, body []byte) error {
	message := http.StatusText(status)
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Message != "" {
		message = env.Error.Message
	}
	cause := fmt.Errorf("%s %s: status %d", method, path, status)

	if status == http.StatusNotFound {
		return appErrors.Wrap(cause, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, message)
	}
	return appErrors.FetchFailed(cause, message)
}
