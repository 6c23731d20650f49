// Package client talks to the notes API over HTTP. Client satisfies the
// repository and enricher collaborators of a session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second

	messageGateLocked = "access gate locked"
	maxErrorBodyBytes = 64 << 10
)

var errMissingBaseURL = errors.New("client: base url required")

// Config describes the API endpoint. Transport defaults to http.DefaultTransport.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client is a notes API client. The gate session cookie obtained by Unlock is
// kept for the lifetime of the client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	rawURL := strings.TrimSpace(cfg.BaseURL)
	if rawURL == "" {
		return nil, errMissingBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", rawURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("client: cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
			Jar:       jar,
		},
		logger: logger,
	}, nil
}

type noteRequest struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags"`
	Summary *string  `json:"summary"`
}

func newNoteRequest(fields notes.Fields) noteRequest {
	return noteRequest{Title: fields.Title, Body: fields.Body, Tags: fields.Tags, Summary: fields.Summary}
}

// wireNote mirrors the API representation. Timestamps stay raw so malformed
// values can be decoded leniently.
type wireNote struct {
	ID        notes.NoteID `json:"id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Tags      []string     `json:"tags"`
	Summary   *string      `json:"summary"`
	CreatedAt string       `json:"createdAt"`
	UpdatedAt string       `json:"updatedAt"`
}

func (w wireNote) note() notes.Note {
	return notes.Note{
		ID:        w.ID,
		Title:     w.Title,
		Body:      w.Body,
		Tags:      w.Tags,
		Summary:   w.Summary,
		CreatedAt: parseTimestamp(w.CreatedAt),
		UpdatedAt: parseTimestamp(w.UpdatedAt),
	}
}

// parseTimestamp returns the zero time for values it cannot read.
func parseTimestamp(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return parsed
	}
	if parsed, err := time.Parse("2006-01-02T15:04:05.000Z", trimmed); err == nil {
		return parsed
	}
	return time.Time{}
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type generateResponse struct {
	Success bool       `json:"success"`
	Data    ai.Content `json:"data"`
}

// List returns the stored notes, most recently updated first.
func (c *Client) List(ctx context.Context) ([]notes.Note, error) {
	var wire []wireNote
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &wire); err != nil {
		return nil, err
	}
	collection := make([]notes.Note, 0, len(wire))
	for _, item := range wire {
		collection = append(collection, item.note())
	}
	return collection, nil
}

// Create stores a new note.
func (c *Client) Create(ctx context.Context, fields notes.Fields) (notes.Note, error) {
	var wire wireNote
	if err := c.do(ctx, http.MethodPost, "/api/notes", newNoteRequest(fields), &wire); err != nil {
		return notes.Note{}, err
	}
	return wire.note(), nil
}

// Update replaces the content of a stored note.
func (c *Client) Update(ctx context.Context, id notes.NoteID, fields notes.Fields) (notes.Note, error) {
	var wire wireNote
	if err := c.do(ctx, http.MethodPut, notePath(id), newNoteRequest(fields), &wire); err != nil {
		return notes.Note{}, err
	}
	return wire.note(), nil
}

// Delete removes a stored note.
func (c *Client) Delete(ctx context.Context, id notes.NoteID) error {
	return c.do(ctx, http.MethodDelete, notePath(id), nil, nil)
}

// Generate asks the API for AI tags and a summary.
func (c *Client) Generate(ctx context.Context, title, body string) (ai.Content, error) {
	var response generateResponse
	payload := map[string]string{"title": title, "body": body}
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate-content", payload, &response); err != nil {
		return ai.Content{}, err
	}
	if !response.Success {
		return ai.Content{}, errs.New(errs.InvalidResponse, "generation reply was not successful")
	}
	return response.Data, nil
}

// Unlock submits the gate answer. On success the session cookie is kept for
// later requests.
func (c *Client) Unlock(ctx context.Context, answer string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/validate-gate", map[string]string{"answer": answer}, nil)
}

func notePath(id notes.NoteID) string {
	return "/api/notes/" + id.String()
}

func (c *Client) do(ctx context.Context, method, path string, payload any, target any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return errs.Wrap(errs.InvalidRequest, "failed to encode request", err)
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return errs.Wrap(errs.InvalidRequest, "failed to build request", err)
	}
	request.Header.Set("Accept", "application/json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Debug("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return errs.Wrap(errs.Connection, "could not reach the notes service", err)
	}
	defer response.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", response.StatusCode),
	)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return c.statusError(response, method, path)
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return errs.Wrap(errs.InvalidResponse, "failed to decode response", err)
	}
	return nil
}

// statusError classifies a failed response. A known kind reported by the
// server wins over the status mapping.
func (c *Client) statusError(response *http.Response, method, path string) error {
	var payload errorResponse
	raw, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
	if err != nil {
		c.logger.Debug("failed to read error body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", response.StatusCode),
			zap.Error(err),
		)
	} else if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.logger.Debug("malformed error body",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", response.StatusCode),
				zap.Error(err),
			)
		}
	}

	kind := errs.KindForStatus(response.StatusCode)
	if reported, ok := errs.ParseKind(strings.TrimSpace(payload.Error)); ok && reported != errs.Unknown {
		kind = reported
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		switch response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			message = messageGateLocked
		default:
			message = strings.ToLower(http.StatusText(response.StatusCode))
		}
	}

	cause := fmt.Errorf("status %d", response.StatusCode)
	if payload.Code != "" {
		cause = fmt.Errorf("status %d (%s)", response.StatusCode, payload.Code)
	}
	return errs.Wrap(kind, message, cause)
}
