package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const selfEndpoint = "/users/@me"

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPService implements Service against the chat backend REST API.
type HTTPService struct {
	base   *url.URL
	client HTTPClient
}

// NewHTTPService constructs a Service rooted at baseURL.
func NewHTTPService(baseURL string, client HTTPClient) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("account: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("account: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{base: parsed, client: client}, nil
}

type userStatus struct {
	Text     string   `json:"text,omitempty"`
	Presence Presence `json:"presence,omitempty"`
}

type userAvatar struct {
	URL string `json:"url,omitempty"`
}

type userPayload struct {
	ID            string      `json:"_id"`
	Username      string      `json:"username"`
	Discriminator string      `json:"discriminator"`
	Avatar        *userAvatar `json:"avatar,omitempty"`
	Status        *userStatus `json:"status,omitempty"`
}

func (p userPayload) summary() *Summary {
	s := &Summary{
		UserID:        p.ID,
		Username:      p.Username,
		Discriminator: p.Discriminator,
		Presence:      PresenceOnline,
	}
	if p.Avatar != nil {
		s.AvatarURL = p.Avatar.URL
	}
	if p.Status != nil {
		s.StatusText = p.Status.Text
		if p.Status.Presence != "" {
			s.Presence = p.Status.Presence
		}
	}
	return s
}

type editRequest struct {
	Status *userStatus `json:"status,omitempty"`
	Remove []string    `json:"remove,omitempty"`
}

// Summary fetches the caller's user record.
func (s *HTTPService) Summary(ctx context.Context, token string) (*Summary, error) {
	req, err := s.newRequest(ctx, http.MethodGet, selfEndpoint, nil, token)
	if err != nil {
		return nil, err
	}
	return s.decodeUser(req)
}

// SetStatusText sanitizes text and patches the user's status. Empty text clears it.
func (s *HTTPService) SetStatusText(ctx context.Context, token, text string) (*Summary, error) {
	cleaned := SanitizeStatusText(text)
	if cleaned == "" {
		return s.ClearStatusText(ctx, token)
	}
	return s.edit(ctx, token, editRequest{Status: &userStatus{Text: cleaned}})
}

// ClearStatusText removes the status text field.
func (s *HTTPService) ClearStatusText(ctx context.Context, token string) (*Summary, error) {
	return s.edit(ctx, token, editRequest{Remove: []string{"StatusText"}})
}

// SetPresence patches the user's presence.
func (s *HTTPService) SetPresence(ctx context.Context, token string, presence Presence) (*Summary, error) {
	if _, err := ParsePresence(string(presence)); err != nil {
		return nil, err
	}
	return s.edit(ctx, token, editRequest{Status: &userStatus{Presence: presence}})
}

func (s *HTTPService) edit(ctx context.Context, token string, body editRequest) (*Summary, error) {
	req, err := s.newJSONRequest(ctx, http.MethodPatch, selfEndpoint, body, token)
	if err != nil {
		return nil, err
	}
	return s.decodeUser(req)
}

func (s *HTTPService) decodeUser(req *http.Request) (*Summary, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.errorFromResponse(resp)
	}

	var payload userPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("account: decode user: %w", err)
	}
	return payload.summary(), nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("account: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (s *HTTPService) newJSONRequest(ctx context.Context, method, endpoint string, payload any, token string) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("account: encode payload: %w", err)
	}
	req, err := s.newRequest(ctx, method, endpoint, &buf, token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *HTTPService) resolve(endpoint string) string {
	ref := &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	return s.base.ResolveReference(ref).String()
}

// APIError describes a non-2xx backend response.
type APIError struct {
	Status  int
	Type    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	detail := e.Type
	if detail == "" {
		detail = e.Message
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("account: backend error (%d): %s", e.Status, detail)
}

// Unwrap maps 401 responses onto ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func (s *HTTPService) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Type string `json:"type"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Type != "" {
			apiErr.Type = payload.Type
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	return apiErr
}
