// Package client is the Go client of the focusflow API: a thin HTTP wrapper
// plus the local countdown machinery that keeps a ticking display honest
// against server-computed remaining time.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Session is the client-side projection of a session view. The server is
// authoritative for every field; the client never re-derives them.
type Session struct {
	ID                     string `json:"id"`
	Label                  string `json:"label"`
	State                  string `json:"state"`
	PlannedDurationSeconds int    `json:"plannedDurationSeconds"`
	RemainingSeconds       int    `json:"remainingSeconds"`
	TotalPausedSeconds     int    `json:"totalPausedSeconds"`
	Completed              bool   `json:"completed"`
}

type Break struct {
	Kind            string `json:"kind"`
	DurationSeconds int    `json:"durationSeconds"`
}

type TodayStats struct {
	CompletedCount int `json:"completedCount"`
	FocusedSeconds int `json:"focusedSeconds"`
}

// APIError is the decoded error envelope from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *API) SetToken(token string) {
	a.token = token
}

type authPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authEnvelope struct {
	Token string `json:"token"`
}

func (a *API) Register(email, password string) error {
	var resp authEnvelope
	if err := a.do(http.MethodPost, "/api/auth/register", authPayload{Email: email, Password: password}, &resp); err != nil {
		return err
	}
	a.token = resp.Token
	return nil
}

func (a *API) Login(email, password string) error {
	var resp authEnvelope
	if err := a.do(http.MethodPost, "/api/auth/login", authPayload{Email: email, Password: password}, &resp); err != nil {
		return err
	}
	a.token = resp.Token
	return nil
}

type startPayload struct {
	Label           string `json:"label,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

type sessionEnvelope struct {
	Session Session `json:"session"`
}

func (a *API) Start(label string, durationMinutes int) (*Session, error) {
	var resp sessionEnvelope
	err := a.do(http.MethodPost, "/api/sessions/start", startPayload{Label: label, DurationMinutes: durationMinutes}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (a *API) Pause(id string) (*Session, error) {
	return a.command(id, "pause")
}

func (a *API) Resume(id string) (*Session, error) {
	return a.command(id, "resume")
}

func (a *API) Stop(id string) (*Session, error) {
	return a.command(id, "stop")
}

func (a *API) command(id, verb string) (*Session, error) {
	var resp sessionEnvelope
	err := a.do(http.MethodPost, "/api/sessions/"+id+"/"+verb, struct{}{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (a *API) Active() (*Session, error) {
	var resp sessionEnvelope
	err := a.do(http.MethodGet, "/api/sessions/active", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (a *API) History(limit int) ([]Session, error) {
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	err := a.do(http.MethodGet, fmt.Sprintf("/api/sessions/history?limit=%d", limit), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (a *API) StatsToday() (*TodayStats, error) {
	var resp struct {
		Stats TodayStats `json:"stats"`
	}
	err := a.do(http.MethodGet, "/api/sessions/stats/today", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

func (a *API) NextBreak() (*Break, error) {
	var resp struct {
		Break Break `json:"break"`
	}
	err := a.do(http.MethodGet, "/api/breaks/next", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Break, nil
}

func (a *API) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: "http_error", Message: resp.Status}
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
