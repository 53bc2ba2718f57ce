package careapi

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
	"time"

	"github.com/carenest/patient-portal/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// ErrUnauthorized is returned when the care API rejects the bearer token.
var ErrUnauthorized = errors.New("careapi: unauthorized")

// APIError describes a non-2xx response.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("careapi: %s returned %d: %s", e.Path, e.Status, e.Body)
}

// Client wraps the REST endpoints of the care API used by the portal.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
}

// NewClient constructs a care API client.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		panic("careapi: base url required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", creds, &session); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if session.Token == "" {
		return nil, fmt.Errorf("login: empty token in response")
	}
	return &session, nil
}

// ListDoctors lists every doctor known to the care API.
func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var wrapped struct {
		Doctors []Doctor `json:"doctors"`
		Data    []Doctor `json:"data"`
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/doctors", nil)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if isJSONArray(raw) {
		var doctors []Doctor
		if err := json.Unmarshal(raw, &doctors); err != nil {
			return nil, fmt.Errorf("list doctors: decode response: %w", err)
		}
		return doctors, nil
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("list doctors: decode response: %w", err)
	}
	if len(wrapped.Doctors) > 0 {
		return wrapped.Doctors, nil
	}
	return wrapped.Data, nil
}

// GetAvailableSlots returns the bookable time labels for a doctor on a day.
// date is a calendar day formatted YYYY-MM-DD.
func (c *Client) GetAvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	q := url.Values{}
	q.Set("date", date)
	path := fmt.Sprintf("/calendar/doctors/%s/slots?%s", url.PathEscape(doctorID), q.Encode())

	var wrapped struct {
		Slots []string `json:"slots"`
		Data  []string `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wrapped); err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}
	if len(wrapped.Slots) > 0 {
		return wrapped.Slots, nil
	}
	return wrapped.Data, nil
}

// CreateAppointment books an appointment for the authenticated patient.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	var wrapped struct {
		Appointment
		Data *Appointment `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/appointments", req, &wrapped); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	appt := wrapped.Appointment
	return &appt, nil
}

// ListAppointments lists the authenticated patient's appointments. The payload
// is decoded record by record: a non-array payload yields an empty list and
// records that fail to decode are skipped, both with a warning.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/appointments", nil)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	records := extractRecords(raw, "appointments", "data")
	if records == nil {
		c.logger.Warn("careapi: appointments payload is not a list", "body", truncate(string(raw), 200))
		return []Appointment{}, nil
	}

	out := make([]Appointment, 0, len(records))
	for i, rec := range records {
		var appt Appointment
		if err := json.Unmarshal(rec, &appt); err != nil {
			c.logger.Warn("careapi: skipping malformed appointment", "index", i, "error", err)
			continue
		}
		out = append(out, appt)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	raw, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if len(raw) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := truncate(string(respBody), 300)
		c.logger.Warn("care API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return nil, &APIError{Status: resp.StatusCode, Path: path, Body: msg}
	}
	return respBody, nil
}

// extractRecords returns the elements of a top-level array or of the first
// array found under one of keys. nil means no list was found.
func extractRecords(raw []byte, keys ...string) []json.RawMessage {
	if isJSONArray(raw) {
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil
		}
		return records
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	for _, key := range keys {
		inner, ok := envelope[key]
		if !ok || !isJSONArray(inner) {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(inner, &records); err == nil {
			return records
		}
	}
	return nil
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
