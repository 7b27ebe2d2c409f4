// Package backend talks to the MediMind REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"medimind/models"
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is the production implementation used by the reminder pipeline.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FindSchedules returns the schedules due at a local time of day. 204 and
// an empty list both mean nothing is due.
func (c *Client) FindSchedules(ctx context.Context, q models.ScheduleQuery) ([]models.Schedule, error) {
	var out []models.Schedule
	if err := c.do(ctx, http.MethodPost, "/api/schedule/find", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMedications resolves medication ids to medication details.
func (c *Client) ListMedications(ctx context.Context, ids []string) ([]models.Medication, error) {
	var out []models.Medication
	body := models.MedicationIDList{MedicationIDs: ids}
	if err := c.do(ctx, http.MethodPost, "/api/medication/medList", body, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateIntakeLog posts one intake record. The client request id doubles as
// the Idempotency-Key header so a resent attempt is recognised.
func (c *Client) CreateIntakeLog(ctx context.Context, log models.IntakeLog) error {
	headers := map[string]string{"Idempotency-Key": log.ClientRequestID}
	return c.do(ctx, http.MethodPost, "/api/intakeHistory/create", log, headers, nil)
}

// GetDailySchedule returns the patient's recurring daily schedule.
func (c *Client) GetDailySchedule(ctx context.Context, patientID string) ([]models.DailyScheduleItem, error) {
	var out []models.DailyScheduleItem
	path := "/api/schedule/daily/" + url.PathEscape(patientID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend %s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend %s %s: read response: %w", method, path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend %s %s: decode response: %w", method, path, err)
	}
	return nil
}
