// Package client submits RSVPs to the Career Compass API and models the
// client-side submission workflow around it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const rsvpPath = "/api/rsvp"

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// Form holds the values a visitor enters for one RSVP.
type Form struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Branch       string `json:"branch"`
	CustomBranch string `json:"customBranch,omitempty"`
	Questions    string `json:"questions,omitempty"`
	OptIn        bool   `json:"optIn"`
	SpeakerName  string `json:"speakerName"`
	SessionDate  string `json:"sessionDate"`
}

// HasSession reports whether the form targets a speaker session.
func (f Form) HasSession() bool {
	return strings.TrimSpace(f.SpeakerName) != "" && strings.TrimSpace(f.SessionDate) != ""
}

// Validate runs the local required-field checks and returns field messages,
// or nil when the form may be submitted.
func (f Form) Validate() map[string]string {
	errs := make(map[string]string)
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs[field] = field + " is required"
		}
	}

	require("name", f.Name)
	require("email", f.Email)
	if email := strings.TrimSpace(f.Email); email != "" && !strings.Contains(email, "@") {
		errs["email"] = "email must be a valid address"
	}
	require("branch", f.Branch)
	if isCustomBranch(f.Branch) && strings.TrimSpace(f.CustomBranch) == "" {
		errs["customBranch"] = "please specify your branch"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func isCustomBranch(branch string) bool {
	branch = strings.TrimSpace(branch)
	return strings.EqualFold(branch, "custom") || strings.EqualFold(branch, "other")
}

// SubmitError describes a failed submission. Status is zero for transport
// failures.
type SubmitError struct {
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *SubmitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status == 0 {
		return fmt.Sprintf("rsvp submission failed: %s", e.Message)
	}
	return fmt.Sprintf("rsvp submission failed (%d): %s", e.Status, e.Message)
}

func (e *SubmitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Submitter sends one form and returns the stored id.
type Submitter interface {
	SubmitRSVP(ctx context.Context, form Form) (int64, error)
}

// Client calls the RSVP endpoint over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ Submitter = (*Client)(nil)

// New creates a client for the API rooted at baseURL. A nil client uses
// http.DefaultClient.
func New(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type envelope struct {
	Success bool              `json:"success"`
	ID      int64             `json:"id"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

// SubmitRSVP posts form to /api/rsvp. Every failure is a *SubmitError.
func (c *Client) SubmitRSVP(ctx context.Context, form Form) (int64, error) {
	payload, err := json.Marshal(form)
	if err != nil {
		return 0, &SubmitError{Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rsvpPath, bytes.NewReader(payload))
	if err != nil {
		return 0, &SubmitError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &SubmitError{Message: "could not reach the RSVP service", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return 0, &SubmitError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(env.Error)
		if decodeErr != nil || msg == "" {
			msg = resp.Status
		}
		return 0, &SubmitError{Status: resp.StatusCode, Message: msg, Fields: env.Errors}
	}
	if decodeErr != nil {
		return 0, &SubmitError{Status: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "submission was not accepted"
		}
		return 0, &SubmitError{Status: resp.StatusCode, Message: msg, Fields: env.Errors}
	}
	return env.ID, nil
}
