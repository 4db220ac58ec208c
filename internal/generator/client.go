// Package generator is the client side of the generation service: it builds
// the wire request for a slot and posts it.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "http://127.0.0.1:4100/generate"
	DefaultTimeout  = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation service returned HTTP %d", e.Code)
}

// MalformedError is returned when the service answered but the body is not
// a usable candidate list.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed generation response: " + e.Reason
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Client posts generation requests to the service.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for endpoint. A zero timeout uses DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithToken sets a bearer token sent with every request.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// Generate posts req and returns at most CandidateCount non-empty
// candidates. It never returns an empty slice without an error.
func (c *Client) Generate(ctx context.Context, req Request) ([]WireCandidate, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	return ParseResponse(data)
}

// ParseResponse decodes a service response body.
func ParseResponse(data []byte) ([]WireCandidate, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &MalformedError{Reason: "invalid JSON"}
	}
	if !r.Success {
		reason := r.Error
		if reason == "" {
			reason = "未知错误"
		}
		return nil, &MalformedError{Reason: reason}
	}

	out := make([]WireCandidate, 0, CandidateCount)
	for _, wc := range r.Candidates {
		if strings.TrimSpace(wc.Text) == "" {
			continue
		}
		out = append(out, wc)
		if len(out) == CandidateCount {
			break
		}
	}
	if len(out) == 0 {
		return nil, &MalformedError{Reason: "no candidates"}
	}
	return out, nil
}
