/*
Package client talks to the external REST backend that owns the door
ledgers.

PURPOSE:
  The backend is an outside collaborator. This package only knows its
  endpoints and JSON shapes; all validation happens in package doors
  before anything is sent.

ENDPOINTS:
  POST login                          -> token, Emp_No
  GET  tasks?Emp_No=<id>              -> units and installed doors
  POST tasks/details                  <- installation entries
  GET  supplied-doors?Project_ID=<id> -> requirement and supplied totals
  POST supplied-doors                 <- per-door-type supply entries

REQUESTS:
  Every request carries "Authorization: Bearer <token>" from the caller's
  session and a fresh X-Request-ID. The HTTP client has a fixed timeout;
  a timeout is reported like any other backend failure. Nothing is
  retried.

SEE ALSO:
  - remote.go:  doors.Store backed by this client
  - convert.go: wire <-> doors conversions
*/
package client

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

	"github.com/google/uuid"
	"github.com/warp/doorworks/session"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrNoSession    = errors.New("request has no session")
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// New creates a client for the backend at baseURL. A zero timeout uses
// DefaultTimeout.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// SignIn exchanges employee credentials for a backend token.
func (c *Client) SignIn(ctx context.Context, empNo, password string) (string, string, error) {
	var resp loginResponse
	err := c.do(ctx, "", http.MethodPost, "login", nil, loginRequest{EmpNo: empNo, Password: password}, &resp)
	if err != nil {
		return "", "", err
	}
	if resp.Token == "" {
		return "", "", fmt.Errorf("%w: empty token", ErrUnauthorized)
	}
	if resp.EmpNo == "" {
		resp.EmpNo = empNo
	}
	return resp.Token, resp.EmpNo, nil
}

// tasks lists the tasks assigned to an employee.
func (c *Client) tasks(ctx context.Context, s session.Session) ([]taskWire, error) {
	var out []taskWire
	q := url.Values{"Emp_No": {s.EmployeeID}}
	if err := c.do(ctx, s.Token, http.MethodGet, "tasks", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// postInstallations sends installation entries.
func (c *Client) postInstallations(ctx context.Context, s session.Session, entries []installedWire) error {
	return c.do(ctx, s.Token, http.MethodPost, "tasks/details", nil, entries, nil)
}

// suppliedDoors returns requirement and supply rows for a project.
func (c *Client) suppliedDoors(ctx context.Context, s session.Session, projectID string) ([]supplyWire, error) {
	var out []supplyWire
	q := url.Values{"Project_ID": {projectID}}
	if err := c.do(ctx, s.Token, http.MethodGet, "supplied-doors", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// postSupply sends supply entries.
func (c *Client) postSupply(ctx context.Context, s session.Session, entries []supplyEntryWire) error {
	return c.do(ctx, s.Token, http.MethodPost, "supplied-doors", nil, entries, nil)
}

func (c *Client) do(ctx context.Context, token, method, path string, q url.Values, body, out any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", ErrUnauthorized, serr)
		}
		return serr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
