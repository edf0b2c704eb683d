package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"calexport/internal/event"
)

var ErrBridgeFailed = errors.New("calendar bridge call failed")

// DefaultBridgePath is the helper binary looked up on PATH when no
// explicit path is configured.
const DefaultBridgePath = "calexport-bridge"

// DefaultBridgeTimeout bounds every bridge call except the
// authorization handshake, which is governed by the caller's context.
const DefaultBridgeTimeout = 30 * time.Second

// Bridge talks to the live calendar store through a helper process.
// Each call runs the helper once with flag arguments and reads a JSON
// envelope from its stdout.
type Bridge struct {
	path    string
	timeout time.Duration
}

type bridgeResponse struct {
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
	Calendars []Calendar  `json:"calendars,omitempty"`
	Events    []event.Raw `json:"events,omitempty"`
	Missing   []string    `json:"missing,omitempty"`
	Deleted   int         `json:"deleted,omitempty"`
	Created   int         `json:"created,omitempty"`
	Errors    []string    `json:"errors,omitempty"`
}

// NewBridge returns a bridge using the helper at path. Empty path and
// zero timeout select the defaults.
func NewBridge(path string, timeout time.Duration) *Bridge {
	if path == "" {
		path = DefaultBridgePath
	}
	if timeout <= 0 {
		timeout = DefaultBridgeTimeout
	}
	return &Bridge{path: path, timeout: timeout}
}

func (b *Bridge) RequestAccess(ctx context.Context) error {
	// No per-call timeout here: the handshake blocks on a user prompt
	// and the caller's context carries the configured auth deadline.
	resp, err := b.run(ctx, nil, "--request-access")
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%w: %s", ErrAccessDenied, resp.Error)
	}
	return nil
}

func (b *Bridge) ListCalendars(ctx context.Context) ([]Calendar, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.run(ctx, nil, "--calendars")
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%w: %s", ErrBridgeFailed, resp.Error)
	}
	return resp.Calendars, nil
}

func (b *Bridge) ListEvents(ctx context.Context, calendars []string, start, end time.Time) ([]event.Raw, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	args := []string{"--events", "--start", start.Format(time.RFC3339), "--end", end.Format(time.RFC3339)}
	for _, name := range calendars {
		args = append(args, "--calendar", name)
	}

	resp, err := b.run(ctx, nil, args...)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%w: %s", ErrBridgeFailed, resp.Error)
	}
	if len(resp.Missing) > 0 {
		return resp.Events, &CalendarNotFoundError{Names: resp.Missing}
	}
	return resp.Events, nil
}

func (b *Bridge) DeleteEvents(ctx context.Context, calendar string, start, end time.Time) (DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.run(ctx, nil, "--delete",
		"--calendar", calendar,
		"--start", start.Format(time.RFC3339),
		"--end", end.Format(time.RFC3339))
	if err != nil {
		return DeleteResult{}, err
	}
	if !resp.OK {
		if len(resp.Missing) > 0 {
			return DeleteResult{}, &CalendarNotFoundError{Names: resp.Missing}
		}
		return DeleteResult{}, fmt.Errorf("%w: %s", ErrBridgeFailed, resp.Error)
	}
	return DeleteResult{Deleted: resp.Deleted, Errors: resp.Errors}, nil
}

func (b *Bridge) CreateEvents(ctx context.Context, calendar string, events []event.Event) (CreateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload, err := json.Marshal(events)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: encoding events: %w", ErrBridgeFailed, err)
	}

	resp, err := b.run(ctx, payload, "--create", "--calendar", calendar)
	if err != nil {
		return CreateResult{}, err
	}
	if !resp.OK {
		if len(resp.Missing) > 0 {
			return CreateResult{}, &CalendarNotFoundError{Names: resp.Missing}
		}
		return CreateResult{}, fmt.Errorf("%w: %s", ErrBridgeFailed, resp.Error)
	}
	return CreateResult{Created: resp.Created, Errors: resp.Errors}, nil
}

func (b *Bridge) run(ctx context.Context, stdin []byte, args ...string) (*bridgeResponse, error) {
	cmd := exec.CommandContext(ctx, b.path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBridgeFailed, strings.Join(args, " "), ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrBridgeFailed, strings.Join(args, " "), detail)
	}

	var resp bridgeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %w", ErrBridgeFailed, err)
	}
	return &resp, nil
}
