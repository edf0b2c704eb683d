// Package source abstracts the local calendar store. The live
// implementation shells out to a helper bridge process; the fixture
// implementation serves deterministic data for development and for
// degraded runs when store access is unavailable.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calexport/internal/event"
)

var ErrAccessDenied = errors.New("calendar store access denied")

// CalendarNotFoundError reports configured calendar names the store does
// not have. It may accompany partial results covering the names that do
// exist.
type CalendarNotFoundError struct {
	Names []string
}

func (e *CalendarNotFoundError) Error() string {
	return fmt.Sprintf("calendar not found: %s", strings.Join(e.Names, ", "))
}

// Calendar describes one calendar offered by the store.
type Calendar struct {
	Title  string `json:"title"`
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// DeleteResult reports the outcome of a windowed delete.
type DeleteResult struct {
	Deleted int
	Errors  []string
}

// CreateResult reports the outcome of a bulk create.
type CreateResult struct {
	Created int
	Errors  []string
}

// Source is the capability surface the export engine needs from a
// calendar store.
type Source interface {
	// RequestAccess performs the store's authorization handshake. It
	// blocks until the user answers or ctx expires.
	RequestAccess(ctx context.Context) error

	// ListCalendars returns all calendars in the store.
	ListCalendars(ctx context.Context) ([]Calendar, error)

	// ListEvents returns raw records from the named calendars within
	// [start, end). When some names are unknown it returns the events
	// of the known ones together with a *CalendarNotFoundError.
	ListEvents(ctx context.Context, calendars []string, start, end time.Time) ([]event.Raw, error)

	// DeleteEvents removes all events of one calendar within [start,
	// end). Per-event failures are collected in the result.
	DeleteEvents(ctx context.Context, calendar string, start, end time.Time) (DeleteResult, error)

	// CreateEvents inserts events into one calendar. Per-event
	// failures are collected in the result.
	CreateEvents(ctx context.Context, calendar string, events []event.Event) (CreateResult, error)
}
