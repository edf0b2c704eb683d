package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"calexport/internal/event"
)

// writeStubBridge materializes a shell script standing in for the
// helper binary.
func writeStubBridge(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub bridge scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "bridge.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestBridgeRequestAccess(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "granted",
			body: `echo '{"ok":true}'`,
		},
		{
			name:    "denied",
			body:    `echo '{"ok":false,"error":"user declined"}'`,
			wantErr: ErrAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := NewBridge(writeStubBridge(t, tt.body), time.Second)
			err := bridge.RequestAccess(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("RequestAccess: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBridgeListEventsWithMissingCalendars(t *testing.T) {
	body := `echo '{"ok":true,"events":[{"event_id":"e1","calendar_name":"Work","title":"Standup","start_date":"2025-06-10 09:00:00 +0200","end_date":"2025-06-10 09:15:00 +0200"}],"missing":["Ghost"]}'`
	bridge := NewBridge(writeStubBridge(t, body), time.Second)

	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	events, err := bridge.ListEvents(context.Background(), []string{"Work", "Ghost"}, start, start.AddDate(0, 0, 7))

	var notFound *CalendarNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want CalendarNotFoundError", err)
	}
	if len(notFound.Names) != 1 || notFound.Names[0] != "Ghost" {
		t.Errorf("Names = %v, want [Ghost]", notFound.Names)
	}
	if len(events) != 1 || events[0].EventID != "e1" {
		t.Errorf("events = %+v, want the Work event", events)
	}
}

func TestBridgeCreateEventsSendsPayload(t *testing.T) {
	// The stub counts the events it receives on stdin.
	body := `n=$(cat | tr ',' '\n' | grep -c '"id"'); echo "{\"ok\":true,\"created\":$n}"`
	bridge := NewBridge(writeStubBridge(t, body), time.Second)

	res, err := bridge.CreateEvents(context.Background(), "Mirror", []event.Event{
		{ID: "a", Title: "One", Start: time.Now(), End: time.Now()},
		{ID: "b", Title: "Two", Start: time.Now(), End: time.Now()},
	})
	if err != nil {
		t.Fatalf("CreateEvents: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("Created = %d, want 2", res.Created)
	}
}

func TestBridgeMissingBinary(t *testing.T) {
	bridge := NewBridge(filepath.Join(t.TempDir(), "does-not-exist"), time.Second)

	_, err := bridge.ListCalendars(context.Background())
	if !errors.Is(err, ErrBridgeFailed) {
		t.Errorf("err = %v, want ErrBridgeFailed", err)
	}
}

func TestBridgeMalformedResponse(t *testing.T) {
	bridge := NewBridge(writeStubBridge(t, `echo 'not json'`), time.Second)

	_, err := bridge.ListCalendars(context.Background())
	if !errors.Is(err, ErrBridgeFailed) {
		t.Errorf("err = %v, want ErrBridgeFailed", err)
	}
}
