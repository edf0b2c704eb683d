package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calexport/internal/db"
	"calexport/internal/event"
	"calexport/internal/source"
)

type fakeSource struct {
	accessErr error
	raws      []event.Raw
	listErr   error

	deleteRes  source.DeleteResult
	deleteErr  error
	createErrs []string
	createErr  error

	deleteCalls int
	createCalls int
	created     []event.Event
}

func (f *fakeSource) RequestAccess(ctx context.Context) error { return f.accessErr }

func (f *fakeSource) ListCalendars(ctx context.Context) ([]source.Calendar, error) {
	return []source.Calendar{{Title: "Work", ID: "cal-1"}}, nil
}

func (f *fakeSource) ListEvents(ctx context.Context, calendars []string, start, end time.Time) ([]event.Raw, error) {
	return f.raws, f.listErr
}

func (f *fakeSource) DeleteEvents(ctx context.Context, calendar string, start, end time.Time) (source.DeleteResult, error) {
	f.deleteCalls++
	return f.deleteRes, f.deleteErr
}

func (f *fakeSource) CreateEvents(ctx context.Context, calendar string, events []event.Event) (source.CreateResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return source.CreateResult{}, f.createErr
	}
	f.created = append(f.created, events...)
	return source.CreateResult{Created: len(events), Errors: f.createErrs}, nil
}

type fakeSink struct {
	err   error
	data  []byte
	path  string
	calls int
}

func (s *fakeSink) Send(ctx context.Context, data []byte, remotePath string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.data = data
	s.path = remotePath
	return nil
}

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		CalendarNames:    []string{"Work", "Personal"},
		DaysAhead:        2,
		DaysBehind:       1,
		OutputFile:       filepath.Join(t.TempDir(), "export.ics"),
		OutputName:       "Exported Calendar",
		IncludeDetails:   true,
		TitleLengthLimit: 36,
		TimezoneID:       "Europe/Berlin",
		AuthTimeout:      time.Second,
	}
}

func testRaws() []event.Raw {
	return []event.Raw{
		{
			EventID:      "event-1",
			CalendarName: "Work",
			Title:        "Morning Team Meeting",
			StartDate:    "2025-06-10 09:00:00 +0200",
			EndDate:      "2025-06-10 10:00:00 +0200",
		},
		{
			EventID:      "event-2",
			CalendarName: "Personal",
			Title:        "Lunch Break",
			StartDate:    "2025-06-10 12:00:00 +0200",
			EndDate:      "2025-06-10 13:00:00 +0200",
		},
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestRunUploadsWhenSinkConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.RemotePath = "/calendar/calendar.ics"
	cfg.TargetCalendar = "Mirror"
	src := &fakeSource{raws: testRaws()}
	sink := &fakeSink{}

	engine := NewEngine(cfg, src, WithSink(sink), WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Dispatched != DispatchSFTP {
		t.Errorf("Dispatched = %q, want %q", result.Dispatched, DispatchSFTP)
	}
	if result.ExportedCount != 2 {
		t.Errorf("ExportedCount = %d, want 2", result.ExportedCount)
	}
	if sink.calls != 1 || sink.path != "/calendar/calendar.ics" {
		t.Errorf("sink calls = %d path = %q", sink.calls, sink.path)
	}
	if !strings.Contains(string(sink.data), "BEGIN:VCALENDAR") {
		t.Error("sink did not receive the artifact")
	}
	// Transport wins over the target calendar, with a warning.
	if src.deleteCalls != 0 || src.createCalls != 0 {
		t.Error("reconciliation ran despite transport being enabled")
	}
	if !hasWarning(result.Warnings, "ignored") {
		t.Errorf("missing ignored-target warning: %v", result.Warnings)
	}

	if _, err := os.Stat(cfg.OutputFile); err != nil {
		t.Errorf("artifact file missing: %v", err)
	}
}

func TestRunUploadFailureIsNonFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.RemotePath = "/calendar/calendar.ics"
	src := &fakeSource{raws: testRaws()}
	sink := &fakeSink{err: errors.New("connection refused")}

	engine := NewEngine(cfg, src, WithSink(sink), WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Dispatched != DispatchNone {
		t.Errorf("Dispatched = %q, want %q", result.Dispatched, DispatchNone)
	}
	if !hasWarning(result.Warnings, "upload failed") {
		t.Errorf("missing upload warning: %v", result.Warnings)
	}
	if _, err := os.Stat(cfg.OutputFile); err != nil {
		t.Errorf("artifact file missing after failed upload: %v", err)
	}
}

func TestRunReconciliation(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetCalendar = "Mirror"
	src := &fakeSource{raws: testRaws(), deleteRes: source.DeleteResult{Deleted: 3}}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Dispatched != DispatchCalendar {
		t.Errorf("Dispatched = %q, want %q", result.Dispatched, DispatchCalendar)
	}
	if result.DeletedCount != 3 {
		t.Errorf("DeletedCount = %d, want 3", result.DeletedCount)
	}
	if result.ImportedCount != 2 {
		t.Errorf("ImportedCount = %d, want 2", result.ImportedCount)
	}
	if result.Partial {
		t.Errorf("Partial = true: %v", result.Warnings)
	}
	if len(src.created) != 2 {
		t.Fatalf("created %d events, want 2", len(src.created))
	}
	if src.created[0].Title != "Morning Team Meeting" {
		t.Errorf("created[0].Title = %q", src.created[0].Title)
	}
}

func TestRunReconciliationSkipsImportWhenDeleteIncomplete(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetCalendar = "Mirror"
	src := &fakeSource{
		raws:      testRaws(),
		deleteRes: source.DeleteResult{Deleted: 4, Errors: []string{"event busy-1: store refused"}},
	}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if src.createCalls != 0 {
		t.Error("import ran despite incomplete delete")
	}
	if result.DeletedCount != 4 {
		t.Errorf("DeletedCount = %d, want 4", result.DeletedCount)
	}
	if result.ImportedCount != 0 {
		t.Errorf("ImportedCount = %d, want 0", result.ImportedCount)
	}
	if !result.Partial {
		t.Error("Partial = false, want true")
	}
}

func TestRunReconciliationImportErrorsMarkPartial(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetCalendar = "Mirror"
	src := &fakeSource{
		raws:       testRaws(),
		deleteRes:  source.DeleteResult{Deleted: 2},
		createErrs: []string{"event event-2: store refused"},
	}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !result.Partial {
		t.Error("Partial = false, want true")
	}
	if !hasWarning(result.Warnings, "store refused") {
		t.Errorf("missing import warning: %v", result.Warnings)
	}
}

func TestRunAccessDeniedWithoutFallbackIsFatal(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{accessErr: source.ErrAccessDenied}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	_, err := engine.Run(context.Background())
	if !errors.Is(err, ErrAccessFailed) {
		t.Errorf("err = %v, want ErrAccessFailed", err)
	}
}

func TestRunAccessDeniedFallsBackToFixture(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{accessErr: source.ErrAccessDenied}
	fallback := &fakeSource{raws: testRaws()}

	engine := NewEngine(cfg, src, WithFallback(fallback), WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.ExportedCount != 2 {
		t.Errorf("ExportedCount = %d, want 2", result.ExportedCount)
	}
	if !hasWarning(result.Warnings, "fixture") {
		t.Errorf("missing fallback warning: %v", result.Warnings)
	}
}

func TestRunMissingCalendarIsPerCalendar(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{
		raws:    testRaws()[:1],
		listErr: &source.CalendarNotFoundError{Names: []string{"Personal"}},
	}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.ExportedCount != 1 {
		t.Errorf("ExportedCount = %d, want 1", result.ExportedCount)
	}
	if !hasWarning(result.Warnings, `"Personal" not found`) {
		t.Errorf("missing not-found warning: %v", result.Warnings)
	}
}

func TestRunAllCalendarsMissingIsFatal(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{
		listErr: &source.CalendarNotFoundError{Names: []string{"Work", "Personal"}},
	}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	_, err := engine.Run(context.Background())
	if !errors.Is(err, ErrNoCalendars) {
		t.Errorf("err = %v, want ErrNoCalendars", err)
	}
}

func TestRunWithoutDispatchTargetWarns(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{raws: testRaws()}

	engine := NewEngine(cfg, src, WithClock(testClock()))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Dispatched != DispatchNone {
		t.Errorf("Dispatched = %q, want %q", result.Dispatched, DispatchNone)
	}
	if !hasWarning(result.Warnings, "no dispatch target") {
		t.Errorf("missing no-dispatch warning: %v", result.Warnings)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetCalendar = "Mirror"
	src := &fakeSource{
		raws:      testRaws(),
		deleteRes: source.DeleteResult{Deleted: 1, Errors: []string{"event stuck-1: store refused"}},
	}

	history, err := db.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer history.Close()

	engine := NewEngine(cfg, src, WithHistory(history), WithClock(testClock()))
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := history.RecentRunLogs(10)
	if err != nil {
		t.Fatalf("RecentRunLogs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entries))
	}
	if entries[0].Status != db.RunStatusPartial {
		t.Errorf("Status = %q, want %q", entries[0].Status, db.RunStatusPartial)
	}
	if entries[0].ExportedCount != 2 || entries[0].DeletedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", entries[0].ExportedCount, entries[0].DeletedCount)
	}
}
