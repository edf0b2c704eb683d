// Package export orchestrates a single run: resolve the window, read
// and normalize events, encode the artifact, then hand it to exactly
// one dispatch target.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"calexport/internal/db"
	"calexport/internal/event"
	"calexport/internal/ics"
	"calexport/internal/source"
)

var (
	ErrAccessFailed  = errors.New("calendar store authorization failed")
	ErrNoCalendars   = errors.New("none of the configured calendars exist")
	ErrArtifactWrite = errors.New("failed to write artifact")
	ErrListFailed    = errors.New("failed to read events")
	ErrInvalidWindow = errors.New("invalid export window")
)

// Dispatch targets reported in RunResult.
const (
	DispatchSFTP     = "sftp"
	DispatchCalendar = "calendar"
	DispatchNone     = "none"
)

// Config carries the per-run settings the engine needs.
type Config struct {
	CalendarNames    []string
	DaysAhead        int
	DaysBehind       int
	OutputFile       string
	OutputName       string
	IncludeDetails   bool
	TitleLengthLimit int
	TimezoneID       string
	AuthTimeout      time.Duration
	TargetCalendar   string
	RemotePath       string
}

// Sink delivers the finished artifact to a remote destination.
type Sink interface {
	Send(ctx context.Context, data []byte, remotePath string) error
}

// RunResult summarizes one run. Warnings collect every non-fatal
// problem; Partial marks a run whose reconciliation did not complete.
type RunResult struct {
	Window        Window
	ExportedCount int
	DeletedCount  int
	ImportedCount int
	Warnings      []string
	ArtifactPath  string
	Dispatched    string
	Partial       bool
}

func (r *RunResult) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	log.Printf("warning: %s", msg)
}

// Engine runs the export pipeline. It is single-use per process; there
// is no protection against concurrent runs over the same artifact.
type Engine struct {
	cfg      Config
	src      source.Source
	fallback source.Source
	sink     Sink
	history  *db.DB
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithFallback installs a degraded-mode source used when authorization
// against the primary source fails.
func WithFallback(s source.Source) Option {
	return func(e *Engine) { e.fallback = s }
}

// WithSink installs the remote transport. A configured sink takes
// priority over target-calendar reconciliation.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithHistory installs the run-history store.
func WithHistory(d *db.DB) Option {
	return func(e *Engine) { e.history = d }
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given source.
func NewEngine(cfg Config, src source.Source, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg,
		src: src,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one export. The returned RunResult is meaningful even
// when err is non-nil.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	started := e.now()
	var result RunResult
	err := e.run(ctx, &result)
	e.recordHistory(&result, err, e.now().Sub(started))
	return result, err
}

func (e *Engine) run(ctx context.Context, result *RunResult) error {
	loc, err := time.LoadLocation(e.cfg.TimezoneID)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %w", ErrInvalidWindow, e.cfg.TimezoneID, err)
	}

	result.Window = ResolveWindow(e.now(), e.cfg.DaysBehind, e.cfg.DaysAhead, loc)
	if !result.Window.Start.Before(result.Window.End) {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidWindow, result.Window.Start, result.Window.End)
	}
	log.Printf("export window [%s, %s)",
		result.Window.Start.Format("2006-01-02"), result.Window.End.Format("2006-01-02"))

	src, err := e.authorize(ctx, result)
	if err != nil {
		return err
	}

	raws, err := e.listEvents(ctx, src, result)
	if err != nil {
		return err
	}

	events, warnings := event.Normalize(raws, event.Options{
		IncludeDetails:   e.cfg.IncludeDetails,
		TitleLengthLimit: e.cfg.TitleLengthLimit,
		Location:         loc,
	})
	result.Warnings = append(result.Warnings, warnings...)
	result.ExportedCount = len(events)
	log.Printf("normalized %d events (%d skipped)", len(events), len(warnings))

	artifact, err := ics.Encode(events, e.cfg.OutputName, e.cfg.TimezoneID)
	if err != nil {
		return err
	}

	if err := e.writeArtifact(artifact); err != nil {
		return err
	}
	result.ArtifactPath = e.cfg.OutputFile

	e.dispatch(ctx, src, artifact, loc, result)
	return nil
}

// authorize performs the blocking access handshake, switching to the
// fallback source when one is configured and the primary store refuses.
func (e *Engine) authorize(ctx context.Context, result *RunResult) (source.Source, error) {
	authCtx := ctx
	if e.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, e.cfg.AuthTimeout)
		defer cancel()
	}

	err := e.src.RequestAccess(authCtx)
	if err == nil {
		return e.src, nil
	}
	if e.fallback != nil {
		result.warnf("calendar access unavailable (%v); continuing with fixture data", err)
		return e.fallback, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrAccessFailed, err)
}

func (e *Engine) listEvents(ctx context.Context, src source.Source, result *RunResult) ([]event.Raw, error) {
	raws, err := src.ListEvents(ctx, e.cfg.CalendarNames, result.Window.Start, result.Window.End)
	if err != nil {
		var notFound *source.CalendarNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
		}
		if len(notFound.Names) >= len(e.cfg.CalendarNames) {
			return nil, fmt.Errorf("%w: %w", ErrNoCalendars, notFound)
		}
		for _, name := range notFound.Names {
			result.warnf("calendar %q not found; skipping", name)
		}
	}
	return raws, nil
}

func (e *Engine) writeArtifact(artifact string) error {
	dir := filepath.Dir(e.cfg.OutputFile)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("%w: %w", ErrArtifactWrite, err)
		}
	}
	if err := os.WriteFile(e.cfg.OutputFile, []byte(artifact), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactWrite, err)
	}
	log.Printf("wrote artifact %s", e.cfg.OutputFile)
	return nil
}

// dispatch hands the artifact to exactly one target: the transport sink
// when configured, otherwise the target calendar, otherwise nothing.
func (e *Engine) dispatch(ctx context.Context, src source.Source, artifact string, loc *time.Location, result *RunResult) {
	result.Dispatched = DispatchNone

	if e.sink != nil {
		if e.cfg.TargetCalendar != "" {
			result.warnf("target calendar %q ignored because transport is enabled", e.cfg.TargetCalendar)
		}
		if err := e.sink.Send(ctx, []byte(artifact), e.cfg.RemotePath); err != nil {
			result.warnf("upload failed: %v (artifact kept at %s)", err, e.cfg.OutputFile)
			return
		}
		result.Dispatched = DispatchSFTP
		log.Printf("uploaded artifact to %s", e.cfg.RemotePath)
		return
	}

	if e.cfg.TargetCalendar != "" {
		e.reconcile(ctx, src, artifact, loc, result)
		return
	}

	result.warnf("no dispatch target configured; artifact written only")
}

// reconcile replaces the target calendar's window with the artifact's
// events. Creation is skipped unless the delete phase fully succeeds.
func (e *Engine) reconcile(ctx context.Context, src source.Source, artifact string, loc *time.Location, result *RunResult) {
	target := e.cfg.TargetCalendar

	del, err := src.DeleteEvents(ctx, target, result.Window.Start, result.Window.End)
	result.DeletedCount = del.Deleted
	if err != nil {
		result.warnf("reconciliation: delete in %q failed: %v; skipping import", target, err)
		result.Partial = true
		return
	}
	if len(del.Errors) > 0 {
		for _, msg := range del.Errors {
			result.warnf("reconciliation: delete in %q: %s", target, msg)
		}
		result.warnf("reconciliation: delete incomplete; skipping import")
		result.Partial = true
		return
	}
	log.Printf("deleted %d events from %q", del.Deleted, target)

	events, warnings, err := ics.Decode(artifact, loc)
	result.Warnings = append(result.Warnings, warnings...)
	if err != nil {
		result.warnf("reconciliation: artifact unreadable: %v", err)
		result.Partial = true
		return
	}

	created, err := src.CreateEvents(ctx, target, events)
	result.ImportedCount = created.Created
	if err != nil {
		result.warnf("reconciliation: import into %q failed: %v", target, err)
		result.Partial = true
		return
	}
	if len(created.Errors) > 0 {
		for _, msg := range created.Errors {
			result.warnf("reconciliation: import into %q: %s", target, msg)
		}
		result.Partial = true
	}
	result.Dispatched = DispatchCalendar
	log.Printf("imported %d events into %q", created.Created, target)
}

func (e *Engine) recordHistory(result *RunResult, runErr error, duration time.Duration) {
	if e.history == nil {
		return
	}

	status := db.RunStatusSuccess
	message := "export completed"
	switch {
	case runErr != nil:
		status = db.RunStatusError
		message = runErr.Error()
	case result.Partial:
		status = db.RunStatusPartial
		message = "export completed with incomplete reconciliation"
	case len(result.Warnings) > 0:
		status = db.RunStatusPartial
		message = "export completed with warnings"
	}

	entry := &db.RunLog{
		Status:        status,
		Message:       message,
		ExportedCount: result.ExportedCount,
		DeletedCount:  result.DeletedCount,
		ImportedCount: result.ImportedCount,
		Warnings:      result.Warnings,
		Dispatched:    result.Dispatched,
		Duration:      duration,
	}
	if err := e.history.CreateRunLog(entry); err != nil {
		result.warnf("failed to record run history: %v", err)
	}
}
