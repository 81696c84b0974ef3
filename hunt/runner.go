package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"imgur-archive-hunter/archive"
	"imgur-archive-hunter/mirror"
	"imgur-archive-hunter/tr"
)

var tracer = otel.Tracer("hunt")

var (
	// ErrBusy is returned by Start and RetryFailed while a run is live.
	ErrBusy = errors.New("a batch run is already in progress")
	// ErrNothingToRetry means the previous run left no failed items.
	ErrNothingToRetry = errors.New("no failed items to retry")
)

// Options tune one batch run.
type Options struct {
	// BestQuality probes video and animated extensions before static
	// images.
	BestQuality bool
	// Mirror, when set, receives a copy of every successfully saved
	// file. Upload failures are logged, never fatal.
	Mirror mirror.Destination
}

type session struct {
	items       []*Item // every batch item, preserved across retry passes
	work        []*Item // the subset this pass processes
	destDir     string
	opts        Options
	ctx         context.Context
	cancel      context.CancelFunc
	startTime   time.Time
	lastSuccess string
}

// Runner drives items through resolve and save, strictly one at a
// time, on a single background goroutine. All communication with the
// consumer goes through the Events channel: sends block rather than
// drop, so the stream is ordered and lossless as long as the consumer
// keeps draining.
type Runner struct {
	resolver *archive.Resolver
	writer   *archive.Writer
	events   chan Event

	mu      sync.Mutex
	state   string
	session *session
}

// New wires a runner around the given resolver and writer. When the
// resolver has no log sink of its own, its probe log lines are routed
// into the event stream.
func New(resolver *archive.Resolver, writer *archive.Writer) *Runner {
	r := &Runner{
		resolver: resolver,
		writer:   writer,
		events:   make(chan Event, 16),
		state:    StateIdle,
	}
	if resolver.Log == nil {
		resolver.Log = func(msg string) {
			r.emit(Event{Kind: EventLog, Message: msg})
		}
	}
	return r
}

// Events returns the runner's event stream. One consumer is expected
// to drain it for the life of the runner. The busy state is released
// before the Finished event is emitted, so gating the next Start or
// RetryFailed on receiving Finished never observes ErrBusy; calling
// them from elsewhere before Finished arrives may interleave the new
// run's events ahead of it.
func (r *Runner) Events() <-chan Event {
	return r.events
}

func (r *Runner) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Items returns a snapshot of every item in the current batch. Items a
// retry pass did not pick up keep the status their last pass left them
// with, so failure accounting over the snapshot stays correct.
func (r *Runner) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	out := make([]Item, len(r.session.items))
	for i, it := range r.session.items {
		out[i] = *it
	}
	return out
}

// MostRecentSuccess returns the path of the latest successfully saved
// file, across retry sub-runs of the session.
func (r *Runner) MostRecentSuccess() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.lastSuccess
}

// HasRetryable reports whether the last run left items that RetryFailed
// would pick up.
func (r *Runner) HasRetryable() bool {
	for _, it := range r.Items() {
		if it.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Start begins a new batch run over urls, saving into destDir. It
// rejects with ErrBusy while a run is live; any previous session is
// replaced. Safe to call as soon as the previous run's Finished event
// has been received.
func (r *Runner) Start(urls []string, destDir string, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRunning || r.state == StateCancelling {
		return ErrBusy
	}
	if len(urls) == 0 {
		return errors.New("no items to process")
	}

	items := make([]*Item, 0, len(urls))
	for _, u := range urls {
		items = append(items, &Item{
			ID:        uuid.NewString(),
			SourceURL: u,
			Status:    StatusQueued,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.session = &session{
		items:     items,
		work:      items,
		destDir:   destDir,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	r.state = StateRunning
	go r.run(r.session)
	return nil
}

// RetryFailed re-runs only the items of the previous session whose
// status is failed, resetting them to queued first. Successes and
// invalid URLs keep their state.
func (r *Runner) RetryFailed() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRunning || r.state == StateCancelling {
		return ErrBusy
	}
	if r.session == nil {
		return errors.New("no previous run to retry")
	}

	prev := r.session
	retry := make([]*Item, 0)
	for _, it := range prev.items {
		if it.Status != StatusFailed {
			continue
		}
		if err := transition(it, StatusQueued, ""); err != nil {
			return err
		}
		it.ResultPath = ""
		retry = append(retry, it)
	}
	if len(retry) == 0 {
		return ErrNothingToRetry
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.session = &session{
		items:       prev.items,
		work:        retry,
		destDir:     prev.destDir,
		opts:        prev.opts,
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
		lastSuccess: prev.lastSuccess,
	}
	r.state = StateRunning
	go r.run(r.session)
	return nil
}

// Cancel raises the shared cancellation signal. The in-flight item is
// allowed to reach its next checkpoint; worst-case latency is one
// network-call timeout, not instantaneous.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return
	}
	r.state = StateCancelling
	r.session.cancel()
}

func (r *Runner) run(s *session) {
	ctx, span := tracer.Start(s.ctx, "batch_run")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(s.work)))

	total := len(s.work)
	r.emit(Event{Kind: EventLog, Message: "Starting job..."})

	for i, it := range s.work {
		if ctx.Err() != nil {
			break
		}
		r.process(ctx, s, it)
		r.emit(Event{Kind: EventProgress, Value: i + 1, Total: total})
	}

	r.mu.Lock()
	state := StateDone
	if s.ctx.Err() != nil {
		state = StateIdle
	}
	r.state = state
	r.mu.Unlock()

	r.emit(Event{Kind: EventFinished, State: state})
}

func (r *Runner) process(ctx context.Context, s *session, it *Item) {
	ctx, span := tracer.Start(ctx, "process_item")
	var err error
	defer tr.End(span, &err)

	r.setStatus(it, StatusSearching, "")

	id, ok := archive.ExtractID(it.SourceURL)
	if !ok {
		r.setStatus(it, StatusInvalidURL, "no imgur id in url")
		return
	}
	span.SetAttributes(attribute.String("imgur_id", id))

	mode := archive.QuickScan
	if s.opts.BestQuality {
		mode = archive.BestQuality
	}

	snap, err := r.resolver.Resolve(ctx, id, archive.Extensions(mode))
	if err != nil {
		r.setStatus(it, StatusFailed, failReason(err))
		return
	}

	// A write already underway is never aborted by cancellation; it
	// runs to completion or to I/O error.
	saveCtx := context.WithoutCancel(ctx)
	res, err := r.writer.Save(saveCtx, snap.ArchiveURL, s.destDir, id, snap.Extension)
	if err != nil {
		r.setStatus(it, StatusFailed, failReason(err))
		return
	}

	r.mu.Lock()
	it.ResultPath = res.Path
	s.lastSuccess = res.Path
	r.mu.Unlock()
	r.setStatus(it, StatusSuccess, "")
	r.emit(Event{Kind: EventLog, Message: fmt.Sprintf("Saved %s (%d bytes)", res.Path, res.Bytes)})

	if s.opts.Mirror != nil {
		r.mirrorFile(saveCtx, s.opts.Mirror, res.Path)
	}
}

func (r *Runner) mirrorFile(ctx context.Context, dest mirror.Destination, path string) {
	name := filepath.Base(path)
	content, err := os.ReadFile(path)
	if err == nil {
		err = dest.Upload(ctx, name, content)
	}
	if err != nil {
		slog.Error("mirror upload failed", "path", path, "dest", dest.String(), "err", err)
		r.emit(Event{Kind: EventLog, Message: fmt.Sprintf("mirror upload failed for %s", name)})
		return
	}
	r.emit(Event{Kind: EventLog, Message: fmt.Sprintf("Mirrored %s to %s", name, dest)})
}

func (r *Runner) setStatus(it *Item, to, reason string) {
	r.mu.Lock()
	if err := transition(it, to, reason); err != nil {
		r.mu.Unlock()
		slog.Error("item status transition rejected", "item_id", it.ID, "to", to, "err", err)
		return
	}
	snapshot := *it
	r.mu.Unlock()
	r.emit(Event{Kind: EventItem, Item: snapshot})
}

func (r *Runner) emit(ev Event) {
	r.events <- ev
}

func failReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, archive.ErrNotFound):
		return "not found in archive"
	case errors.Is(err, archive.ErrEmptyBody):
		return "empty file"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	return err.Error()
}
