// Package runner executes the fixed warmup sequence across the selected
// browser profiles, one at a time. Failures are contained at the step
// and profile level: a broken profile never prevents the next one from
// running, and a broken step never prevents later steps in the same
// profile. Only the runner itself breaking aborts the run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-warmup-automation/internal/events"
)

// Driver opens browser sessions. The runner depends on nothing else
// about the browser, which is what makes it testable with fakes.
type Driver interface {
	OpenSession(ctx context.Context, profilePath string) (Session, error)
}

// Session performs warmup steps against one opened browser profile.
type Session interface {
	Perform(ctx context.Context, step Step) error
	Close() error
}

// Sink receives the finished run for durable history. Optional.
type Sink interface {
	SaveRun(snap Snapshot) error
}

type Options struct {
	// ProfileDelay is the pause between queue items; the point is to not
	// look like a burst of logins to the target site.
	ProfileDelay time.Duration
	// StepTimeout bounds session opening and every individual step, so a
	// stalled page cannot hang the run forever.
	StepTimeout time.Duration
	MaxLogLines int
	MaxRounds   int
}

func (o *Options) setDefaults() {
	if o.ProfileDelay < 0 {
		o.ProfileDelay = 0
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = 2 * time.Minute
	}
	if o.MaxLogLines <= 0 {
		o.MaxLogLines = 200
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = 100
	}
}

type Runner struct {
	driver Driver
	source ProfileSource
	feed   *events.Feed
	sink   Sink
	opts   Options

	mu  sync.Mutex
	run *run
}

// run is the mutable state behind a Snapshot. Guarded by Runner.mu.
type run struct {
	id             string
	status         Status
	queue          []QueueItem
	queueIndex     int
	currentProfile string
	currentStep    string
	currentRound   int
	totalRounds    int
	results        []StepResult
	logs           []string
	startedAt      time.Time
	finishedAt     time.Time
	stopRequested  bool
	stopCh         chan struct{}
	done           chan struct{}
}

func New(driver Driver, source ProfileSource, feed *events.Feed, sink Sink, opts Options) *Runner {
	opts.setDefaults()
	if feed == nil {
		feed = events.NewFeed()
	}
	return &Runner{
		driver: driver,
		source: source,
		feed:   feed,
		sink:   sink,
		opts:   opts,
	}
}

// Feed exposes the progress feed the runner publishes to.
func (r *Runner) Feed() *events.Feed { return r.feed }

// Start begins a run over the given profile ids, repeated for the given
// number of rounds. Fails with ErrRunActive while a run is in progress.
func (r *Runner) Start(profileIDs []string, rounds int) (string, error) {
	if len(profileIDs) == 0 {
		return "", ErrEmptySelection
	}
	if rounds < 1 {
		rounds = 1
	}
	if rounds > r.opts.MaxRounds {
		rounds = r.opts.MaxRounds
	}

	r.mu.Lock()
	if r.run != nil && !r.run.status.Terminal() {
		r.mu.Unlock()
		return "", ErrRunActive
	}

	rn := &run{
		id:          uuid.NewString(),
		status:      StatusRunning,
		queueIndex:  -1,
		totalRounds: rounds,
		startedAt:   time.Now(),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	for round := 1; round <= rounds; round++ {
		for _, id := range profileIDs {
			name := id
			if prof, ok := r.source.Profile(id); ok {
				name = prof.Name
			}
			rn.queue = append(rn.queue, QueueItem{
				ProfileID:   id,
				ProfileName: name,
				Round:       round,
				Status:      QueuePending,
			})
		}
	}
	r.run = rn
	r.mu.Unlock()

	r.feed.Publish(events.Event{Type: events.TypeRunStarted, RunID: rn.id})
	r.logf(rn, "INFO", "STARTING WARMUP QUEUE: %d profile(s) x %d round(s) = %d task(s)",
		len(profileIDs), rounds, len(rn.queue))
	for i, item := range rn.queue {
		r.logf(rn, "INFO", "  %d. %s - Round %d", i+1, item.ProfileName, item.Round)
	}

	go r.execute(rn)
	return rn.id, nil
}

// Stop requests cooperative cancellation. The in-flight step finishes,
// the current session is closed, and remaining queue items are recorded
// as skipped. Fails with ErrNoActiveRun when nothing is running.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.run == nil || r.run.status.Terminal() {
		r.mu.Unlock()
		return ErrNoActiveRun
	}
	if r.run.status == StatusStopping {
		r.mu.Unlock()
		return nil
	}
	r.run.status = StatusStopping
	r.run.stopRequested = true
	close(r.run.stopCh)
	rn := r.run
	r.mu.Unlock()

	r.logf(rn, "WARNING", "STOP REQUESTED - will stop after the current step completes")
	return nil
}

// Status returns a copy-on-read snapshot. Safe to call at any time.
func (r *Runner) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.run == nil {
		return Snapshot{Status: StatusIdle, QueueIndex: -1}
	}
	return r.snapshotLocked(r.run)
}

func (r *Runner) snapshotLocked(rn *run) Snapshot {
	snap := Snapshot{
		RunID:          rn.id,
		Status:         rn.status,
		CurrentProfile: rn.currentProfile,
		CurrentStep:    rn.currentStep,
		CurrentRound:   rn.currentRound,
		TotalRounds:    rn.totalRounds,
		QueueIndex:     rn.queueIndex,
		Queue:          make([]QueueItem, len(rn.queue)),
		Results:        make([]StepResult, len(rn.results)),
		Logs:           make([]string, len(rn.logs)),
		StartedAt:      rn.startedAt,
		FinishedAt:     rn.finishedAt,
	}
	copy(snap.Queue, rn.queue)
	copy(snap.Results, rn.results)
	copy(snap.Logs, rn.logs)
	for _, item := range rn.queue {
		switch item.Status {
		case QueueCompleted:
			snap.Completed++
		case QueueFailed:
			snap.Failed++
		case QueueSkipped:
			snap.Skipped++
		}
	}
	return snap
}

// Reset clears a terminal run so the dashboard starts from a clean
// slate. Fails with ErrRunActive while a run is in progress.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil && !r.run.status.Terminal() {
		return ErrRunActive
	}
	r.run = nil
	return nil
}

// ClearLogs drops the retained log lines of the current run.
func (r *Runner) ClearLogs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		r.run.logs = nil
	}
}

// Wait blocks until the current run reaches a terminal state. Returns
// immediately when no run is active.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	if r.run == nil {
		r.mu.Unlock()
		return nil
	}
	done := r.run.done
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) execute(rn *run) {
	defer r.finalize(rn)

	if r.driver == nil {
		r.abort(rn, fmt.Errorf("%w: no driver configured", ErrDriverUnavailable))
		return
	}

	total := len(rn.queue)
	for i := 0; i < total; i++ {
		if r.stopRequested(rn) {
			r.markRemainingSkipped(rn, i)
			return
		}

		r.mu.Lock()
		item := rn.queue[i]
		rn.queueIndex = i
		r.mu.Unlock()

		prof, ok := r.source.Profile(item.ProfileID)
		if !ok {
			r.logf(rn, "WARNING", "Profile %q not found - skipping", item.ProfileName)
			r.setQueueStatus(rn, i, QueueSkipped)
			continue
		}

		r.setQueueStatus(rn, i, QueueRunning)
		r.mu.Lock()
		rn.currentProfile = prof.Name
		rn.currentRound = item.Round
		r.mu.Unlock()

		r.logf(rn, "INFO", "TASK %d/%d: %s (Round %d/%d)", i+1, total, prof.Name, item.Round, rn.totalRounds)
		r.feed.Publish(events.Event{
			Type:        events.TypeProfileStarted,
			RunID:       rn.id,
			ProfileID:   prof.ID,
			ProfileName: prof.Name,
			Round:       item.Round,
		})

		status, fatal := r.runProfile(rn, prof, item.Round)
		r.setQueueStatus(rn, i, status)
		r.mu.Lock()
		rn.currentProfile = ""
		rn.currentStep = ""
		r.mu.Unlock()

		r.feed.Publish(events.Event{
			Type:        events.TypeProfileFinished,
			RunID:       rn.id,
			ProfileID:   prof.ID,
			ProfileName: prof.Name,
			Round:       item.Round,
			Outcome:     string(status),
		})

		if fatal {
			r.markRemainingSkipped(rn, i+1)
			r.abort(rn, fmt.Errorf("%w: aborting run", ErrDriverUnavailable))
			return
		}

		if i < total-1 && !r.stopRequested(rn) && r.opts.ProfileDelay > 0 {
			r.logf(rn, "INFO", "Waiting %s before next task...", r.opts.ProfileDelay)
			select {
			case <-time.After(r.opts.ProfileDelay):
			case <-rn.stopCh:
			}
		}
	}
}

// runProfile opens a session and walks the step sequence. The session is
// closed on every exit path. The returned bool reports a fatal driver
// defect that must abort the whole run.
func (r *Runner) runProfile(rn *run, prof Profile, round int) (QueueStatus, bool) {
	r.setCurrentStep(rn, StepSession)
	r.logf(rn, "INFO", "Opening browser session for %s...", prof.Name)

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.StepTimeout)
	sess, err := r.driver.OpenSession(ctx, prof.Path)
	cancel()
	if err != nil {
		r.appendResult(rn, StepResult{
			ProfileID:   prof.ID,
			ProfileName: prof.Name,
			Round:       round,
			Step:        StepSession,
			Outcome:     OutcomeFailure,
			Detail:      err.Error(),
			Timestamp:   time.Now(),
		})
		r.logf(rn, "ERROR", "Session failed for %s: %v", prof.Name, err)
		return QueueFailed, errors.Is(err, ErrDriverUnavailable)
	}
	defer func() {
		r.logf(rn, "INFO", "Closing browser for %s...", prof.Name)
		if err := sess.Close(); err != nil {
			r.logf(rn, "WARNING", "Error closing browser: %v", err)
		}
	}()

	failed := false
	for _, step := range Sequence() {
		if r.stopRequested(rn) {
			// Stop observed at a step boundary: the rest of this
			// profile is abandoned and the item recorded as skipped.
			return QueueSkipped, false
		}

		r.setCurrentStep(rn, step.Name)
		r.logf(rn, "INFO", "%s...", step.Title)

		stepCtx, cancelStep := context.WithTimeout(context.Background(), r.opts.StepTimeout)
		err := sess.Perform(stepCtx, step)
		cancelStep()

		res := StepResult{
			ProfileID:   prof.ID,
			ProfileName: prof.Name,
			Round:       round,
			Step:        step.Name,
			Timestamp:   time.Now(),
		}
		switch {
		case err == nil:
			res.Outcome = OutcomeSuccess
			r.logf(rn, "SUCCESS", "%s: SUCCESS", step.Title)
		case errors.Is(err, ErrStepSkipped):
			res.Outcome = OutcomeSkipped
			res.Detail = err.Error()
			r.logf(rn, "WARNING", "%s: SKIPPED (%v)", step.Title, err)
		default:
			res.Outcome = OutcomeFailure
			res.Detail = err.Error()
			var actionErr *ActionError
			if errors.As(err, &actionErr) {
				res.Screenshot = actionErr.Screenshot
			}
			failed = true
			r.logf(rn, "ERROR", "%s: FAILED (%v)", step.Title, err)
		}
		r.appendResult(rn, res)
	}

	if failed {
		return QueueFailed, false
	}
	r.logf(rn, "SUCCESS", "ALL TASKS COMPLETED for %s (Round %d)", prof.Name, round)
	return QueueCompleted, false
}

func (r *Runner) finalize(rn *run) {
	r.mu.Lock()
	if rn.status == StatusStopping || rn.stopRequested {
		rn.status = StatusStopped
	} else if !rn.status.Terminal() {
		rn.status = StatusCompleted
	}
	rn.finishedAt = time.Now()
	rn.currentProfile = ""
	rn.currentStep = ""
	close(rn.done)
	final := r.snapshotLocked(rn)
	r.mu.Unlock()
	r.logf(rn, "INFO", "QUEUE FINISHED - completed: %d | failed: %d | skipped: %d",
		final.Completed, final.Failed, final.Skipped)
	r.feed.Publish(events.Event{
		Type:    events.TypeRunFinished,
		RunID:   rn.id,
		Outcome: string(final.Status),
	})

	if r.sink != nil {
		if err := r.sink.SaveRun(final); err != nil {
			r.logf(rn, "WARNING", "Failed to persist run history: %v", err)
		}
	}
}

// abort forces the run toward Stopped after a runner-internal defect.
func (r *Runner) abort(rn *run, err error) {
	r.mu.Lock()
	rn.stopRequested = true
	r.mu.Unlock()
	r.logf(rn, "ERROR", "FATAL: %v", err)
}

func (r *Runner) stopRequested(rn *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rn.stopRequested
}

func (r *Runner) setQueueStatus(rn *run, i int, status QueueStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn.queue[i].Status = status
}

func (r *Runner) markRemainingSkipped(rn *run, from int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := from; i < len(rn.queue); i++ {
		if rn.queue[i].Status == QueuePending {
			rn.queue[i].Status = QueueSkipped
		}
	}
}

func (r *Runner) setCurrentStep(rn *run, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn.currentStep = step
}

func (r *Runner) appendResult(rn *run, res StepResult) {
	r.mu.Lock()
	rn.results = append(rn.results, res)
	r.mu.Unlock()
	r.feed.Publish(events.Event{
		Type:        events.TypeStepFinished,
		RunID:       rn.id,
		ProfileID:   res.ProfileID,
		ProfileName: res.ProfileName,
		Round:       res.Round,
		Step:        res.Step,
		Outcome:     string(res.Outcome),
		Detail:      res.Detail,
	})
}

func (r *Runner) logf(rn *run, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] %s", time.Now().Format("15:04:05"), level, msg)

	r.mu.Lock()
	rn.logs = append(rn.logs, line)
	if len(rn.logs) > r.opts.MaxLogLines {
		rn.logs = rn.logs[len(rn.logs)-r.opts.MaxLogLines:]
	}
	r.mu.Unlock()

	log.Print(line)
	r.feed.Publish(events.Event{Type: events.TypeLog, RunID: rn.id, Message: line})
}
