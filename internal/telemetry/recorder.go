// Package telemetry implements the client-side instrumentation pipeline for
// the design builder: a session/tab lifecycle state machine, an in-memory
// batch buffer, and asynchronous batch delivery with retry-by-requeue.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohsaqr/designtrace/internal/domain"
)

// Fixed pipeline constants. These are deliberately not configurable; the
// pipeline is always-on instrumentation.
const (
	flushInterval = 10 * time.Second
	maxBatchSize  = 50
	minBatchSize  = 5
)

// State is the design-session lifecycle state.
type State int

const (
	StateInactive State = iota
	StateActive
	StatePaused
	StateEnded
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Config carries the identity context a Recorder stamps on every event.
type Config struct {
	// SessionID is the stable per-device identifier (survives page loads).
	SessionID    string
	UserID       string
	AssignmentID string
	// AgentConfigID is empty until the design is first saved.
	AgentConfigID string
	Version       int
	// InitialTab is the tab the workflow opens on. Defaults to "identity".
	InitialTab string
	Sink       Sink
	Logger     *slog.Logger
}

// Recorder instruments one (user, assignment) pair. It is explicitly owned:
// the caller constructs it on workflow entry and must Close it on exit.
// Constructing a second Recorder for a new pair supersedes the old one; the
// caller ends the previous session by closing it first.
//
// All methods are safe for concurrent use. Buffer mutation happens entirely
// under the mutex before any delivery I/O begins, so a flush and a
// concurrent capture never race on the same slice.
type Recorder struct {
	mu    sync.Mutex
	state State

	sessionID       string
	designSessionID string
	userID          string
	assignmentID    string
	agentConfigID   string
	version         int
	seq             int64

	currentTab   string
	tabEnteredAt time.Time
	activeAccum  time.Duration // active time from completed spans
	activeSince  time.Time     // start of the current active span

	testConversationSeen bool

	queue    []domain.DesignEvent
	inFlight bool

	sink   Sink
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder for one (user, assignment) pair. The
// session is not started until Start is called.
func NewRecorder(cfg Config) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tab := cfg.InitialTab
	if tab == "" {
		tab = "identity"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Recorder{
		state:           StateInactive,
		sessionID:       cfg.SessionID,
		designSessionID: uuid.NewString(),
		userID:          cfg.UserID,
		assignmentID:    cfg.AssignmentID,
		agentConfigID:   cfg.AgentConfigID,
		version:         cfg.Version,
		currentTab:      tab,
		sink:            cfg.Sink,
		logger:          logger,
		now:             time.Now,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// DesignSessionID returns the identifier of this design session.
func (r *Recorder) DesignSessionID() string {
	return r.designSessionID
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetAgentConfig records the saved configuration identity after the first
// save assigns one. Subsequent events carry the id and revision.
func (r *Recorder) SetAgentConfig(agentConfigID string, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentConfigID = agentConfigID
	r.version = version
}

// Start transitions Inactive -> Active, emits design_session_start, and
// starts the periodic flush timer.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInactive {
		return
	}

	now := r.now()
	r.state = StateActive
	r.activeSince = now
	r.tabEnteredAt = now
	r.emitLocked(domain.EventSessionStart, nil)

	r.ticker = time.NewTicker(flushInterval)
	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("design session started",
		"design_session_id", r.designSessionID,
		"user_id", r.userID,
		"assignment_id", r.assignmentID)
}

// Pause transitions Active -> Paused (tab hidden). It records elapsed time
// on the current tab, emits design_session_pause, and forces a flush.
func (r *Recorder) Pause() {
	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return
	}

	r.recordTabTimeLocked()
	r.activeAccum += r.now().Sub(r.activeSince)
	r.activeSince = time.Time{}
	r.state = StatePaused
	r.emitLocked(domain.EventSessionPause, nil)
	r.flushLocked(true)
	r.mu.Unlock()
}

// Resume transitions Paused -> Active (tab visible) and resets the per-tab
// timer so hidden time never counts as dwell time.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return
	}

	now := r.now()
	r.state = StateActive
	r.activeSince = now
	r.tabEnteredAt = now
	r.emitLocked(domain.EventSessionResume, nil)
}

// SwitchTab records moving between workflow tabs. Calling it with the
// current tab is a no-op and emits nothing.
func (r *Recorder) SwitchTab(newTab string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive || newTab == r.currentTab {
		return
	}

	r.recordTabTimeLocked()
	previous := r.currentTab
	r.currentTab = newTab
	r.tabEnteredAt = r.now()
	r.emitLocked(domain.EventTabSwitch, &domain.TabSwitchPayload{
		PreviousTab: previous,
		NewTab:      newTab,
	})
}

// End transitions to the terminal Ended state: records final tab time,
// emits design_session_end with the cumulative total, and hands whatever is
// queued to the best-effort unload path. Unlike the normal flush there is
// no delivery confirmation and no retry; if the process dies before the
// transmission completes the tail of the session is lost.
func (r *Recorder) End() {
	r.mu.Lock()
	if r.state != StateActive && r.state != StatePaused {
		r.mu.Unlock()
		return
	}

	if r.state == StateActive {
		r.recordTabTimeLocked()
		r.activeAccum += r.now().Sub(r.activeSince)
		r.activeSince = time.Time{}
	}
	r.state = StateEnded
	r.emitLocked(domain.EventSessionEnd, nil)

	batch := domain.EventBatch{BatchID: uuid.NewString(), Events: r.queue}
	r.queue = nil
	total := r.totalDesignTimeLocked()
	r.mu.Unlock()

	if len(batch.Events) > 0 && r.sink != nil {
		r.sink.DeliverBestEffort(batch)
	}

	r.logger.Info("design session ended",
		"design_session_id", r.designSessionID,
		"total_design_time_s", total)
}

// Close ends the session if still running and releases the flush timer.
// Any in-flight retry is aborted, mirroring page unload.
func (r *Recorder) Close() {
	r.End()
	r.cancel()
	r.mu.Lock()
	if r.ticker != nil {
		r.ticker.Stop()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Flush forces delivery of the queued events regardless of the minimum
// batch size.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked(true)
}

// QueueLen returns the number of events waiting for delivery.
func (r *Recorder) QueueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ticker.C:
			r.mu.Lock()
			r.flushLocked(false)
			r.mu.Unlock()
		case <-r.ctx.Done():
			return
		}
	}
}

// recordTabTimeLocked emits tab_time_recorded for the current tab. Elapsed
// whole seconds of 0 emit nothing.
func (r *Recorder) recordTabTimeLocked() {
	seconds := int64(r.now().Sub(r.tabEnteredAt).Seconds())
	if seconds <= 0 {
		return
	}
	r.emitLocked(domain.EventTabTimeRecorded, &domain.TabTimePayload{
		Tab:     r.currentTab,
		Seconds: seconds,
	})
}

// totalDesignTimeLocked returns cumulative active seconds since Start.
func (r *Recorder) totalDesignTimeLocked() int64 {
	total := r.activeAccum
	if !r.activeSince.IsZero() {
		total += r.now().Sub(r.activeSince)
	}
	return int64(total.Seconds())
}

// emitLocked stamps envelope context on the event and appends it to the
// queue. Reaching the batch ceiling triggers a flush; anything past the
// ceiling stays queued for the next one.
func (r *Recorder) emitLocked(t domain.EventType, p domain.Payload) {
	r.seq++
	r.queue = append(r.queue, domain.DesignEvent{
		EventType:       t,
		Category:        t.Category(),
		Timestamp:       r.now(),
		SessionID:       r.sessionID,
		DesignSessionID: r.designSessionID,
		Seq:             r.seq,
		UserID:          r.userID,
		AssignmentID:    r.assignmentID,
		AgentConfigID:   r.agentConfigID,
		Version:         r.version,
		ActiveTab:       r.currentTab,
		TotalDesignTime: r.totalDesignTimeLocked(),
		Payload:         p,
	})

	if len(r.queue) >= maxBatchSize {
		r.flushLocked(true)
	}
}

// flushLocked swaps out up to maxBatchSize queued events and hands them to
// the sink asynchronously. The swap completes before any I/O begins. A
// non-forced flush is skipped below the minimum batch size to avoid
// micro-requests, and only one delivery is in flight at a time.
func (r *Recorder) flushLocked(force bool) {
	if r.inFlight || r.sink == nil || len(r.queue) == 0 {
		return
	}
	if !force && len(r.queue) < minBatchSize {
		return
	}

	n := len(r.queue)
	if n > maxBatchSize {
		n = maxBatchSize
	}
	events := make([]domain.DesignEvent, n)
	copy(events, r.queue[:n])
	r.queue = r.queue[n:]

	r.inFlight = true
	batch := domain.EventBatch{BatchID: uuid.NewString(), Events: events}
	r.wg.Add(1)
	go r.deliver(batch)
}

// deliver performs one delivery attempt. A failed batch is re-prepended to
// the live queue in original order ahead of newer events and retried on the
// next trigger; delivery is at-least-once, the server deduplicates on
// (design_session_id, seq).
func (r *Recorder) deliver(batch domain.EventBatch) {
	defer r.wg.Done()
	err := r.sink.Deliver(r.ctx, batch)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	if err != nil {
		r.logger.Warn("telemetry batch delivery failed, requeueing",
			"error", err,
			"batch_id", batch.BatchID,
			"events", len(batch.Events))
		r.queue = append(batch.Events, r.queue...)
	}
}
