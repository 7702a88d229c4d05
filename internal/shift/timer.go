// Package shift tracks a cashier's work session against the persisted shift
// record and exposes the running time.
package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/session"
)

var (
	ErrMissingIdentity = errors.New("no authenticated cashier")
	ErrNoActiveSession = errors.New("no active shift session")
	ErrAlreadyActive   = errors.New("shift already active")
	ErrClosed          = errors.New("shift timer closed")
)

type State string

const (
	Inactive State = "inactive"
	Active   State = "active"
)

type Config struct {
	Auth       session.Provider
	Shifts     repository.ShiftRepository
	Activities repository.ActivityRepository
	Sales      repository.SaleRepository
	Notifier   notify.Notifier
	Clock      func() time.Time
	// TickInterval defaults to one second.
	TickInterval time.Duration
	OnTick       func(elapsed time.Duration)
	Logger       *slog.Logger
}

type Timer struct {
	cfg Config

	// opMu serialises start/end/resume so remote calls never interleave.
	opMu sync.Mutex

	mu       sync.Mutex
	state    State
	session  *models.ShiftSession
	elapsed  time.Duration
	stopTick chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewTimer(cfg Config) *Timer {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Timer{cfg: cfg, state: Inactive}
}

// Resume picks up an open session left by an earlier run for the signed-in
// cashier. Having no cashier or no open session is not an error. A session
// held for a different cashier is detached first.
func (t *Timer) Resume(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	identity, ok := t.cfg.Auth.Current()
	if !ok {
		t.Detach()
		return nil
	}
	if _, held := t.heldFor(identity.CashierID); held {
		return nil
	}

	_, err := t.resumeOpen(ctx, identity.CashierID)
	return err
}

// resumeOpen attaches the open remote session of cashierID. It returns nil
// and no error when there is none. opMu must be held.
func (t *Timer) resumeOpen(ctx context.Context, cashierID string) (*models.ShiftSession, error) {
	open, err := t.cfg.Shifts.FindOpen(ctx, cashierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		t.cfg.Logger.Error("failed to resume shift", "cashier_id", cashierID, "error", err)
		notify.Error(t.cfg.Notifier, notify.CategoryShift, "Could not load your open shift")
		return nil, fmt.Errorf("resume shift: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}

	t.session = open
	t.state = Active
	t.elapsed = t.cfg.Clock().Sub(open.StartedAt)
	t.startTickLocked()

	t.cfg.Logger.Info("shift resumed", "shift_id", open.ID, "cashier_id", open.CashierID)
	copied := *open
	return &copied, nil
}

// Detach drops the local session and stops the tick without closing the
// remote record, so the shift can be resumed at the next sign-in.
func (t *Timer) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked()
}

func (t *Timer) detachLocked() {
	if t.session == nil {
		return
	}
	t.cfg.Logger.Info("shift detached", "shift_id", t.session.ID, "cashier_id", t.session.CashierID)
	t.stopTickLocked()
	t.state = Inactive
	t.session = nil
	t.elapsed = 0
}

// heldFor returns the id of the local session when it belongs to cashierID.
// A session held for anyone else is detached.
func (t *Timer) heldFor(cashierID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return "", false
	}
	if t.session.CashierID != cashierID {
		t.detachLocked()
		return "", false
	}
	return t.session.ID, true
}

func (t *Timer) StartShift(ctx context.Context, openingFloat decimal.Decimal) (*models.ShiftSession, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	identity, ok := t.cfg.Auth.Current()
	if !ok {
		notify.Error(t.cfg.Notifier, notify.CategoryShift, "Sign in to start a shift")
		return nil, ErrMissingIdentity
	}

	_, held := t.heldFor(identity.CashierID)

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if held {
		notify.Warning(t.cfg.Notifier, notify.CategoryShift, "A shift is already running")
		return nil, ErrAlreadyActive
	}

	if openingFloat.IsNegative() {
		openingFloat = decimal.Zero
	}

	sess := &models.ShiftSession{
		ID:           uuid.NewString(),
		CashierID:    identity.CashierID,
		StartedAt:    t.cfg.Clock(),
		OpeningFloat: openingFloat,
	}

	if err := t.cfg.Shifts.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return t.adoptOpen(ctx, identity.CashierID)
		}
		t.cfg.Logger.Error("failed to start shift", "cashier_id", identity.CashierID, "error", err)
		notify.Error(t.cfg.Notifier, notify.CategoryShift, "Could not start shift")
		return nil, fmt.Errorf("start shift: %w", err)
	}

	t.mu.Lock()
	t.session = sess
	t.state = Active
	t.elapsed = 0
	if !t.closed {
		t.startTickLocked()
	}
	t.mu.Unlock()

	t.recordActivity(ctx, identity.CashierID, "shift_start", sess.ID)
	notify.Success(t.cfg.Notifier, notify.CategoryShift, "Shift started")

	copied := *sess
	return &copied, nil
}

// adoptOpen handles a start refused because the cashier already has an open
// shift on record: that shift is resumed instead.
func (t *Timer) adoptOpen(ctx context.Context, cashierID string) (*models.ShiftSession, error) {
	open, err := t.resumeOpen(ctx, cashierID)
	if err != nil {
		return nil, fmt.Errorf("start shift: %w", err)
	}
	if open == nil {
		notify.Warning(t.cfg.Notifier, notify.CategoryShift, "A shift is already running")
		return nil, fmt.Errorf("start shift: %w", ErrAlreadyActive)
	}

	notify.Info(t.cfg.Notifier, notify.CategoryShift, "Resumed your open shift")
	return open, nil
}

// EndShift closes the session held for the signed-in cashier.
func (t *Timer) EndShift(ctx context.Context) (*models.ShiftSession, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	identity, _ := t.cfg.Auth.Current()
	id, held := t.heldFor(identity.CashierID)
	if !held {
		notify.Error(t.cfg.Notifier, notify.CategoryShift, "No active shift to end")
		return nil, ErrNoActiveSession
	}

	ended, err := t.cfg.Shifts.Close(ctx, id, t.cfg.Clock())
	if err != nil {
		t.cfg.Logger.Error("failed to end shift", "shift_id", id, "error", err)
		notify.Error(t.cfg.Notifier, notify.CategoryShift, "Could not end shift")
		return nil, fmt.Errorf("end shift: %w", err)
	}

	t.mu.Lock()
	t.stopTickLocked()
	t.state = Inactive
	t.session = nil
	if ended.EndedAt != nil {
		t.elapsed = ended.EndedAt.Sub(ended.StartedAt)
	}
	t.mu.Unlock()

	t.recordActivity(ctx, ended.CashierID, "shift_end", ended.ID)
	notify.Success(t.cfg.Notifier, notify.CategoryShift, "Shift ended after "+FormatElapsed(t.Elapsed()))

	return ended, nil
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Timer) Session() *models.ShiftSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	copied := *t.session
	return &copied
}

// CurrentShiftID returns the held session only while its cashier is the one
// signed in.
func (t *Timer) CurrentShiftID() (string, bool) {
	identity, ok := t.cfg.Auth.Current()
	if !ok {
		return "", false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || t.session.CashierID != identity.CashierID {
		return "", false
	}
	return t.session.ID, true
}

// Elapsed is the running time of the active session, or the length of the
// last session after it ended.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Active && t.session != nil {
		return t.cfg.Clock().Sub(t.session.StartedAt)
	}
	return t.elapsed
}

func (t *Timer) Summary(ctx context.Context) (*models.ShiftSummary, error) {
	id, ok := t.CurrentShiftID()
	if !ok {
		return nil, ErrNoActiveSession
	}
	if t.cfg.Sales == nil {
		return &models.ShiftSummary{Total: decimal.Zero}, nil
	}
	return t.cfg.Sales.SummaryForShift(ctx, id)
}

// Close stops the tick. Nothing is reported to OnTick afterwards.
func (t *Timer) Close() {
	t.mu.Lock()
	t.closed = true
	t.stopTickLocked()
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Timer) startTickLocked() {
	t.stopTickLocked()

	stop := make(chan struct{})
	t.stopTick = stop

	t.wg.Add(1)
	go t.tickLoop(stop)
}

func (t *Timer) stopTickLocked() {
	if t.stopTick != nil {
		close(t.stopTick)
		t.stopTick = nil
	}
}

func (t *Timer) tickLoop(stop <-chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.closed || t.state != Active || t.session == nil {
				t.mu.Unlock()
				continue
			}
			t.elapsed = t.cfg.Clock().Sub(t.session.StartedAt)
			elapsed := t.elapsed
			onTick := t.cfg.OnTick
			t.mu.Unlock()

			if onTick != nil {
				onTick(elapsed)
			}
		}
	}
}

func (t *Timer) recordActivity(ctx context.Context, actorID, action, shiftID string) {
	if t.cfg.Activities == nil {
		return
	}

	err := t.cfg.Activities.Create(ctx, &models.Activity{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: "shift",
		EntityID:   shiftID,
		CreatedAt:  t.cfg.Clock(),
	})
	if err != nil {
		t.cfg.Logger.Warn("failed to record shift activity", "action", action, "shift_id", shiftID, "error", err)
	}
}

// FormatElapsed renders d as HH:MM:SS. Hours are not capped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
