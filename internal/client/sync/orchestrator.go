// Package sync contains the synchronization core: the conflict resolver and
// the orchestrator that drains the change journal, pulls remote changes and
// applies them to the local store.
package sync

import (
	"context"
	"database/sql"
	"errors"
	gosync "sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Psheikomaniac/cashcow-go/internal/client/gateway"
	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/journal"
	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/metadata"
	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/penalties"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/dbx"
	"github.com/Psheikomaniac/cashcow-go/internal/logging"
)

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	// BatchSize bounds how many journal entries one drain pass loads at once.
	BatchSize int

	// AttemptCeiling is the per-entry delivery attempt limit before the entry
	// transitions to the terminal failed state.
	AttemptCeiling int

	// InitialBackoff and MaxBackoff bound the exponential retry schedule
	// after a transient cycle failure.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.AttemptCeiling <= 0 {
		c.AttemptCeiling = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
	return c
}

// Orchestrator runs sync cycles: drain the journal oldest-first, pull remote
// changes, apply them through the conflict resolver, advance the cursor. At
// most one cycle runs at a time; triggers arriving mid-cycle coalesce into a
// single follow-up cycle.
type Orchestrator struct {
	db  *sql.DB
	gw  gateway.Gateway
	log logging.Logger
	cfg Config

	penalties penalties.Repository
	journal   journal.Repository
	metadata  metadata.Repository

	trigger chan struct{}

	mu      gosync.Mutex
	state   CycleState
	running bool
	rerun   bool
	lastErr string
	backoff retry.Backoff

	subMu   gosync.Mutex
	subs    map[int]chan Status
	nextSub int
}

// New wires an orchestrator over the client database and the remote gateway.
func New(db *sql.DB, gw gateway.Gateway, log logging.Logger, cfg Config) *Orchestrator {
	o := &Orchestrator{
		db:        db,
		gw:        gw,
		log:       log,
		cfg:       cfg.withDefaults(),
		penalties: penalties.NewSQLiteRepository(db),
		journal:   journal.NewSQLiteRepository(db),
		metadata:  metadata.NewSQLiteRepository(db),
		trigger:   make(chan struct{}, 1),
		subs:      make(map[int]chan Status),
	}
	o.resetBackoff()
	return o
}

func (o *Orchestrator) resetBackoff() {
	o.backoff = retry.WithCappedDuration(o.cfg.MaxBackoff,
		retry.NewExponential(o.cfg.InitialBackoff))
}

// State returns the current state-machine position.
func (o *Orchestrator) State() CycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers a status listener. The returned channel holds the most
// recent observation; slow consumers never block the orchestrator. The second
// return value unsubscribes.
func (o *Orchestrator) Subscribe() (<-chan Status, func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	id := o.nextSub
	o.nextSub++
	ch := make(chan Status, 1)
	o.subs[id] = ch
	return ch, func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		delete(o.subs, id)
	}
}

func (o *Orchestrator) publish(ctx context.Context) {
	st := o.CurrentStatus(ctx)
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for _, ch := range o.subs {
		// Keep only the latest observation per subscriber.
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

// CurrentStatus derives the user-visible indicator from journal counts and
// the last cycle outcome.
func (o *Orchestrator) CurrentStatus(ctx context.Context) Status {
	pending, err := o.journal.CountPending(ctx)
	if err != nil {
		o.log.Error(ctx, "failed to count pending journal entries", "error", err)
	}
	failed, err := o.journal.CountFailed(ctx)
	if err != nil {
		o.log.Error(ctx, "failed to count failed journal entries", "error", err)
	}

	o.mu.Lock()
	lastErr := o.lastErr
	retrying := lastErr != "" && o.state != StateError
	o.mu.Unlock()

	st := Status{Pending: pending, Failed: failed, LastError: lastErr}
	switch {
	case failed > 0:
		st.Indicator = IndicatorFailed
	case retrying && pending > 0:
		st.Indicator = IndicatorRetrying
	case pending > 0:
		st.Indicator = IndicatorPending
	default:
		st.Indicator = IndicatorSynced
	}
	return st
}

// TriggerSync requests a cycle. If one is already running the request
// coalesces into a single rerun after it finishes. A manual trigger cuts any
// scheduled backoff short.
func (o *Orchestrator) TriggerSync() {
	o.mu.Lock()
	if o.running {
		o.rerun = true
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

// Resume leaves the Error state after re-authentication and requests a cycle.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	if o.state == StateError {
		o.state = StateIdle
		o.lastErr = ""
	}
	o.mu.Unlock()
	o.TriggerSync()
}

// Run processes triggers until ctx is cancelled. Transient cycle failures
// schedule a rerun with capped exponential backoff.
func (o *Orchestrator) Run(ctx context.Context) {
	var timer *time.Timer
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
	defer stopTimer()

	for {
		var wait <-chan time.Time
		if timer != nil {
			wait = timer.C
		}
		select {
		case <-ctx.Done():
			return
		case <-o.trigger:
			stopTimer()
		case <-wait:
			timer = nil
		}

		err := o.RunCycle(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if err != nil && errors.Is(err, common.ErrTransient) {
			d, stop := o.backoff.Next()
			if !stop {
				o.log.Info(ctx, "sync cycle hit a transient failure, retry scheduled",
					"delay", d.String())
				stopTimer()
				timer = time.NewTimer(d)
			}
			continue
		}

		o.mu.Lock()
		rerun := o.rerun
		o.rerun = false
		o.mu.Unlock()
		if rerun {
			o.TriggerSync()
		}
	}
}

// RunCycle executes one full drain-pull-apply cycle synchronously. It is the
// entry point both for the Run loop and for a user-initiated "sync now".
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateError {
		o.mu.Unlock()
		return common.ErrUnauthorized
	}
	if o.running {
		o.rerun = true
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	err := o.cycle(ctx)
	o.finish(err)
	o.publish(context.WithoutCancel(ctx))
	return err
}

func (o *Orchestrator) cycle(ctx context.Context) error {
	o.setState(StateDraining)
	if err := o.drain(ctx); err != nil {
		return err
	}

	o.setState(StatePulling)
	cursor, err := o.metadata.GetCursor(ctx)
	if err != nil {
		return err
	}
	cs, err := o.gw.FetchChangesSince(ctx, cursor)
	if err != nil {
		return err
	}

	o.setState(StateApplying)
	return o.apply(ctx, cs)
}

func (o *Orchestrator) setState(s CycleState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// finish settles the state machine after a cycle: Idle on success or a
// retryable failure, Error on an auth failure.
func (o *Orchestrator) finish(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.state = StateIdle
		o.lastErr = ""
		o.resetBackoff()
		return
	}
	o.lastErr = err.Error()
	if errors.Is(err, common.ErrUnauthorized) {
		o.state = StateError
		return
	}
	o.state = StateIdle
}

// drain delivers pending journal entries oldest-first. Cancellation is
// honored between entries, never inside one, so an in-flight submit always
// settles to acknowledged or still-pending.
func (o *Orchestrator) drain(ctx context.Context) error {
	for {
		batch, err := o.journal.NextBatch(ctx, o.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.pushEntry(ctx, &batch[i]); err != nil {
				return err
			}
		}
		if len(batch) < o.cfg.BatchSize {
			return nil
		}
	}
}

// pushEntry submits one journal entry and settles its outcome. A nil return
// means the entry reached a final local state (acknowledged or failed) and
// the drain may continue; an error aborts the cycle.
func (o *Orchestrator) pushEntry(ctx context.Context, e *models.JournalEntry) error {
	switch e.Op {
	case models.OpCreate, models.OpUpdate, models.OpMarkPaid, models.OpDelete:
	default:
		return o.journal.MarkFailed(ctx, e.Seq, "unknown operation "+string(e.Op))
	}

	snap, err := e.DecodeSnapshot()
	if err != nil {
		o.log.Error(ctx, "journal entry carries an unreadable snapshot",
			"seq", e.Seq, "penalty", e.PenaltyID, "error", err)
		return o.journal.MarkFailed(ctx, e.Seq, "unreadable snapshot: "+err.Error())
	}

	conf, err := o.submit(ctx, e, snap)

	// Once the submit settled on the wire, the local outcome must be
	// recorded even if the cycle was cancelled meanwhile. Cancellation only
	// ever takes effect between entries.
	settleCtx := context.WithoutCancel(ctx)

	if err == nil {
		return o.acknowledge(settleCtx, e, conf.Version)
	}

	ge, ok := gateway.AsError(err)
	if !ok {
		return err
	}
	switch ge.Kind {
	case gateway.KindTransient:
		failed, ferr := o.journal.RecordFailure(settleCtx, e.Seq, ge.Message, o.cfg.AttemptCeiling)
		if ferr != nil {
			return ferr
		}
		if failed {
			o.log.Warn(ctx, "journal entry exhausted its attempt limit",
				"seq", e.Seq, "penalty", e.PenaltyID, "op", string(e.Op))
		}
		return err
	case gateway.KindRejected:
		o.log.Warn(ctx, "server rejected journal entry",
			"seq", e.Seq, "penalty", e.PenaltyID, "op", string(e.Op), "cause", ge.Message)
		return o.journal.MarkFailed(settleCtx, e.Seq, ge.Message)
	case gateway.KindConflict:
		return o.resolveConflict(ctx, e, ge.Remote)
	default:
		return err
	}
}

func (o *Orchestrator) submit(ctx context.Context, e *models.JournalEntry, snap *models.Snapshot) (*gateway.Confirmation, error) {
	if e.Op == models.OpCreate {
		return o.gw.SubmitCreate(ctx, e.PenaltyID, snap)
	}
	rec, err := o.penalties.GetByID(ctx, e.PenaltyID)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case models.OpUpdate:
		return o.gw.SubmitUpdate(ctx, e.PenaltyID, snap, rec.Version)
	case models.OpMarkPaid:
		return o.gw.SubmitMarkPaid(ctx, e.PenaltyID, snap, rec.Version)
	default:
		return o.gw.SubmitDelete(ctx, e.PenaltyID, snap, rec.Version)
	}
}

// acknowledge removes the entry and records the confirmed version in one
// transaction, so a crash can never leave a confirmed entry pending.
func (o *Orchestrator) acknowledge(ctx context.Context, e *models.JournalEntry, version int64) error {
	return dbx.WithTx(ctx, o.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		jr := journal.NewSQLiteRepository(tx)
		pr := penalties.NewSQLiteRepository(tx)
		if err := jr.Acknowledge(ctx, e.Seq); err != nil {
			return err
		}
		left, err := jr.PendingForPenalty(ctx, e.PenaltyID)
		if err != nil {
			return err
		}
		if len(left) > 0 {
			return pr.SetVersion(ctx, e.PenaltyID, version)
		}
		return pr.SetSynced(ctx, e.PenaltyID, version)
	})
}

// resolveConflict settles a version conflict for one journal entry: merge via
// the resolver, re-push at most once when local fields won, then accept
// whatever the server confirms.
func (o *Orchestrator) resolveConflict(ctx context.Context, e *models.JournalEntry, remote *models.Penalty) error {
	settleCtx := context.WithoutCancel(ctx)
	if remote == nil {
		// A conflict without the server's state cannot be merged; treat it
		// like a transient failure and retry the whole entry.
		failed, ferr := o.journal.RecordFailure(settleCtx, e.Seq, "conflict without remote state", o.cfg.AttemptCeiling)
		if ferr != nil {
			return ferr
		}
		if failed {
			return nil
		}
		return common.ErrTransient
	}

	local, err := o.penalties.GetByID(settleCtx, e.PenaltyID)
	if err != nil {
		return err
	}

	res := Resolve(local, remote)
	merged := res.Merged
	version := remote.Version

	o.log.Info(ctx, "resolved version conflict",
		"penalty", e.PenaltyID, "op", string(e.Op),
		"localFieldsWon", res.LocalFieldsWon, "paidNoop", res.PaidNoop)

	if repush, rsnap := o.repushPlan(e, res); repush {
		conf, rerr := o.resubmit(ctx, e, rsnap, remote.Version)
		switch {
		case rerr == nil:
			version = conf.Version
		default:
			ge, ok := gateway.AsError(rerr)
			if !ok {
				return rerr
			}
			switch ge.Kind {
			case gateway.KindConflict:
				// Lost the race a second time; accept the server's state.
				if ge.Remote != nil {
					merged = *ge.Remote
					version = ge.Remote.Version
				}
			case gateway.KindRejected:
				if merr := o.journal.MarkFailed(settleCtx, e.Seq, ge.Message); merr != nil {
					return merr
				}
				return o.persistMerged(settleCtx, e, merged, version, false)
			default:
				return rerr
			}
		}
	}

	return o.persistMerged(settleCtx, e, merged, version, true)
}

// repushPlan decides whether the merged state must be sent back to the
// server, and with what payload. A payment that the server does not know
// about yet is always re-pushed; non-payment fields only when they won the
// merge.
func (o *Orchestrator) repushPlan(e *models.JournalEntry, res *Resolution) (bool, *models.Snapshot) {
	merged := res.Merged
	if e.Op == models.OpMarkPaid && !res.PaidNoop {
		return true, &models.Snapshot{
			PaidAt:    merged.PaidAt,
			UpdatedAt: merged.UpdatedAt,
		}
	}
	if !res.LocalFieldsWon {
		return false, nil
	}
	reason := merged.Reason
	amount := merged.AmountCents
	archived := merged.Archived
	return true, &models.Snapshot{
		Reason:      &reason,
		AmountCents: &amount,
		Archived:    &archived,
		UpdatedAt:   merged.UpdatedAt,
	}
}

func (o *Orchestrator) resubmit(ctx context.Context, e *models.JournalEntry, snap *models.Snapshot, version int64) (*gateway.Confirmation, error) {
	if e.Op == models.OpMarkPaid {
		return o.gw.SubmitMarkPaid(ctx, e.PenaltyID, snap, version)
	}
	if e.Op == models.OpDelete {
		return o.gw.SubmitDelete(ctx, e.PenaltyID, snap, version)
	}
	return o.gw.SubmitUpdate(ctx, e.PenaltyID, snap, version)
}

// persistMerged writes the merge outcome and settles the journal entry in one
// transaction.
func (o *Orchestrator) persistMerged(ctx context.Context, e *models.JournalEntry, merged models.Penalty, version int64, ack bool) error {
	return dbx.WithTx(ctx, o.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		jr := journal.NewSQLiteRepository(tx)
		pr := penalties.NewSQLiteRepository(tx)
		if ack {
			if err := jr.Acknowledge(ctx, e.Seq); err != nil {
				return err
			}
		}
		left, err := jr.PendingForPenalty(ctx, e.PenaltyID)
		if err != nil {
			return err
		}
		merged.Version = version
		merged.Pending = len(left) > 0
		return pr.Upsert(ctx, &merged)
	})
}

// apply merges a pulled change set into the local store and advances the
// cursor only after every change landed.
func (o *Orchestrator) apply(ctx context.Context, cs *gateway.ChangeSet) error {
	for i := range cs.Penalties {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.applyRemote(ctx, &cs.Penalties[i]); err != nil {
			return err
		}
	}
	if cs.NextCursor > 0 {
		if err := o.metadata.SetCursor(ctx, cs.NextCursor); err != nil {
			return err
		}
	}
	return nil
}

// applyRemote lands one remote change. When local pending mutations exist for
// the record the resolver merges; the pending journal entries stay queued and
// will carry the local side of the merge on the next drain.
func (o *Orchestrator) applyRemote(ctx context.Context, remote *models.Penalty) error {
	local, err := o.penalties.GetByID(ctx, remote.ID)
	if errors.Is(err, common.ErrNotFound) {
		p := *remote
		p.Pending = false
		return o.penalties.Upsert(ctx, &p)
	}
	if err != nil {
		return err
	}

	pending, err := o.journal.PendingForPenalty(ctx, remote.ID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		p := *remote
		p.Pending = false
		return o.penalties.Upsert(ctx, &p)
	}

	res := Resolve(local, remote)
	p := res.Merged
	p.Version = remote.Version
	p.Pending = true
	return o.penalties.Upsert(ctx, &p)
}
