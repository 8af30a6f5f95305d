// Package txn coordinates one language change: plan, apply assets, rewrite the record, commit.
package txn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/layout"
	"github.com/conn-castle/langpatch/internal/logging"
	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/record"
	"github.com/conn-castle/langpatch/internal/reconcile"
)

// Reporter receives progress events. Methods may be called from several goroutines.
type Reporter interface {
	Planned(tx *Transaction)
	StateChanged(state State)
	Downloaded(n int64)
	OperationDone(o Outcome)
}

// NopReporter ignores every event.
type NopReporter struct{}

// Planned implements Reporter.
func (NopReporter) Planned(*Transaction) {}

// StateChanged implements Reporter.
func (NopReporter) StateChanged(State) {}

// Downloaded implements Reporter.
func (NopReporter) Downloaded(int64) {}

// OperationDone implements Reporter.
func (NopReporter) OperationDone(Outcome) {}

// Options configures a Coordinator. Nil fields use the real filesystem and a nop logger.
type Options struct {
	System  System
	Records record.System
	Scanner reconcile.System
	Logger  *zap.Logger
}

// Coordinator runs patch transactions. It is the only component that decides between
// retrying and aborting.
type Coordinator struct {
	sys     System
	records record.System
	scanner reconcile.System
	log     *zap.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	idMu    sync.Mutex
	entropy io.Reader
}

// New returns a Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		sys:     opts.System,
		records: opts.Records,
		scanner: opts.Scanner,
		log:     logging.OrNop(opts.Logger),
		now:     time.Now,
		sleep:   sleepContext,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if c.sys == nil {
		c.sys = RealSystem{}
	}
	if c.records == nil {
		c.records = record.RealSystem{}
	}
	if c.scanner == nil {
		c.scanner = reconcile.RealSystem{}
	}
	return c
}

// Request describes one language change.
type Request struct {
	Layout layout.Layout
	Config *config.Config
	Target lang.Selection
	// Provider may be nil when no manifest source is configured; only a change that keeps
	// the voice language can then succeed.
	Provider manifest.Provider
	Reporter Reporter
}

// Preview is the outcome of planning without applying.
type Preview struct {
	Previous    lang.Selection `json:"previous"`
	Target      lang.Selection `json:"target"`
	Plan        reconcile.Plan `json:"plan"`
	RecordDiff  string         `json:"record_diff,omitempty"`
	Interrupted *Interrupted   `json:"interrupted,omitempty"`
}

// Result describes a finished Run.
type Result struct {
	Previous lang.Selection
	Target   lang.Selection
	// NoOp is true when the installation already matched the target.
	NoOp bool
	// Transaction is nil for a no-op.
	Transaction *Transaction
	Interrupted *Interrupted
}

// Inspect validates the request and computes the plan and record diff without writing.
func (c *Coordinator) Inspect(ctx context.Context, req Request) (Preview, error) {
	if err := validateRequest(req); err != nil {
		return Preview{}, err
	}
	preview, err := c.prepare(ctx, req)
	if err != nil {
		return Preview{}, err
	}
	preview.Interrupted = c.interrupted(req.Layout)
	return preview, nil
}

// Run performs the language change. A second Run with the same target is a no-op.
// Failures are returned as *PhaseError; the record is only rewritten after every asset
// operation succeeded.
func (c *Coordinator) Run(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	reporter := req.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	interrupted := c.interrupted(req.Layout)
	if interrupted != nil {
		c.log.Info("found interrupted transaction",
			zap.String("tx", interrupted.ID),
			zap.String("state", string(interrupted.State)),
			zap.Int("applied", interrupted.Applied),
			zap.Int("operations", interrupted.Operations))
	}

	preview, err := c.prepare(ctx, req)
	if err != nil {
		return Result{Previous: preview.Previous, Target: req.Target, Interrupted: interrupted}, err
	}
	res := Result{Previous: preview.Previous, Target: req.Target, Interrupted: interrupted}
	if preview.Plan.Empty() && preview.RecordDiff == "" {
		res.NoOp = true
		if interrupted != nil {
			c.discardState(req.Layout)
		}
		c.log.Debug("installation already matches target", zap.String("target", req.Target.String()))
		return res, nil
	}

	tx := &Transaction{
		ID:       c.newID(),
		Previous: preview.Previous,
		Target:   req.Target,
		Plan:     preview.Plan,
		State:    StatePlanned,
	}
	res.Transaction = tx
	return res, c.execute(ctx, req, tx, reporter)
}

func validateRequest(req Request) error {
	if req.Config == nil {
		return &PhaseError{Phase: PhaseValidate, Err: errors.New(messages.TxnConfigRequired)}
	}
	set, err := req.Config.LanguageSet()
	if err != nil {
		return &PhaseError{Phase: PhaseValidate, Err: err}
	}
	if err := req.Target.Validate(set); err != nil {
		return &PhaseError{Phase: PhaseValidate, Err: err}
	}
	return nil
}

func (c *Coordinator) prepare(ctx context.Context, req Request) (Preview, error) {
	snap, err := record.Inspect(c.records, req.Layout, req.Config.Record)
	if err != nil {
		return Preview{}, &PhaseError{Phase: PhasePlan, Err: err}
	}
	plan, err := c.plan(ctx, req, snap.Selection.Voice)
	if err != nil {
		return Preview{Previous: snap.Selection, Target: req.Target}, &PhaseError{Phase: PhasePlan, Err: err}
	}
	c.log.Debug("planned",
		zap.String("previous", snap.Selection.String()),
		zap.String("target", req.Target.String()),
		zap.Int("operations", len(plan.Operations)),
		zap.Int("kept", len(plan.Kept)))
	return Preview{
		Previous:   snap.Selection,
		Target:     req.Target,
		Plan:       plan,
		RecordDiff: record.Diff(snap, req.Target),
	}, nil
}

func (c *Coordinator) plan(ctx context.Context, req Request, previousVoice string) (reconcile.Plan, error) {
	if req.Provider == nil {
		if previousVoice == req.Target.Voice {
			return reconcile.Plan{Voice: req.Target.Voice, Operations: []reconcile.Operation{}, Kept: []string{}}, nil
		}
		return reconcile.Plan{}, &manifest.FetchError{Source: req.Target.Voice, Err: manifest.ErrNoSource}
	}

	var descriptors []manifest.Descriptor
	_, err := c.retry(ctx, req.Config.Apply, "fetch manifest", func(ctx context.Context) error {
		var err error
		descriptors, err = req.Provider.FetchManifest(ctx, req.Target.Voice)
		return err
	})
	if err != nil {
		return reconcile.Plan{}, err
	}

	idx, err := reconcile.Scan(ctx, c.scanner, req.Layout.AudioRoot)
	if err != nil {
		return reconcile.Plan{}, err
	}
	if err := idx.Fingerprint(ctx, c.scanner, req.Layout.AudioRoot, descriptors); err != nil {
		return reconcile.Plan{}, err
	}
	return reconcile.Build(idx, descriptors, reconcile.Options{
		Voice:        req.Target.Voice,
		LanguageDirs: req.Config.Audio.LanguageDirs,
	})
}

func (c *Coordinator) execute(ctx context.Context, req Request, tx *Transaction, reporter Reporter) error {
	log := c.log.With(zap.String("tx", tx.ID))
	j, err := createJournal(c.sys, req.Layout.AudioRoot, tx.ID, c.now)
	if err != nil {
		tx.State = StateRolledBack
		reporter.StateChanged(tx.State)
		return &PhaseError{Phase: PhaseAssets, TxID: tx.ID, Err: err}
	}

	runErr := c.apply(ctx, req, tx, j, reporter, log)
	if closeErr := j.close(); closeErr != nil {
		log.Warn("close journal", zap.Error(closeErr))
	}
	if tx.State == StateCommitted || tx.State == StateRolledBack {
		c.discardState(req.Layout)
	}
	return runErr
}

func (c *Coordinator) apply(ctx context.Context, req Request, tx *Transaction, j *journal, reporter Reporter, log *zap.Logger) error {
	if err := c.transition(j, tx, StatePlanned, reporter); err != nil {
		return c.fail(j, tx, PhaseAssets, err, reporter, log)
	}
	reporter.Planned(tx)
	if err := c.transition(j, tx, StateAssetsApplying, reporter); err != nil {
		return c.fail(j, tx, PhaseAssets, err, reporter, log)
	}
	if err := c.applyAssets(ctx, req, tx, j, reporter, log); err != nil {
		return c.fail(j, tx, PhaseAssets, err, reporter, log)
	}
	if err := ctx.Err(); err != nil {
		return c.fail(j, tx, PhaseAssets, err, reporter, log)
	}

	if err := record.Write(c.records, req.Layout, req.Config.Record, tx.Target); err != nil {
		return c.fail(j, tx, PhaseRecord, err, reporter, log)
	}
	log.Debug("record updated", zap.String("target", tx.Target.String()))
	if err := c.transition(j, tx, StateRecordUpdated, reporter); err != nil {
		return c.fail(j, tx, PhaseCommit, err, reporter, log)
	}
	if err := c.transition(j, tx, StateCommitted, reporter); err != nil {
		return c.fail(j, tx, PhaseCommit, err, reporter, log)
	}
	return nil
}

func (c *Coordinator) transition(j *journal, tx *Transaction, state State, reporter Reporter) error {
	tx.State = state
	reporter.StateChanged(state)
	return j.state(tx, "")
}

// fail ends the transaction. Nothing applied means nothing to resume, so the transaction
// counts as rolled back; otherwise it is failed and its journal is kept.
func (c *Coordinator) fail(j *journal, tx *Transaction, phase Phase, cause error, reporter Reporter, log *zap.Logger) error {
	if tx.State == StateRecordUpdated {
		tx.State = StateFailed
	} else if tx.Applied() == 0 {
		tx.State = StateRolledBack
	} else {
		tx.State = StateFailed
	}
	reporter.StateChanged(tx.State)
	if err := j.state(tx, cause.Error()); err != nil {
		log.Warn("journal failure state", zap.Error(err))
	}
	log.Debug("transaction ended", zap.String("state", string(tx.State)), zap.String("phase", string(phase)), zap.Error(cause))
	return &PhaseError{Phase: phase, TxID: tx.ID, Err: cause}
}

func (c *Coordinator) interrupted(l layout.Layout) *Interrupted {
	summary, ok, err := ReadJournal(c.sys, l.AudioRoot)
	if err != nil {
		c.log.Warn("unreadable journal", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return &summary
}

// discardState removes the journal and staging directory. The state directory itself is
// removed when that leaves it empty.
func (c *Coordinator) discardState(l layout.Layout) {
	for _, path := range []string{JournalPath(l.AudioRoot), stagingPath(l.AudioRoot)} {
		if err := c.sys.RemoveAll(path); err != nil {
			c.log.Warn("discard transaction state", zap.String("path", path), zap.Error(err))
		}
	}
	_ = c.sys.Remove(StateDirPath(l.AudioRoot))
}

// newID returns a transaction ID. IDs from one Coordinator sort in creation order, also
// within the same millisecond.
func (c *Coordinator) newID() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(c.now()), c.entropy).String()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status is a read-only view of an installation.
type Status struct {
	Layout      layout.Layout  `json:"layout"`
	Selection   lang.Selection `json:"selection"`
	VoiceLocal  []string       `json:"voice_local"`
	Interrupted *Interrupted   `json:"interrupted,omitempty"`
}

// Status reads the current selection, the voice languages with files present, and any
// interrupted journal. It never writes.
func (c *Coordinator) Status(ctx context.Context, l layout.Layout, cfg *config.Config) (Status, error) {
	if cfg == nil {
		return Status{}, errors.New(messages.TxnConfigRequired)
	}
	st := Status{Layout: l, VoiceLocal: []string{}, Interrupted: c.interrupted(l)}
	sel, err := record.Read(c.records, l, cfg.Record)
	if err != nil {
		return st, err
	}
	st.Selection = sel

	idx, err := reconcile.Scan(ctx, c.scanner, l.AudioRoot)
	if err != nil {
		return st, err
	}
	opts := reconcile.Options{LanguageDirs: cfg.Audio.LanguageDirs}
	present := map[string]struct{}{}
	for p := range idx.Files {
		if owner := opts.Owner(p); owner != "" {
			present[owner] = struct{}{}
		}
	}
	for code := range present {
		st.VoiceLocal = append(st.VoiceLocal, code)
	}
	sort.Strings(st.VoiceLocal)
	return st, nil
}

func audioPath(l layout.Layout, rel string) string {
	return filepath.Join(l.AudioRoot, filepath.FromSlash(rel))
}

func describe(op reconcile.Operation) string {
	if op.Dir {
		return fmt.Sprintf("%s dir %s", op.Kind, op.Path)
	}
	return fmt.Sprintf("%s %s", op.Kind, op.Path)
}
