package txn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/fsutil"
	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
)

// applyAssets runs removals in plan order, then additions on the worker pool. No new
// operation starts once ctx is cancelled or an operation has failed.
func (c *Coordinator) applyAssets(ctx context.Context, req Request, tx *Transaction, j *journal, reporter Reporter, log *zap.Logger) error {
	if err := c.sys.MkdirAll(stagingPath(req.Layout.AudioRoot), 0o755); err != nil {
		return fmt.Errorf(messages.TxnCreateStateDirFmt, err)
	}
	for _, op := range tx.Plan.Removals() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.runOp(ctx, req, tx, j, reporter, log, op); err != nil {
			return err
		}
	}

	adds := tx.Plan.Additions()
	if len(adds) == 0 {
		return nil
	}
	workers := req.Config.Apply.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, op := range adds {
		op := op
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return c.runOp(gctx, req, tx, j, reporter, log, op)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// runOp applies op with retries and journals the outcome. The operation itself runs on a
// context that is never cancelled; ctx only decides whether another attempt starts.
func (c *Coordinator) runOp(ctx context.Context, req Request, tx *Transaction, j *journal, reporter Reporter, log *zap.Logger, op reconcile.Operation) error {
	opCtx := context.WithoutCancel(ctx)
	attempts, err := c.retry(ctx, req.Config.Apply, describe(op), func(context.Context) error {
		return c.applyOnce(opCtx, req, op, reporter)
	})

	o := Outcome{Kind: op.Kind, Path: op.Path, Dir: op.Dir, Attempts: attempts}
	if err != nil {
		o.Error = err.Error()
	}
	tx.record(o)
	reporter.OperationDone(o)
	if jerr := j.op(o); jerr != nil && err == nil {
		err = jerr
	}
	if err != nil {
		return fmt.Errorf(messages.TxnOperationFmt, describe(op), attempts, err)
	}
	log.Debug("applied", zap.String("op", describe(op)), zap.Int("attempts", attempts))
	return nil
}

// retry calls fn until it succeeds, fails permanently, or cfg.MaxAttempts is reached,
// doubling the backoff after each failed attempt. Cancelling ctx ends the wait between
// attempts. It returns the number of attempts made.
func (c *Coordinator) retry(ctx context.Context, cfg config.Apply, what string, fn func(context.Context) error) (int, error) {
	backoff := cfg.Backoff()
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) || attempt >= maxAttempts || ctx.Err() != nil {
			return attempt, err
		}
		c.log.Debug("retrying",
			zap.String("op", what),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		if c.sleep(ctx, backoff) != nil {
			return attempt, err
		}
		backoff *= 2
	}
}

// retryable reports whether another attempt may succeed. Disk full, read-only filesystems,
// permission errors, and invalid input never are.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case fsutil.IsNoSpace(err), fsutil.IsReadOnly(err), errors.Is(err, os.ErrPermission):
		return false
	case manifest.IsRetryable(err), errors.Is(err, reconcile.ErrChecksumMismatch):
		return true
	}
	return fsutil.IsTransient(err)
}

func (c *Coordinator) applyOnce(ctx context.Context, req Request, op reconcile.Operation, reporter Reporter) error {
	switch op.Kind {
	case reconcile.KindRemove:
		return c.remove(req, op)
	case reconcile.KindAdd:
		return c.add(ctx, req, op, reporter)
	}
	return fmt.Errorf(messages.TxnUnknownOperationFmt, op.Kind)
}

// remove deletes a file or an empty directory. A path that is already gone counts as done.
func (c *Coordinator) remove(req Request, op reconcile.Operation) error {
	target := audioPath(req.Layout, op.Path)
	if err := c.sys.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(messages.TxnRemoveFmt, target, err)
	}
	return nil
}

// add downloads into the staging directory, verifying size and checksum while streaming,
// then renames the verified file into place.
func (c *Coordinator) add(ctx context.Context, req Request, op reconcile.Operation, reporter Reporter) error {
	if op.Descriptor == nil {
		return fmt.Errorf(messages.TxnMissingDescriptorFmt, op.Path)
	}
	if req.Provider == nil {
		return &manifest.FetchError{Source: op.Path, Err: manifest.ErrNoSource}
	}
	d := *op.Descriptor

	body, err := req.Provider.FetchBlob(ctx, d)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	tmp, err := c.sys.CreateTemp(stagingPath(req.Layout.AudioRoot), "blob-*")
	if err != nil {
		return fmt.Errorf(messages.TxnCreateStagingFmt, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = c.sys.Remove(tmpName)
		}
	}()

	src := fetchReader{r: body, source: d.Path}
	dst := countingWriter{w: tmp, report: reporter.Downloaded}
	if _, err := reconcile.Copy(dst, src, d); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.TxnSyncStagingFmt, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.TxnCloseStagingFmt, tmpName, err)
	}

	target := audioPath(req.Layout, d.Path)
	if err := c.sys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf(messages.TxnMkdirFmt, filepath.Dir(target), err)
	}
	if err := c.sys.Rename(tmpName, target); err != nil {
		return fmt.Errorf(messages.TxnRenameFmt, target, err)
	}
	committed = true
	return nil
}

// fetchReader marks read failures of a blob body as retryable fetch errors.
type fetchReader struct {
	r      io.Reader
	source string
}

func (f fetchReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err != nil && err != io.EOF {
		var fetchErr *manifest.FetchError
		if !errors.As(err, &fetchErr) {
			err = &manifest.FetchError{Source: f.source, Retryable: true, Err: err}
		}
	}
	return n, err
}

type countingWriter struct {
	w      io.Writer
	report func(int64)
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.report(int64(n))
	}
	return n, err
}
