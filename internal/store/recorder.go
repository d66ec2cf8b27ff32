package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/uispec/internal/runner"
)

// Recorder is a runner.Observer that writes each finished run to a Store.
//
// Observers cannot return errors, so the outcome of the last write is kept
// for the caller to check with Err.
type Recorder struct {
	runner.NopObserver

	ctx    context.Context
	store  *Store
	logger zerolog.Logger

	seq int64
	err error
}

// writeTimeout bounds a single history write.
const writeTimeout = 5 * time.Second

// NewRecorder creates a recorder that writes with ctx. Cancellation of ctx
// does not stop the write: an interrupted run is still recorded, with its
// unfinished cases marked Timeout.
func NewRecorder(ctx context.Context, s *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{ctx: ctx, store: s, logger: logger}
}

// RunFinished writes r.
func (rec *Recorder) RunFinished(r *runner.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(rec.ctx), writeTimeout)
	defer cancel()
	seq, err := rec.store.WriteRun(ctx, r)
	rec.seq, rec.err = seq, err
	if err != nil {
		rec.logger.Error().Err(err).Str("run_id", r.RunID).Msg("failed to record run")
		return
	}
	rec.logger.Debug().Str("run_id", r.RunID).Int64("seq", seq).Msg("run recorded")
}

// Seq returns the seq of the last recorded run.
func (rec *Recorder) Seq() int64 { return rec.seq }

// Err returns the error from the last write, if any.
func (rec *Recorder) Err() error { return rec.err }
