package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options are the optional collaborators of the engines
type Options struct {
	Hooks     Hooks
	Listeners []RowListener
	Filter    *Query       // restricts which records are pushed
	Logger    *slog.Logger // default: slog.Default()
}

func (o *Options) withDefaults() *Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &opts
}

// Result reports what one sync operation did. A phase that did not run is nil.
type Result struct {
	Target string
	Pull   *PullResult
	Push   *PushResult
}

// Syncer synchronizes one target in the direction given by its Mode.
// Each call works on a fresh read of the sheet. Calls for the same sheet must
// not run concurrently.
type Syncer struct {
	client *Client
	target Target
	store  Store
	opts   *Options
}

// New creates a syncer after applying defaults to and validating target
func New(client *Client, target Target, store Store, opts *Options) (*Syncer, error) {
	target.ApplyDefaults()
	if err := target.Validate(); err != nil {
		return nil, err
	}

	return &Syncer{
		client: client,
		target: target,
		store:  store,
		opts:   opts.withDefaults(),
	}, nil
}

// Target returns the validated target configuration
func (s *Syncer) Target() Target {
	return s.target
}

// Run dispatches on the target's mode
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	switch s.target.Mode {
	case ModePull:
		return s.Pull(ctx)
	case ModePush:
		return s.Push(ctx)
	default:
		return s.Sync(ctx)
	}
}

// Sync pulls the sheet to completion, then pushes the store to completion.
// Both phases share one read of the sheet. A failure in either phase aborts the
// sync; work already written by the pull is not rolled back.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	cache := NewSheetCache(s.client, s.target.Location)
	result := &Result{Target: s.target.Name}

	pull, err := NewPuller(s.client, cache, s.target, s.store, s.opts).PullSheet(ctx)
	result.Pull = pull
	if err != nil {
		return result, fmt.Errorf("pull %s: %w", s.target.Name, err)
	}

	push, err := NewPusher(s.client, cache, s.target, s.store, s.opts).UpsertTable(ctx)
	result.Push = push
	if err != nil {
		return result, fmt.Errorf("push %s: %w", s.target.Name, err)
	}

	return result, nil
}

// Pull runs only the pull phase
func (s *Syncer) Pull(ctx context.Context) (*Result, error) {
	cache := NewSheetCache(s.client, s.target.Location)
	pull, err := NewPuller(s.client, cache, s.target, s.store, s.opts).PullSheet(ctx)
	if err != nil {
		err = fmt.Errorf("pull %s: %w", s.target.Name, err)
	}
	return &Result{Target: s.target.Name, Pull: pull}, err
}

// Push runs only the push phase
func (s *Syncer) Push(ctx context.Context) (*Result, error) {
	cache := NewSheetCache(s.client, s.target.Location)
	push, err := NewPusher(s.client, cache, s.target, s.store, s.opts).UpsertTable(ctx)
	if err != nil {
		err = fmt.Errorf("push %s: %w", s.target.Name, err)
	}
	return &Result{Target: s.target.Name, Push: push}, err
}

// PushRecord pushes a single record identified by id
func (s *Syncer) PushRecord(ctx context.Context, id string) (*Result, error) {
	cache := NewSheetCache(s.client, s.target.Location)
	push, err := NewPusher(s.client, cache, s.target, s.store, s.opts).PushRecord(ctx, id)
	if err != nil {
		err = fmt.Errorf("push %s record %s: %w", s.target.Name, id, err)
	}
	return &Result{Target: s.target.Name, Push: push}, err
}

// Runner syncs several targets one after another.
type Runner struct {
	syncers []*Syncer
	logger  *slog.Logger
}

// NewRunner creates a runner. A nil logger uses slog.Default().
func NewRunner(logger *slog.Logger, syncers ...*Syncer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{syncers: syncers, logger: logger}
}

// Run syncs every target in order. A failing target does not stop the others;
// all failures are returned joined.
func (r *Runner) Run(ctx context.Context) ([]*Result, error) {
	r.logger.Info("found syncable targets", slog.Int("count", len(r.syncers)))

	var results []*Result
	var errs []error
	for _, s := range r.syncers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		start := time.Now()
		result, err := s.Run(ctx)
		results = append(results, result)
		if err != nil {
			r.logger.Error("sync failed",
				slog.String("target", s.target.Name),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}

		r.logger.Info("synced target",
			slog.String("target", s.target.Name),
			slog.String("mode", string(s.target.Mode)),
			slog.Duration("elapsed", time.Since(start)))
	}

	return results, errors.Join(errs...)
}
