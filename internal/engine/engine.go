// Package engine applies bookmark operations: each one calls the server
// and, once the server has accepted it, applies the matching change to
// the cached tree.
package engine

//go:generate mockgen -destination=mock_remote_test.go -package=engine . Remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexjbarnes/marksync/internal/cache"
	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/tree"
	"golang.org/x/sync/singleflight"
)

// Remote is the server side of every operation. *client.Client
// implements it.
type Remote interface {
	FetchTree(ctx context.Context) (models.RootItems, error)
	FetchBranch(ctx context.Context, folderID *int64) (models.RootItems, error)
	CreateFolder(ctx context.Context, req models.CreateFolderRequest) (int64, error)
	CreateBookmark(ctx context.Context, req models.CreateBookmarkRequest) (int64, error)
	UpdateFolder(ctx context.Context, req models.UpdateFolderRequest) error
	UpdateBookmark(ctx context.Context, req models.UpdateBookmarkRequest) error
	DeleteFolder(ctx context.Context, id int64) error
	DeleteBookmark(ctx context.Context, id int64) error
	Move(ctx context.Context, req models.MoveRequest) error
	MoveToRoot(ctx context.Context, req models.MoveRequest) error
	ToggleFavorite(ctx context.Context, id int64) error
}

// errNoID is returned internally when the server acknowledged a create
// without reporting the new id.
var errNoID = errors.New("server did not return an id")

var errAlreadyLoaded = errors.New("tree already loaded")

// errOvertaken is returned by a full refresh whose every fetch raced a
// change sent to the server.
var errOvertaken = errors.New("tree changed on the server while it was being fetched")

// errReflected reports a confirmed change the published tree already
// contains.
var errReflected = errors.New("change already in published tree")

// errStaleBranch reports a branch that raced a change sent to the server.
var errStaleBranch = errors.New("branch fetched before a confirmed change")

// maxFetchAttempts bounds how often a full refresh fetches again after
// racing changes sent to the server.
const maxFetchAttempts = 3

// refreshKey is the singleflight key shared by full refreshes.
const refreshKey = "tree"

// Engine runs tree operations against a Remote and keeps a cache in step
// with the server.
//
// Local changes are applied only after the server confirms the remote
// call, and always to the latest published snapshot, so two operations
// whose calls overlap cannot undo each other's result. When the cached
// tree cannot absorb a confirmed change (the target is missing, an id
// already exists, nothing is loaded yet) the engine refetches the whole
// tree instead.
//
// A fetched tree is only published if no change was confirmed by the
// server after the fetch started and no change is awaiting the server.
// Otherwise it may or may not hold that change and is fetched again.
type Engine struct {
	remote Remote
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time

	refreshes singleflight.Group

	// confirms counts changes the server has accepted. treeGen is the
	// value confirms had when the published full tree was fetched, so
	// that tree reflects every change up to and including treeGen.
	confirms atomic.Uint64
	treeGen  atomic.Uint64

	// calls counts remote calls that change server state and have not
	// returned yet. idle, when set, is closed once calls drops to zero.
	callsMu sync.Mutex
	calls   int
	idle    chan struct{}
}

// New creates an Engine that publishes into c.
func New(remote Remote, c *cache.Cache, logger *slog.Logger) *Engine {
	return &Engine{
		remote: remote,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// Cache returns the cache the engine publishes into.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// RefreshFullTree fetches the whole tree and replaces the cached
// snapshot with it. Concurrent calls share one fetch. On failure the
// previous snapshot stays published.
//
// The fetch is not tied to ctx: a caller that gives up stops waiting,
// but the fetch still completes and is published for everyone else.
func (e *Engine) RefreshFullTree(ctx context.Context) error {
	ch := e.refreshes.DoChan(refreshKey, func() (any, error) {
		return nil, e.refreshFullTree(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) refreshFullTree(ctx context.Context) error {
	e.cache.SetLoading(true)

	for attempt := 1; ; attempt++ {
		gen := e.confirms.Load()

		root, err := e.remote.FetchTree(ctx)
		if err != nil {
			e.cache.SetLoading(false)
			e.logger.Warn("full tree refresh failed", slog.String("error", err.Error()))

			return fmt.Errorf("refreshing tree: %w", err)
		}

		root = tree.Normalize(root)
		if err := tree.Check(root); err != nil {
			e.logger.Warn("server tree is inconsistent", slog.String("error", err.Error()))
		}

		published := e.cache.ReplaceIf(cache.State{Data: &root}, func() bool {
			if e.busy() || e.confirms.Load() != gen {
				return false
			}

			e.treeGen.Store(gen)

			return true
		})
		if published {
			folders, bookmarks := tree.Counts(root)
			e.logger.Debug("full tree refreshed",
				slog.Int("folders", folders),
				slog.Int("bookmarks", bookmarks),
				slog.Int("attempt", attempt),
			)

			return nil
		}

		if attempt == maxFetchAttempts {
			e.cache.SetLoading(false)
			e.logger.Warn("full tree refresh kept being overtaken", slog.Int("attempts", attempt))

			return fmt.Errorf("refreshing tree: %w", errOvertaken)
		}

		e.logger.Debug("fetched tree raced a change sent to the server, fetching again")
		e.waitIdle()
	}
}

// RefreshBranch fetches the direct contents of folderID (the root
// collections when nil) and splices them into the cached tree.
func (e *Engine) RefreshBranch(ctx context.Context, folderID *int64) error {
	gen := e.confirms.Load()

	branch, err := e.remote.FetchBranch(ctx, folderID)
	if err != nil {
		e.logger.Warn("branch refresh failed",
			slog.String("folder_id", models.ParentString(folderID)),
			slog.String("error", err.Error()),
		)

		return fmt.Errorf("refreshing branch %s: %w", models.ParentString(folderID), err)
	}

	return e.reconcile(ctx, "refresh branch", 0, func(root models.RootItems) (models.RootItems, error) {
		if e.busy() || e.confirms.Load() != gen {
			return root, errStaleBranch
		}

		return tree.SpliceBranch(root, folderID, branch)
	})
}

// Seed publishes root as the cached tree if nothing has been loaded
// yet. It reports whether root was published.
func (e *Engine) Seed(root models.RootItems) bool {
	err := e.cache.Update(func(_ models.RootItems, ok bool) (models.RootItems, error) {
		if ok {
			return models.RootItems{}, errAlreadyLoaded
		}

		return tree.Normalize(root), nil
	})
	if err != nil {
		return false
	}

	e.cache.SetLoading(false)

	return true
}

// reconcile applies fn to the latest snapshot and publishes the
// normalized result. It is called only after the server accepted a
// change, so any failure to apply it locally means the cache has
// drifted and is repaired with a full refresh.
//
// confirmed is the sequence number call returned for that change, or 0 for
// data that is not a confirmed change. A change is skipped when the
// published tree was fetched after it was confirmed.
func (e *Engine) reconcile(ctx context.Context, op string, confirmed uint64, fn func(models.RootItems) (models.RootItems, error)) error {
	err := e.cache.Update(func(cur models.RootItems, ok bool) (models.RootItems, error) {
		if !ok {
			return cur, apperr.ErrNotLoaded
		}

		if confirmed != 0 && e.treeGen.Load() >= confirmed {
			return cur, errReflected
		}

		next, err := fn(cur)
		if err != nil {
			return cur, err
		}

		return tree.Normalize(next), nil
	})
	if err == nil {
		e.logger.Debug("operation applied", slog.String("operation", op))
		return nil
	}

	if errors.Is(err, errReflected) {
		e.logger.Debug("operation already in refreshed tree", slog.String("operation", op))
		return nil
	}

	return e.repair(ctx, op, err)
}

// repair replaces the cached tree after a confirmed change could not be
// applied locally. It never joins a refresh that is already in flight,
// since that fetch may have started before the change was confirmed.
func (e *Engine) repair(ctx context.Context, op string, cause error) error {
	e.logger.Info("cache out of step with server, refreshing full tree",
		slog.String("operation", op),
		slog.String("reason", cause.Error()),
	)

	e.refreshes.Forget(refreshKey)

	if err := e.RefreshFullTree(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%s: refreshing after %v: %w", op, cause, err)
	}

	return nil
}

// call runs a remote call that changes server state. While it is in
// flight no fetched tree is published. On success the change is counted
// as confirmed and its sequence number is returned for reconcile.
func (e *Engine) call(ctx context.Context, fn func(context.Context) error) (uint64, error) {
	e.callsMu.Lock()
	e.calls++
	e.callsMu.Unlock()

	defer e.endCall()

	if err := fn(ctx); err != nil {
		return 0, err
	}

	return e.confirms.Add(1), nil
}

func (e *Engine) endCall() {
	e.callsMu.Lock()
	defer e.callsMu.Unlock()

	e.calls--
	if e.calls == 0 && e.idle != nil {
		close(e.idle)
		e.idle = nil
	}
}

// busy reports whether a call that changes server state is in flight.
func (e *Engine) busy() bool {
	e.callsMu.Lock()
	defer e.callsMu.Unlock()

	return e.calls != 0
}

// waitIdle blocks until no call that changes server state is in flight.
func (e *Engine) waitIdle() {
	e.callsMu.Lock()
	if e.calls == 0 {
		e.callsMu.Unlock()
		return
	}

	if e.idle == nil {
		e.idle = make(chan struct{})
	}

	idle := e.idle
	e.callsMu.Unlock()

	<-idle
}

// detach runs fn on a context that outlives ctx. A caller whose ctx ends
// stops waiting and gets ctx's error, but fn runs to completion: a
// remote call already sent still lands and its local change is applied.
// Nothing is started when ctx is already done.
func detach[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)

	go func() {
		v, err := fn(context.WithoutCancel(ctx))
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// detachErr is detach for calls that return only an error.
func detachErr(ctx context.Context, fn func(context.Context) error) error {
	_, err := detach(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})

	return err
}

// precheck runs fn against the current snapshot, if there is one.
// Without a snapshot the server is left to decide.
func (e *Engine) precheck(fn func(models.RootItems) error) error {
	root, ok := e.cache.Snapshot()
	if !ok {
		return nil
	}

	return fn(root)
}

func (e *Engine) remoteFailed(op string, err error, attrs ...any) error {
	args := append([]any{slog.String("operation", op), slog.String("error", err.Error())}, attrs...)
	e.logger.Warn("remote call failed", args...)

	return fmt.Errorf("%s: %w", op, err)
}
