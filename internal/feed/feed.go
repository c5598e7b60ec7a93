// Package feed listens to the server's change feed over a websocket and
// refreshes the cached tree when the server reports a change.
package feed

//go:generate mockgen -source=feed.go -destination=mock_wsconn_test.go -package=feed -exclude_interfaces=Refresher -mock_names=wsConn=MockWSConn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
)

const (
	reconnectMin = 5 * time.Second
	reconnectMax = 5 * time.Minute

	// jitterDivisor controls the range of random jitter added to
	// reconnect backoff: jitter is uniform in [0, backoff/jitterDivisor).
	jitterDivisor = 2

	// reconnectBackoffMultiplier is the exponential growth factor
	// applied to the reconnect backoff after each consecutive failure.
	reconnectBackoffMultiplier = 2

	// frameReadLimit caps a single feed frame. Frames only name what
	// changed, never carry tree contents.
	frameReadLimit = 64 * 1024
)

// Refresher is the part of the engine the feed drives.
type Refresher interface {
	RefreshFullTree(ctx context.Context) error
	RefreshBranch(ctx context.Context, folderID *int64) error
}

// wsConn abstracts the websocket connection for testing. The concrete
// implementation is *websocket.Conn from github.com/coder/websocket.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Close(code websocket.StatusCode, reason string) error
	SetReadLimit(n int64)
}

type dialFunc func(ctx context.Context, url string) (wsConn, error)

// Listener consumes change frames and turns them into refreshes.
//
// A frame is a JSON object with an "op" field:
//
//	{"op":"tree"}                    refresh the whole tree
//	{"op":"branch","folder_id":12}   refresh one folder
//	{"op":"branch","folder_id":null} refresh the root collections
//
// Unknown ops and malformed frames are ignored.
type Listener struct {
	url       string
	refresher Refresher
	logger    *slog.Logger
	dial      dialFunc
}

// New creates a Listener for the feed at url ("ws://" or "wss://").
func New(url string, refresher Refresher, logger *slog.Logger) *Listener {
	return &Listener{
		url:       url,
		refresher: refresher,
		logger:    logger,
		dial:      dialWebsocket,
	}
}

func dialWebsocket(ctx context.Context, url string) (wsConn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{ //nolint:bodyclose // websocket.Dial closes the response body internally
		HTTPHeader: http.Header{
			"User-Agent": []string{"marksync"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dialing websocket: %w", err)
	}

	return conn, nil
}

// Run connects to the feed and processes frames until ctx is done,
// reconnecting with exponential backoff whenever the connection fails.
// After a reconnect the whole tree is refreshed, since frames sent while
// disconnected are lost. Run only returns ctx.Err().
func (l *Listener) Run(ctx context.Context) error {
	backoff := reconnectMin
	connectedBefore := false

	for {
		conn, err := l.dial(ctx, l.url)
		if err == nil {
			l.logger.Info("change feed connected", slog.String("url", l.url))

			if connectedBefore {
				l.refresh(ctx, "tree", func(ctx context.Context) error {
					return l.refresher.RefreshFullTree(ctx)
				})
			}

			connectedBefore = true
			backoff = reconnectMin

			err = l.serve(ctx, conn)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Warn("change feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		jitter := time.Duration(rand.Int64N(int64(backoff) / jitterDivisor)) //nolint:gosec // G404: math/rand is fine for reconnect jitter, no security impact

		timer := time.NewTimer(backoff + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*reconnectBackoffMultiplier, reconnectMax)
	}
}

// serve reads frames from one connection until it fails.
func (l *Listener) serve(ctx context.Context, conn wsConn) error {
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	conn.SetReadLimit(frameReadLimit)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		if typ == websocket.MessageBinary {
			l.logger.Debug("ignoring binary frame", slog.Int("bytes", len(data)))
			continue
		}

		l.handle(ctx, data)
	}
}

// handle dispatches one text frame. Refresh failures are logged and do
// not end the connection; the next frame or reconnect retries.
func (l *Listener) handle(ctx context.Context, data []byte) {
	if !gjson.ValidBytes(data) {
		l.logger.Debug("ignoring malformed frame", slog.Int("bytes", len(data)))
		return
	}

	switch op := gjson.GetBytes(data, "op").String(); op {
	case "tree":
		l.refresh(ctx, "tree", func(ctx context.Context) error {
			return l.refresher.RefreshFullTree(ctx)
		})
	case "branch":
		folderID, err := branchFolder(data)
		if err != nil {
			l.logger.Debug("ignoring branch frame", slog.String("error", err.Error()))
			return
		}

		l.refresh(ctx, "branch "+models.ParentString(folderID), func(ctx context.Context) error {
			return l.refresher.RefreshBranch(ctx, folderID)
		})
	default:
		l.logger.Debug("ignoring unknown op", slog.String("op", op))
	}
}

func (l *Listener) refresh(ctx context.Context, what string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		l.logger.Warn("feed refresh failed",
			slog.String("refresh", what),
			slog.String("error", err.Error()),
		)

		return
	}

	l.logger.Debug("feed refresh applied", slog.String("refresh", what))
}

var errBadFolderID = errors.New("folder_id must be an integer or null")

// branchFolder extracts folder_id from a branch frame. A null id means
// the root collections.
func branchFolder(data []byte) (*int64, error) {
	res := gjson.GetBytes(data, "folder_id")

	switch {
	case !res.Exists():
		return nil, fmt.Errorf("missing folder_id: %w", errBadFolderID)
	case res.Type == gjson.Null:
		return nil, nil
	case res.Type == gjson.Number && res.Num == float64(res.Int()) && res.Int() > 0:
		return models.ID(res.Int()), nil
	}

	return nil, fmt.Errorf("folder_id %s: %w", res.Raw, errBadFolderID)
}
