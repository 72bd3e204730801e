package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salon/internal/core"
	applog "salon/internal/log"
)

// Saver persists a full state.
type Saver interface {
	Save(ctx context.Context, s core.State) error
}

// Autosaver writes the latest state behind the store. Bursts of changes
// collapse into one write and readers never wait for it.
type Autosaver struct {
	saver  Saver
	logger *applog.Logger

	mu         sync.Mutex
	pending    *core.State
	pendingRev uint64
	savedRev   uint64
	running    bool

	saveMu sync.Mutex
	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewAutosaver(saver Saver, logger *applog.Logger) *Autosaver {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Autosaver{
		saver:  saver,
		logger: logger.WithComponent(applog.ComponentAutosave),
		wake:   make(chan struct{}, 1),
	}
}

// Notify queues s for saving. It matches ChangeFunc so it can be passed to
// DataStore.OnChange. States older than one already queued or saved are
// dropped.
func (a *Autosaver) Notify(revision uint64, s core.State) {
	a.mu.Lock()
	if revision <= a.pendingRev || revision <= a.savedRev {
		a.mu.Unlock()
		return
	}
	a.pending = &s
	a.pendingRev = revision
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a change is waiting to be written.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Start runs the write loop on its own goroutine.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("autosaver is already running")
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.mu.Unlock()

	go a.loop(ctx)
	return nil
}

func (a *Autosaver) loop(ctx context.Context) {
	defer close(a.doneCh)
	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-a.wake:
			a.writePending(ctx)
		}
	}
}

// Flush writes the pending state, if any, and waits for it.
func (a *Autosaver) Flush(ctx context.Context) error {
	return a.writePending(ctx)
}

func (a *Autosaver) writePending(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	s, rev := a.pending, a.pendingRev
	a.pending = nil
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	start := time.Now()
	err := a.saver.Save(ctx, *s)
	fields := applog.NewFields()
	fields[applog.FieldRevision] = rev
	if err != nil {
		// Nothing is retried; the next change queues a fresh write.
		a.logger.LogOperation(ctx, applog.OpSave, start, err, fields)
		return fmt.Errorf("save revision %d: %w", rev, err)
	}

	a.mu.Lock()
	if rev > a.savedRev {
		a.savedRev = rev
	}
	a.mu.Unlock()
	a.logger.LogOperation(ctx, applog.OpSave, start, nil, fields)
	return nil
}

// Close stops the loop and flushes whatever is still pending.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	running := a.running
	a.running = false
	a.mu.Unlock()

	if running {
		close(a.stopCh)
		select {
		case <-a.doneCh:
		case <-ctx.Done():
			a.logger.WarnContext(ctx, "Autosaver stop timed out")
			return ctx.Err()
		}
	}
	return a.Flush(ctx)
}
