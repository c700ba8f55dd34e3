package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// lockEntry is the in-memory StoreEntry for one logical name. It exists only
// while at least one operation holds or waits for the name.
type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// lockTable serializes mutations per logical name.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

func newLockTable(timeout time.Duration) *lockTable {
	return &lockTable{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

// acquire locks every name in lexical order, so two operations on the same
// pair of names can never wait on each other in a cycle. It gives up with
// ErrBusy after the table timeout, or with ctx.Err() if the caller cancels.
// The returned func releases all names and must be called exactly once.
func (t *lockTable) acquire(ctx context.Context, names ...string) (func(), error) {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	waitCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	held := make([]string, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			t.unlock(held[i])
		}
	}

	for _, name := range sorted {
		entry := t.ref(name)
		if err := entry.sem.Acquire(waitCtx, 1); err != nil {
			t.unref(name)
			release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrBusy
			}
			return nil, err
		}
		held = append(held, name)
	}

	return release, nil
}

func (t *lockTable) ref(name string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[name]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		t.entries[name] = entry
	}
	entry.refs++
	return entry
}

func (t *lockTable) unref(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked(name)
}

func (t *lockTable) unlock(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[name]; ok {
		entry.sem.Release(1)
	}
	t.dropLocked(name)
}

func (t *lockTable) dropLocked(name string) {
	entry, ok := t.entries[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(t.entries, name)
	}
}

// size reports how many names currently have an entry.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
