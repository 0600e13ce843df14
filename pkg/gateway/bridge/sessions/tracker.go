// Package sessions tracks live call sessions so shutdown can drain them and
// operational surfaces can see what is in flight.
package sessions

import (
	"context"
	"sync"
	"time"
)

// Handle is what the tracker can do with a live session without owning it.
type Handle struct {
	StreamSid string
	StartedAt time.Time
	Cancel    func()
}

// Info is a read-only snapshot of one tracked session.
type Info struct {
	SessionID string
	StreamSid string
	StartedAt time.Time
}

type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*trackedSession
	wg       sync.WaitGroup
}

type trackedSession struct {
	handle Handle
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]*trackedSession),
	}
}

// Register adds a session and returns its unregister func. Registering the
// same session id again supersedes the old entry; the old entry is released
// so Wait cannot hang on it.
func (t *Tracker) Register(sessionID string, h Handle) (unregister func()) {
	if t == nil {
		return func() {}
	}

	entry := &trackedSession{handle: h}

	t.mu.Lock()
	if t.sessions == nil {
		t.sessions = make(map[string]*trackedSession)
	}
	old := t.sessions[sessionID]
	t.sessions[sessionID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.unregister(sessionID, old)
	}

	return func() { t.unregister(sessionID, entry) }
}

func (t *Tracker) unregister(sessionID string, entry *trackedSession) {
	if t == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		t.mu.Lock()
		if t.sessions != nil && t.sessions[sessionID] == entry {
			delete(t.sessions, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

// SetStreamSid records a session's stream identifier. Registration happens
// before the telephony start event, so the identifier arrives after the fact.
// Unknown session ids are ignored.
func (t *Tracker) SetStreamSid(sessionID, streamSid string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry := t.sessions[sessionID]; entry != nil {
		entry.handle.StreamSid = streamSid
	}
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// List snapshots the tracked sessions for operational read-outs.
func (t *Tracker) List() []Info {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	infos := make([]Info, 0, len(t.sessions))
	for id, entry := range t.sessions {
		if entry == nil {
			continue
		}
		infos = append(infos, Info{
			SessionID: id,
			StreamSid: entry.handle.StreamSid,
			StartedAt: entry.handle.StartedAt,
		})
	}
	return infos
}

// CancelAll asks every tracked session to stop. Cancel funcs run outside the
// tracker lock; a session that unregisters concurrently is fine.
func (t *Tracker) CancelAll() (canceled int) {
	if t == nil {
		return 0
	}

	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Cancel == nil {
			continue
		}
		cancels = append(cancels, entry.handle.Cancel)
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has unregistered, or ctx ends.
// Returns true when the tracker fully drained.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
