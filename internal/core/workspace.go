package core

import (
	"sync"

	"github.com/google/uuid"
)

// Workspace is the ordered working set of ingested files for one session.
//
// Ingests are slow and run concurrently, so a slot is reserved when an
// ingest starts and filled when it finishes. Files appear in reservation
// order regardless of which ingest completes first. Removing a slot (or
// resetting the workspace) while its ingest is still running discards the
// result when it arrives.
type Workspace struct {
	mu      sync.RWMutex
	order   []string
	files   map[string]ProcessedFile
	pending map[string]struct{}
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		files:   make(map[string]ProcessedFile),
		pending: make(map[string]struct{}),
	}
}

// Reserve allocates a slot for an ingest that is about to start and returns its id.
func (w *Workspace) Reserve() string {
	id := uuid.NewString()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.order = append(w.order, id)
	w.pending[id] = struct{}{}
	return id
}

// Commit fills a reserved slot. It returns false, dropping file, when the
// slot no longer exists.
func (w *Workspace) Commit(id string, file ProcessedFile) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[id]; !ok {
		return false
	}
	delete(w.pending, id)
	file.ID = id
	w.files[id] = file
	return true
}

// Abandon releases a reserved slot whose ingest failed.
func (w *Workspace) Abandon(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[id]; !ok {
		return
	}
	delete(w.pending, id)
	w.removeLocked(id)
}

// Files returns the committed files in reservation order.
func (w *Workspace) Files() []ProcessedFile {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]ProcessedFile, 0, len(w.files))
	for _, id := range w.order {
		if f, ok := w.files[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Get returns a committed file by id.
func (w *Workspace) Get(id string) (ProcessedFile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	f, ok := w.files[id]
	return f, ok
}

// Pending returns the number of reserved slots still waiting for a result.
func (w *Workspace) Pending() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pending)
}

// Remove drops a file or a pending slot. It returns ErrFileNotFound for unknown ids.
func (w *Workspace) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, committed := w.files[id]
	_, pending := w.pending[id]
	if !committed && !pending {
		return ErrFileNotFound
	}
	delete(w.files, id)
	delete(w.pending, id)
	w.removeLocked(id)
	return nil
}

// Reset empties the workspace, including pending slots.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.order = nil
	w.files = make(map[string]ProcessedFile)
	w.pending = make(map[string]struct{})
}

func (w *Workspace) removeLocked(id string) {
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}
