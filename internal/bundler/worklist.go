package bundler

import "github.com/paeckchen/paeckchen/internal/graph"

// A first-in first-out queue of modules waiting to be processed. A path is in
// the queue at most once. Enqueueing a path that's already waiting keeps its
// original position.
type Worklist struct {
	queue  []graph.ModulePath
	queued map[graph.ModulePath]struct{}
}

func NewWorklist() *Worklist {
	return &Worklist{queued: make(map[graph.ModulePath]struct{})}
}

// Returns false if the path was already waiting
func (w *Worklist) Enqueue(path graph.ModulePath) bool {
	if _, ok := w.queued[path]; ok {
		return false
	}
	w.queued[path] = struct{}{}
	w.queue = append(w.queue, path)
	return true
}

// Removes and returns up to "n" paths from the front of the queue
func (w *Worklist) DrainBatch(n int) []graph.ModulePath {
	if n > len(w.queue) {
		n = len(w.queue)
	}
	batch := append([]graph.ModulePath{}, w.queue[:n]...)
	w.queue = w.queue[n:]
	for _, path := range batch {
		delete(w.queued, path)
	}
	return batch
}

func (w *Worklist) Len() int {
	return len(w.queue)
}

func (w *Worklist) Contains(path graph.ModulePath) bool {
	_, ok := w.queued[path]
	return ok
}
