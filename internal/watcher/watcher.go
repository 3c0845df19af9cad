package watcher

// A watcher reports changes to files the build has read. Events are only a
// hint: a path may be reported more than once for a single save, and a path
// nobody asked about may show up when it's created next to a watched one.
// Callers invalidate whatever the path refers to and rebuild.

type EventKind uint8

const (
	Update EventKind = iota
	Remove
)

func (kind EventKind) String() string {
	switch kind {
	case Update:
		return "update"
	case Remove:
		return "remove"
	default:
		panic("Internal error")
	}
}

type Event struct {
	Kind EventKind
	Path string
}

type Watcher interface {
	// Closed once the watcher has been closed
	Events() <-chan Event

	// Watching the same file twice is not an error. A file that doesn't
	// exist yet can be watched too and is reported once it's created.
	WatchFile(path string) error

	Close() error
}
