package watcher

import "time"

// EventType represents the kind of change observed on a watched file.
type EventType int

const (
	// EventModified is emitted once a file has been written and stopped changing.
	EventModified EventType = iota
	// EventRemoved is emitted when a watched file is deleted or renamed away.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled change to a watched file.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
