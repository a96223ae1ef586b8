package dashboard

import (
	"sync"
	"time"
)

const activityCapacity = 50

// ActivityEntry is one line of the dashboard's recent-activity feed.
type ActivityEntry struct {
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// ActivityLog is an in-memory feed of recent actions, newest first. It keeps
// the last activityCapacity entries and drops the rest; the feed is a
// convenience view, not an audit trail.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []ActivityEntry
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// Record adds an entry to the front of the feed.
func (l *ActivityLog) Record(action string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]ActivityEntry{{Action: action, At: time.Now()}}, l.entries...)
	if len(l.entries) > activityCapacity {
		l.entries = l.entries[:activityCapacity]
	}
}

// Recent returns up to n entries, newest first.
func (l *ActivityLog) Recent(n int) []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]ActivityEntry, n)
	copy(out, l.entries[:n])
	return out
}
