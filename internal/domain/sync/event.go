package sync

import "time"

// Decision is the outcome of resolving one remote record.
type Decision string

const (
	DecisionInserted   Decision = "inserted"
	DecisionRemoteWins Decision = "remote_wins"
	DecisionLocalWins  Decision = "local_wins"
	DecisionNoop       Decision = "noop"
)

type EventKind string

const (
	EventPushed      EventKind = "pushed"
	EventPushFailed  EventKind = "push_failed"
	EventPushDropped EventKind = "push_dropped"
	EventResolved    EventKind = "resolved"
	EventTableFailed EventKind = "table_failed"
)

// Event reports a push outcome or a resolution to interested callers.
type Event struct {
	Kind     EventKind
	Table    string
	Key      string
	Decision Decision
	Err      error
	At       time.Time
}

// Observer receives events synchronously on the goroutine that produced them.
type Observer func(Event)

// Stats are cumulative engine counters.
type Stats struct {
	Pushed        int       `json:"pushed"`
	PushFailures  int       `json:"push_failures"`
	Dropped       int       `json:"dropped"`
	Pulled        int       `json:"pulled"`
	Inserted      int       `json:"inserted"`
	RemoteWins    int       `json:"remote_wins"`
	LocalWins     int       `json:"local_wins"`
	Noops         int       `json:"noops"`
	TableFailures int       `json:"table_failures"`
	Passes        int       `json:"passes"`
	SkippedTicks  int       `json:"skipped_ticks"`
	LastPass      time.Time `json:"last_pass"`
}

func (s *Stats) count(ev Event) {
	switch ev.Kind {
	case EventPushed:
		s.Pushed++
	case EventPushFailed:
		s.PushFailures++
	case EventPushDropped:
		s.Dropped++
	case EventTableFailed:
		s.TableFailures++
	case EventResolved:
		switch ev.Decision {
		case DecisionInserted:
			s.Inserted++
		case DecisionRemoteWins:
			s.RemoteWins++
		case DecisionLocalWins:
			s.LocalWins++
		case DecisionNoop:
			s.Noops++
		}
	}
}
