package domain

// State is a step of the interactive query cycle.
type State int

// Cycle states. A cycle runs AwaitingQuery through Displaying and returns to AwaitingQuery;
// Exited is terminal.
const (
	StateAwaitingQuery State = iota
	StateEmbedding
	StateExtracting
	StateQuerying
	StateRanking
	StateSummarizing
	StateDisplaying
	StateExited
)

var stateNames = [...]string{
	StateAwaitingQuery: "awaiting_query",
	StateEmbedding:     "embedding",
	StateExtracting:    "extracting",
	StateQuerying:      "querying",
	StateRanking:       "ranking",
	StateSummarizing:   "summarizing",
	StateDisplaying:    "displaying",
	StateExited:        "exited",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// StateObserver is notified on every state transition.
type StateObserver func(State)
