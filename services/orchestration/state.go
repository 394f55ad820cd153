package orchestration

// SessionState is the position of the session state machine.
type SessionState string

const (
	StateAwaitingUserInput    SessionState = "AwaitingUserInput"
	StateRequirementGathering SessionState = "RequirementGathering"
	StatePendingCritique      SessionState = "PendingCritique"
	StateAccepted             SessionState = "Accepted"
	StateWarningHandling      SessionState = "WarningHandling"
	StateRefineHandling       SessionState = "RefineHandling"
	StateSearchRefinement     SessionState = "SearchRefinement"
	StateSummarizing          SessionState = "Summarizing"
)

// StateSnapshot is returned by the state query.
type StateSnapshot struct {
	SessionID       string       `json:"session_id"`
	State           SessionState `json:"state"`
	Language        string       `json:"language,omitempty"`
	TranscriptLen   int          `json:"transcript_len"`
	CritiqueLen     int          `json:"critique_len"`
	PendingReplies  int          `json:"pending_replies"`
	DroppedReplies  int          `json:"dropped_replies"`
	PhasesCompleted int          `json:"phases_completed"`
}
