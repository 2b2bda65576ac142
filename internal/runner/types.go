package runner

import "time"

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transitions can happen without a
// fresh Start.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted
}

// Outcome classifies a single step attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// Step is one entry in the fixed warmup sequence. Optional steps treat a
// missing target (no stories, no like button) as Skipped rather than a
// Failure.
type Step struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Optional bool   `json:"optional"`
}

// StepSession is the synthetic step name under which session-acquisition
// failures are recorded.
const StepSession = "session"

var sequence = []Step{
	{Name: "verify_login", Title: "Checking login status"},
	{Name: "verify_feed", Title: "Verifying feed access", Optional: true},
	{Name: "browse_feed", Title: "Browsing feed", Optional: true},
	{Name: "visit_profile", Title: "Visiting first post author's profile", Optional: true},
	{Name: "return_home", Title: "Returning to home feed", Optional: true},
	{Name: "watch_story", Title: "Watching and reacting to first story", Optional: true},
	{Name: "like_post", Title: "Liking first post", Optional: true},
	{Name: "comment_post", Title: "Commenting on first post", Optional: true},
	{Name: "image_post", Title: "Creating image post"},
}

// Sequence returns the ordered warmup steps executed for every profile.
func Sequence() []Step {
	out := make([]Step, len(sequence))
	copy(out, sequence)
	return out
}

// QueueStatus tracks a single queue item (one profile in one round).
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueRunning   QueueStatus = "running"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
	QueueSkipped   QueueStatus = "skipped"
)

type QueueItem struct {
	ProfileID   string      `json:"profile_id"`
	ProfileName string      `json:"profile_name"`
	Round       int         `json:"round"`
	Status      QueueStatus `json:"status"`
}

// StepResult is an append-only record of one step attempt. Never mutated
// after creation.
type StepResult struct {
	ProfileID   string    `json:"profile_id"`
	ProfileName string    `json:"profile_name"`
	Round       int       `json:"round"`
	Step        string    `json:"step"`
	Outcome     Outcome   `json:"outcome"`
	Detail      string    `json:"detail,omitempty"`
	Screenshot  string    `json:"screenshot,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Snapshot is a copy-on-read view of the current (or last) Run, safe to
// hand to the control surface while the run mutates underneath.
type Snapshot struct {
	RunID          string       `json:"run_id,omitempty"`
	Status         Status       `json:"status"`
	CurrentProfile string       `json:"current_profile,omitempty"`
	CurrentStep    string       `json:"current_step,omitempty"`
	CurrentRound   int          `json:"current_round"`
	TotalRounds    int          `json:"total_rounds"`
	QueueIndex     int          `json:"queue_index"`
	Queue          []QueueItem  `json:"queue"`
	Completed      int          `json:"completed"`
	Failed         int          `json:"failed"`
	Skipped        int          `json:"skipped"`
	Results        []StepResult `json:"results"`
	Logs           []string     `json:"logs"`
	StartedAt      time.Time    `json:"started_at,omitempty"`
	FinishedAt     time.Time    `json:"finished_at,omitempty"`
}

// Profile is the slice of profile configuration the runner needs.
type Profile struct {
	ID   string
	Name string
	Path string
}

// ProfileSource resolves profile ids at execution time. Profiles removed
// mid-run are skipped, not fatal.
type ProfileSource interface {
	Profile(id string) (Profile, bool)
}
