package scrimqueue

// MatchReminderJob posts a reminder into the match thread at a fixed offset
// from kickoff.
type MatchReminderJob struct {
	MatchID  string `json:"match_id"`
	ThreadID string `json:"thread_id"`
	Offset   string `json:"offset"`
	Content  string `json:"content"`
}

// Kind returns the job type identifier for River.
func (MatchReminderJob) Kind() string { return "match_reminder" }

// MatchNoShowJob runs the attendance check shortly after kickoff.
type MatchNoShowJob struct {
	MatchID string `json:"match_id"`
}

// Kind returns the job type identifier for River.
func (MatchNoShowJob) Kind() string { return "match_no_show" }

// JobInfo describes one scheduled job, for debugging and monitoring.
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	MatchID     string `json:"match_id"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	Attempt     int    `json:"attempt"`
}
