package model

const (
	MeetingWaiting = "waiting"
	MeetingStarted = "started"
	MeetingEnded   = "ended"
)

type Meeting struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Provider        string `json:"provider"`
	ExternalID      string `json:"external_id"`
	Topic           string `json:"topic"`
	StartTime       int64  `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	JoinURL         string `json:"join_url"`
	Ctime           int64  `json:"ctime"`
	Mtime           int64  `json:"mtime"`
}

type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	JoinedAt int64  `json:"joined_at"`
}
