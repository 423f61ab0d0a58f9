package model

const (
	DraftStatusDraft    = "draft"
	DraftStatusPending  = "pending_approval"
	DraftStatusApproved = "approved"
	DraftStatusSent     = "sent"
)

// EmailDraft body is markdown; it is rendered to HTML at send time.
type EmailDraft struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
	Status     string   `json:"status"`
	Generated  bool     `json:"generated"`
	MeetingID  string   `json:"meeting_id,omitempty"`
	Ctime      int64    `json:"ctime"`
	Mtime      int64    `json:"mtime"`
}
