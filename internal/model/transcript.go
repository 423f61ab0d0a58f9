package model

type Transcript struct {
	ID        string `json:"id"`
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
	FileKey   string `json:"file_key"`
	Language  string `json:"language"`
	WordCount int    `json:"word_count"`
	Ctime     int64  `json:"ctime"`
}
