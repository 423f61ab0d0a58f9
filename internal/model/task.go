package model

type Task struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Notes  string `json:"notes"`
	DueAt  int64  `json:"due_at,omitempty"`
	Done   bool   `json:"done"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}
