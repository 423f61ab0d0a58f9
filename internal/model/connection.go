package model

// Connection holds one provider credential per (user, provider).
// ExpiresAt is unix milliseconds; the row is overwritten on refresh
// and deleted on disconnect.
type Connection struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Provider      string `json:"provider"`
	AccessToken   string `json:"-"`
	RefreshToken  string `json:"-"`
	ExpiresAt     int64  `json:"expires_at"`
	ProviderEmail string `json:"provider_email"`
	Ctime         int64  `json:"ctime"`
	Mtime         int64  `json:"mtime"`
}
