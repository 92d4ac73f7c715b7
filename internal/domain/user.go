package domain

import "time"

// User is created on first contact and never deleted. Verified becomes true
// only through the verification engine (contact share or a redeemed email
// challenge).
type User struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is how the user shows up in admin notifications.
func (u *User) Tag() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FullName != "" {
		return u.FullName
	}
	return "unknown"
}
