package messaging

import "time"

// PresenceStatus is the directory-visible availability of a user.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusAway    PresenceStatus = "away"
)

// User is the directory view consumed by the messaging core. The directory is
// owned elsewhere; presence transitions mutate only Status and LastActive.
type User struct {
	ID         string         `db:"id" json:"id"`
	Username   string         `db:"username" json:"username"`
	Avatar     string         `db:"avatar" json:"avatar,omitempty"`
	Status     PresenceStatus `db:"status" json:"status"`
	LastActive time.Time      `db:"last_active" json:"lastActive"`
}
