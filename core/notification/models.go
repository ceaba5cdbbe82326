package notification

import (
	"time"

	"github.com/lanes-app/lanes/core"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	ReadAt    *time.Time        `json:"read_at"`
	CreatedAt time.Time         `json:"created_at"`
}

// DeviceToken is a push token of a user's mobile device.
type DeviceToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

type NewDeviceToken struct {
	Token    string `json:"token" validate:"required,notblank,max=255,push_token"`
	Platform string `json:"platform" validate:"omitempty,oneof=ios android web"`
}

func (nt *NewDeviceToken) Clean() {
	nt.Token = core.CleanString(nt.Token)
	nt.Platform = core.CleanString(nt.Platform, true /* lower */)
}

type QueryFilter struct {
	UserID     string
	UnreadOnly bool
}
