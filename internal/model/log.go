package model

import "time"

// LogEntry is one line of the administrative activity log.
type LogEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	AdminName   string    `json:"adminName"`
	AdminAvatar string    `json:"adminAvatar,omitempty"`
	Action      string    `json:"action"`
	Details     string    `json:"details"`
	IsHidden    bool      `json:"isHidden,omitempty"`
}

// ConfirmDelete is the text a user must type to confirm destructive actions.
const ConfirmDelete = "delete"
