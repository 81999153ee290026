package model

import "time"

type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusFailed  TaskStatus = "failed"
)

// Task is one queued provisioning job: a project plus the users to onboard.
// Payload carries "user_names" (comma-separated full names) and optionally
// "email_domain". Result holds the batch report summary once the worker is
// done.
type Task struct {
	ID        string            `json:"id"`
	Project   string            `json:"project"`
	Payload   map[string]string `json:"payload"`
	Status    TaskStatus        `json:"status"`
	Result    string            `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
