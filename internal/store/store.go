package store

import (
	"errors"

	"example.com/keycloak-provisioner/internal/model"
)

var ErrNotFound = errors.New("task not found")

// Store persists provisioning tasks and their outcomes. It deliberately
// knows nothing about realm users: idempotency against Keycloak is
// re-derived by lookup on every run, never cached here.
type Store interface {
	CreateTask(t *model.Task) (string, error)
	GetTask(id string) (*model.Task, error)
	UpdateTask(t *model.Task) error
	ListTasks() ([]*model.Task, error)
}
