package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"example.com/keycloak-provisioner/internal/model"
)

// GormStore implements Store using GORM. The server binary uses the raw
// MySQL store; this one backs the utilities and the sqlite-based tests.
type GormStore struct {
	db *gorm.DB
}

// Task is the GORM row shape for a provisioning job.
type Task struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Project   string    `gorm:"size:128;not null;index:idx_project"`
	Payload   string    `gorm:"type:longtext"`
	Status    string    `gorm:"size:20;not null;index:idx_status"`
	Result    string    `gorm:"type:text"`
	Error     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// NewGormStore opens a GORM connection using the provided MySQL DSN and
// runs migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB constructs a GormStore from an existing *gorm.DB. Used
// by tests with an in-memory sqlite DB.
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// RunMigrations applies AutoMigrate for the task table.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&Task{})
}

func (s *GormStore) CreateTask(t *model.Task) (string, error) {
	if t == nil {
		return "", errors.New("nil task")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	payloadB, _ := json.Marshal(t.Payload)
	gt := &Task{
		ID:        t.ID,
		Project:   t.Project,
		Payload:   string(payloadB),
		Status:    string(t.Status),
		Result:    t.Result,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if err := s.db.Create(gt).Error; err != nil {
		return "", err
	}
	return gt.ID, nil
}

func (s *GormStore) GetTask(id string) (*model.Task, error) {
	var gt Task
	if err := s.db.First(&gt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromRow(&gt), nil
}

func (s *GormStore) UpdateTask(t *model.Task) error {
	if t == nil || t.ID == "" {
		return errors.New("invalid task")
	}
	t.UpdatedAt = time.Now().UTC()
	payloadB, _ := json.Marshal(t.Payload)
	updates := map[string]interface{}{
		"project":    t.Project,
		"payload":    string(payloadB),
		"status":     string(t.Status),
		"result":     t.Result,
		"error":      t.Error,
		"updated_at": t.UpdatedAt,
	}
	return s.db.Model(&Task{}).Where("id = ?", t.ID).Updates(updates).Error
}

func (s *GormStore) ListTasks() ([]*model.Task, error) {
	var gts []Task
	if err := s.db.Order("created_at").Find(&gts).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Task, 0, len(gts))
	for i := range gts {
		out = append(out, fromRow(&gts[i]))
	}
	return out, nil
}

func fromRow(gt *Task) *model.Task {
	var payload map[string]string
	if gt.Payload != "" {
		_ = json.Unmarshal([]byte(gt.Payload), &payload)
	}
	return &model.Task{
		ID:        gt.ID,
		Project:   gt.Project,
		Payload:   payload,
		Status:    model.TaskStatus(gt.Status),
		Result:    gt.Result,
		Error:     gt.Error,
		CreatedAt: gt.CreatedAt,
		UpdatedAt: gt.UpdatedAt,
	}
}
