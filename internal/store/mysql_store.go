package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"example.com/keycloak-provisioner/internal/model"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MySQLStore implements Store backed by MySQL through database/sql.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection and ensures the schema exists. DSN is in
// the github.com/go-sql-driver/mysql format, e.g.
// user:pass@tcp(127.0.0.1:3306)/dbname?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := &MySQLStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) ensureSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS tasks (
  id VARCHAR(36) PRIMARY KEY,
  project VARCHAR(128) NOT NULL,
  payload TEXT,
  status VARCHAR(20) NOT NULL,
  result TEXT,
  error TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *MySQLStore) CreateTask(t *model.Task) (string, error) {
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
	_, err := s.db.Exec(`INSERT INTO tasks (id, project, payload, status, result, error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Project, string(payloadB), string(t.Status), t.Result, t.Error, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *MySQLStore) GetTask(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT id, project, payload, status, result, error, created_at, updated_at FROM tasks WHERE id = ?`, id)
	return scanTaskRow(row)
}

func scanTaskRow(row *sql.Row) (*model.Task, error) {
	var (
		t        model.Task
		payloadS sql.NullString
		result   sql.NullString
		errStr   sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Project, &payloadS, &t.Status, &result, &errStr, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if payloadS.Valid {
		_ = json.Unmarshal([]byte(payloadS.String), &t.Payload)
	}
	if result.Valid {
		t.Result = result.String
	}
	if errStr.Valid {
		t.Error = errStr.String
	}
	return &t, nil
}

func (s *MySQLStore) UpdateTask(t *model.Task) error {
	if t == nil || t.ID == "" {
		return errors.New("invalid task")
	}
	t.UpdatedAt = time.Now().UTC()
	payloadB, _ := json.Marshal(t.Payload)
	_, err := s.db.Exec(`UPDATE tasks SET project=?, payload=?, status=?, result=?, error=?, updated_at=? WHERE id = ?`,
		t.Project, string(payloadB), string(t.Status), t.Result, t.Error, t.UpdatedAt, t.ID)
	return err
}

func (s *MySQLStore) ListTasks() ([]*model.Task, error) {
	rows, err := s.db.Query(`SELECT id, project, payload, status, result, error, created_at, updated_at FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Task{}
	for rows.Next() {
		var (
			t        model.Task
			payloadS sql.NullString
			result   sql.NullString
			errStr   sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Project, &payloadS, &t.Status, &result, &errStr, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if payloadS.Valid {
			_ = json.Unmarshal([]byte(payloadS.String), &t.Payload)
		}
		if result.Valid {
			t.Result = result.String
		}
		if errStr.Valid {
			t.Error = errStr.String
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
