// sqlite.go implements Connection backed by a local SQLite database.

package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConnection implements Connection using SQLite. It holds the same
// tables the hosted framework keeps in its SQL store: constants,
// credentials, queue elements, and the process log.
type SQLiteConnection struct {
	db          *sql.DB
	processName string
}

// NewSQLiteConnection opens (and if necessary initializes) the store at
// the given DSN for the named process.
func NewSQLiteConnection(dsn, processName string) (*SQLiteConnection, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open orchestrator store: %w", err)
	}

	conn := &SQLiteConnection{db: db, processName: processName}
	if err := conn.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate orchestrator store: %w", err)
	}
	return conn, nil
}

// migrate creates the store schema.
func (c *SQLiteConnection) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS constants (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			name TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queue_elements (
			id TEXT PRIMARY KEY,
			queue_name TEXT NOT NULL,
			status TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_elements_queue_status
			ON queue_elements(queue_name, status, created_at)`,
		`CREATE TABLE IF NOT EXISTS process_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			process_name TEXT NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, migration := range migrations {
		if _, err := c.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ProcessName returns the process name the connection was opened for.
func (c *SQLiteConnection) ProcessName() string {
	return c.processName
}

// LogTrace writes a trace-level entry to the process log.
func (c *SQLiteConnection) LogTrace(ctx context.Context, message string) error {
	return c.log(ctx, "trace", message)
}

// LogError writes an error-level entry to the process log.
func (c *SQLiteConnection) LogError(ctx context.Context, message string) error {
	return c.log(ctx, "error", message)
}

func (c *SQLiteConnection) log(ctx context.Context, level, message string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO process_log (process_name, level, message, created_at) VALUES (?, ?, ?, ?)`,
		c.processName, level, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write %s log: %w", level, err)
	}
	return nil
}

// GetConstant looks up a named constant.
func (c *SQLiteConnection) GetConstant(ctx context.Context, name string) (Constant, error) {
	var constant Constant
	err := c.db.QueryRowContext(ctx,
		`SELECT name, value FROM constants WHERE name = ?`, name).
		Scan(&constant.Name, &constant.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return Constant{}, fmt.Errorf("constant %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Constant{}, fmt.Errorf("get constant %q: %w", name, err)
	}
	return constant, nil
}

// SetConstant inserts or replaces a named constant.
func (c *SQLiteConnection) SetConstant(ctx context.Context, name, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO constants (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	if err != nil {
		return fmt.Errorf("set constant %q: %w", name, err)
	}
	return nil
}

// GetCredential looks up a named credential.
func (c *SQLiteConnection) GetCredential(ctx context.Context, name string) (Credential, error) {
	var cred Credential
	err := c.db.QueryRowContext(ctx,
		`SELECT name, username, password FROM credentials WHERE name = ?`, name).
		Scan(&cred.Name, &cred.Username, &cred.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, fmt.Errorf("credential %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Credential{}, fmt.Errorf("get credential %q: %w", name, err)
	}
	return cred, nil
}

// SetCredential inserts or replaces a named credential.
func (c *SQLiteConnection) SetCredential(ctx context.Context, name, username, password string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO credentials (name, username, password) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET username = excluded.username, password = excluded.password`,
		name, username, password)
	if err != nil {
		return fmt.Errorf("set credential %q: %w", name, err)
	}
	return nil
}

// CreateQueueElement adds a new element to the named queue.
func (c *SQLiteConnection) CreateQueueElement(ctx context.Context, queueName, data string) (QueueElement, error) {
	now := time.Now().UTC()
	element := QueueElement{
		ID:        uuid.NewString(),
		QueueName: queueName,
		Status:    StatusNew,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO queue_elements (id, queue_name, status, data, message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', ?, ?)`,
		element.ID, element.QueueName, element.Status, element.Data, element.CreatedAt, element.UpdatedAt)
	if err != nil {
		return QueueElement{}, fmt.Errorf("create queue element: %w", err)
	}
	return element, nil
}

// NextQueueElement claims the oldest new element in the named queue.
// Returns nil when the queue has no new elements.
func (c *SQLiteConnection) NextQueueElement(ctx context.Context, queueName string) (*QueueElement, error) {
	var element QueueElement
	err := c.db.QueryRowContext(ctx,
		`SELECT id, queue_name, status, data, message, created_at, updated_at
		 FROM queue_elements
		 WHERE queue_name = ? AND status = ?
		 ORDER BY created_at ASC LIMIT 1`,
		queueName, StatusNew).
		Scan(&element.ID, &element.QueueName, &element.Status, &element.Data,
			&element.Message, &element.CreatedAt, &element.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queue element: %w", err)
	}

	if err := c.SetQueueElementStatus(ctx, element.ID, StatusInProgress, ""); err != nil {
		return nil, err
	}
	element.Status = StatusInProgress
	return &element, nil
}

// SetQueueElementStatus updates an element's status and message.
func (c *SQLiteConnection) SetQueueElementStatus(ctx context.Context, elementID string, status QueueStatus, message string) error {
	result, err := c.db.ExecContext(ctx,
		`UPDATE queue_elements SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		status, message, time.Now().UTC(), elementID)
	if err != nil {
		return fmt.Errorf("set queue element %s status: %w", elementID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set queue element %s status: %w", elementID, err)
	}
	if affected == 0 {
		return fmt.Errorf("queue element %s: %w", elementID, ErrNotFound)
	}
	return nil
}

// FailQueueElement marks an element failed with the given message.
func (c *SQLiteConnection) FailQueueElement(ctx context.Context, elementID, message string) error {
	return c.SetQueueElementStatus(ctx, elementID, StatusFailed, message)
}

// GetQueueElement looks up one element by ID.
func (c *SQLiteConnection) GetQueueElement(ctx context.Context, elementID string) (QueueElement, error) {
	var element QueueElement
	err := c.db.QueryRowContext(ctx,
		`SELECT id, queue_name, status, data, message, created_at, updated_at
		 FROM queue_elements WHERE id = ?`, elementID).
		Scan(&element.ID, &element.QueueName, &element.Status, &element.Data,
			&element.Message, &element.CreatedAt, &element.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return QueueElement{}, fmt.Errorf("queue element %s: %w", elementID, ErrNotFound)
	}
	if err != nil {
		return QueueElement{}, fmt.Errorf("get queue element %s: %w", elementID, err)
	}
	return element, nil
}

// Close releases the underlying database handle.
func (c *SQLiteConnection) Close() error {
	return c.db.Close()
}
