// Package orchestrator connects the worker to the orchestration
// framework's queue, log, and credential store.
//
// The framework itself is external; this package defines the narrow
// interface the worker calls through and ships a SQLite-backed
// implementation of that store for local runs and tests.
package orchestrator

import (
	"context"
	"errors"
	"time"
)

// QueueStatus is the lifecycle state of a queue element.
type QueueStatus string

const (
	// StatusNew marks an element that has not been picked up yet.
	StatusNew QueueStatus = "new"

	// StatusInProgress marks an element a worker is processing.
	StatusInProgress QueueStatus = "in_progress"

	// StatusDone marks an element processed successfully.
	StatusDone QueueStatus = "done"

	// StatusFailed marks an element whose processing failed.
	StatusFailed QueueStatus = "failed"

	// StatusAbandoned marks an element given up without processing.
	StatusAbandoned QueueStatus = "abandoned"
)

// QueueElement is a unit of work tracked by the orchestration framework.
type QueueElement struct {
	ID        string
	QueueName string
	Status    QueueStatus
	Data      string
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Constant is a named configuration value from the framework's store.
type Constant struct {
	Name  string
	Value string
}

// Credential is a named username/password pair from the framework's store.
type Credential struct {
	Name     string
	Username string
	Password string
}

// ErrNotFound is returned when a constant, credential, or queue element
// does not exist in the store.
var ErrNotFound = errors.New("orchestrator: not found")

// Connection is the full interface to the orchestration framework. It
// satisfies warden.Orchestrator.
type Connection interface {
	// ProcessName returns the name of the process the worker runs as.
	ProcessName() string

	// LogTrace writes a trace-level entry to the process log.
	LogTrace(ctx context.Context, message string) error

	// LogError writes an error-level entry to the process log.
	LogError(ctx context.Context, message string) error

	// GetConstant looks up a named constant.
	GetConstant(ctx context.Context, name string) (Constant, error)

	// GetCredential looks up a named credential.
	GetCredential(ctx context.Context, name string) (Credential, error)

	// CreateQueueElement adds a new element to the named queue.
	CreateQueueElement(ctx context.Context, queueName, data string) (QueueElement, error)

	// NextQueueElement claims the oldest new element in the named queue,
	// marking it in progress. Returns nil when the queue is empty.
	NextQueueElement(ctx context.Context, queueName string) (*QueueElement, error)

	// SetQueueElementStatus updates an element's status and message.
	SetQueueElementStatus(ctx context.Context, elementID string, status QueueStatus, message string) error

	// FailQueueElement marks an element failed with the given message.
	FailQueueElement(ctx context.Context, elementID, message string) error

	// Close releases the connection.
	Close() error
}
