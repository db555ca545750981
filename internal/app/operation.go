package app

import (
	"time"

	"geosnag-go/internal/geosnag"
)

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI invocation. Operations start in memory with ID=0;
// only commands that scan persist them, which gives them a database ID.
type Operation struct {
	ID         int64
	UUID       string
	Name       string
	Parameters string
	StartedAt  time.Time
	Status     string
	Counts     geosnag.Counts
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters, uuid string, startedAt time.Time) *Operation {
	return &Operation{
		UUID:       uuid,
		Name:       name,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed. The counts gathered so far are kept.
func (op *Operation) Fail() {
	op.Status = StatusError
}
