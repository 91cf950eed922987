// Package task is the task tracker schema built on the record table.
package task

import (
	"time"

	"github.com/aretw0/tally/pkg/core"
)

// MaxDescriptionLength bounds a task description, in characters.
const MaxDescriptionLength = 100

// Status is the progress of a task.
type Status string

const (
	Todo       Status = "todo"
	InProgress Status = "in-progress"
	Done       Status = "done"
)

// Statuses lists every valid status.
var Statuses = []Status{Todo, InProgress, Done}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if err := core.RequireOneOf("status", st, Statuses); err != nil {
		return "", err
	}
	return st, nil
}

// Task is one to-do item.
type Task struct {
	Description string     `json:"description" yaml:"description"`
	Status      Status     `json:"status" yaml:"status"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Validate implements core.Record.
func (t Task) Validate() error {
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if err := core.RequireOneOf("status", t.Status, Statuses); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		return core.Invalidf("createdAt", "is missing")
	}
	return nil
}

// ValidateDescription applies the description rules on their own.
func ValidateDescription(description string) error {
	return core.RequireText("description", description, MaxDescriptionLength)
}

// Created implements core.Stamped. The creation time never changes after this.
func (t *Task) Created(now time.Time) {
	t.CreatedAt = now
	t.UpdatedAt = nil
	if t.Status == "" {
		t.Status = Todo
	}
}

// Touched implements core.Stamped.
func (t *Task) Touched(now time.Time) {
	t.UpdatedAt = &now
}
