package task

import (
	"context"
	"iter"

	"github.com/aretw0/tally/pkg/core"
)

// Service implements the task tracker commands on a record table.
type Service struct {
	table *core.Table[Task]
}

// NewService creates a Service over table.
func NewService(table *core.Table[Task]) *Service {
	return &Service{table: table}
}

// Table returns the underlying record table.
func (s *Service) Table() *core.Table[Task] {
	return s.table
}

// Close releases the underlying table.
func (s *Service) Close() error {
	return s.table.Close()
}

// Add creates a task in the todo state and returns its id.
func (s *Service) Add(ctx context.Context, description string) (core.RecordID, error) {
	return s.table.Add(ctx, Task{Description: description, Status: Todo})
}

// Get returns the task stored under id.
func (s *Service) Get(id core.RecordID) (Task, error) {
	return s.table.Get(id)
}

// UpdateDescription replaces the description of a task.
func (s *Service) UpdateDescription(ctx context.Context, id core.RecordID, description string) (Task, error) {
	return s.table.Update(ctx, id, func(t *Task) error {
		t.Description = description
		return nil
	})
}

// Mark moves a task to status.
func (s *Service) Mark(ctx context.Context, id core.RecordID, status Status) (Task, error) {
	return s.table.Update(ctx, id, func(t *Task) error {
		t.Status = status
		return nil
	})
}

// Delete removes the task stored under id.
func (s *Service) Delete(ctx context.Context, id core.RecordID) error {
	return s.table.Delete(ctx, id)
}

// ListOptions narrows List. Zero values select everything.
type ListOptions struct {
	Status Status
	Match  string // doublestar pattern on the description
}

// List yields the matching tasks in ascending id order.
func (s *Service) List(opts ListOptions) (iter.Seq2[core.RecordID, Task], error) {
	var filters []core.Filter[Task]
	if opts.Status != "" {
		if err := core.RequireOneOf("status", opts.Status, Statuses); err != nil {
			return nil, err
		}
		filters = append(filters, WithStatus(opts.Status))
	}
	glob, err := core.GlobFilter(opts.Match, func(t Task) string { return t.Description })
	if err != nil {
		return nil, err
	}
	filters = append(filters, glob)
	return s.table.List(core.And(filters...)), nil
}

// WithStatus selects tasks in status st.
func WithStatus(st Status) core.Filter[Task] {
	return func(t Task) bool { return t.Status == st }
}

// Counts returns the number of tasks per status.
func (s *Service) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = s.table.Count(WithStatus(st))
	}
	return counts
}
