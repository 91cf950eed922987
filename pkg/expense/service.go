package expense

import (
	"context"
	"iter"
	"time"

	"github.com/aretw0/tally/pkg/core"
)

// Service implements the expense tracker commands on a record table.
type Service struct {
	table *core.Table[Expense]
}

// NewService creates a Service over table.
func NewService(table *core.Table[Expense]) *Service {
	return &Service{table: table}
}

// Table returns the underlying record table.
func (s *Service) Table() *core.Table[Expense] {
	return s.table
}

// Close releases the underlying table.
func (s *Service) Close() error {
	return s.table.Close()
}

// Add records a new expense dated today and returns its id.
func (s *Service) Add(ctx context.Context, description string, amount float64, category Category) (core.RecordID, error) {
	if category == "" {
		category = General
	}
	return s.table.Add(ctx, Expense{
		Description: description,
		Amount:      amount,
		Category:    category,
	})
}

// Get returns the expense stored under id.
func (s *Service) Get(id core.RecordID) (Expense, error) {
	return s.table.Get(id)
}

// Patch lists the fields an update changes; nil fields are kept.
type Patch struct {
	Description *string
	Amount      *float64
	Category    *Category
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Category == nil
}

// Update applies patch to the expense stored under id. Either every field
// of the patch is applied or none is.
func (s *Service) Update(ctx context.Context, id core.RecordID, patch Patch) (Expense, error) {
	if patch.IsEmpty() {
		if _, err := s.table.Get(id); err != nil {
			return Expense{}, err
		}
		return Expense{}, core.Invalidf("update", "nothing to update, pass a description, amount or category")
	}
	return s.table.Update(ctx, id, func(e *Expense) error {
		if patch.Description != nil {
			e.Description = *patch.Description
		}
		if patch.Amount != nil {
			e.Amount = *patch.Amount
		}
		if patch.Category != nil {
			e.Category = *patch.Category
		}
		return nil
	})
}

// Delete removes the expense stored under id.
func (s *Service) Delete(ctx context.Context, id core.RecordID) error {
	return s.table.Delete(ctx, id)
}

// ListOptions narrows List. Zero values select everything; a category no
// expense has selects nothing.
type ListOptions struct {
	Category Category
	Match    string // doublestar pattern on the description
}

// List yields the matching expenses in ascending id order.
func (s *Service) List(opts ListOptions) (iter.Seq2[core.RecordID, Expense], error) {
	filter, err := listFilter(opts)
	if err != nil {
		return nil, err
	}
	return s.table.List(filter), nil
}

func listFilter(opts ListOptions) (core.Filter[Expense], error) {
	var filters []core.Filter[Expense]
	if opts.Category != "" {
		filters = append(filters, InCategory(opts.Category))
	}
	glob, err := core.GlobFilter(opts.Match, func(e Expense) string { return e.Description })
	if err != nil {
		return nil, err
	}
	filters = append(filters, glob)
	return core.And(filters...), nil
}

// InCategory selects expenses of category c.
func InCategory(c Category) core.Filter[Expense] {
	return func(e Expense) bool { return e.Category == c }
}

// InMonth matches expenses dated in month (1-12) and, when year is not
// zero, in that year. A malformed stored date is an error.
func InMonth(month time.Month, year int) core.Matcher[Expense] {
	return func(e Expense) (bool, error) {
		t, err := e.Time()
		if err != nil {
			return false, err
		}
		if year != 0 && t.Year() != year {
			return false, nil
		}
		return t.Month() == month, nil
	}
}

// SummaryOptions narrows Summary. Zero values select everything; a category
// no expense has totals zero.
type SummaryOptions struct {
	Month    int // 1-12
	Year     int
	Category Category
}

func (o SummaryOptions) matcher() (core.Matcher[Expense], error) {
	if o.Month < 0 || o.Month > 12 {
		return nil, core.Invalidf("month", "%d is outside 1-12", o.Month)
	}
	if o.Year < 0 {
		return nil, core.Invalidf("year", "%d is negative", o.Year)
	}
	if o.Year != 0 && o.Month == 0 {
		return nil, core.Invalidf("year", "requires a month")
	}

	var matchers []core.Matcher[Expense]
	if o.Category != "" {
		matchers = append(matchers, core.Where(InCategory(o.Category)))
	}
	if o.Month != 0 {
		matchers = append(matchers, InMonth(time.Month(o.Month), o.Year))
	}
	return core.MatchAll(matchers...), nil
}

func amount(e Expense) (float64, error) { return e.Amount, nil }

// Summary returns the total amount of the matching expenses; zero when
// nothing matches.
func (s *Service) Summary(opts SummaryOptions) (float64, error) {
	match, err := opts.matcher()
	if err != nil {
		return 0, err
	}
	return s.table.Aggregate(amount, match)
}

// SummaryByCategory returns the matching totals per category.
func (s *Service) SummaryByCategory(opts SummaryOptions) (map[Category]float64, error) {
	match, err := opts.matcher()
	if err != nil {
		return nil, err
	}
	totals, err := s.table.GroupSum(func(e Expense) (string, error) { return string(e.Category), nil }, amount, match)
	if err != nil {
		return nil, err
	}
	out := make(map[Category]float64, len(totals))
	for k, v := range totals {
		out[Category(k)] = v
	}
	return out, nil
}
