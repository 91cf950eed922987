// Package expense is the expense tracker schema built on the record table.
package expense

import (
	"fmt"
	"math"
	"time"

	"github.com/aretw0/tally/pkg/core"
)

// DateLayout is the only accepted textual form of an expense date.
const DateLayout = "2006-01-02"

// Category classifies an expense.
type Category string

const (
	General       Category = "general"
	Food          Category = "food"
	Transport     Category = "transport"
	Housing       Category = "housing"
	Utilities     Category = "utilities"
	Health        Category = "health"
	Entertainment Category = "entertainment"
	Other         Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{General, Food, Transport, Housing, Utilities, Health, Entertainment, Other}

// ParseCategory converts user input into a Category. Empty input is General.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return General, nil
	}
	c := Category(s)
	if err := core.RequireOneOf("category", c, Categories); err != nil {
		return "", err
	}
	return c, nil
}

// Expense is one spending record.
type Expense struct {
	Description string   `json:"description" yaml:"description"`
	Amount      float64  `json:"amount" yaml:"amount"`
	Date        string   `json:"date" yaml:"date"`
	Category    Category `json:"category" yaml:"category"`
}

// Validate implements core.Record.
func (e Expense) Validate() error {
	if err := core.RequireText("description", e.Description, 0); err != nil {
		return err
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := core.RequireOneOf("category", e.Category, Categories); err != nil {
		return err
	}
	if _, err := e.Time(); err != nil {
		return core.Invalidf("date", "%v", err)
	}
	return nil
}

// ValidateAmount rejects zero, negative and non-finite amounts.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return core.Invalidf("amount", "must be a finite number")
	}
	if amount <= 0 {
		return core.Invalidf("amount", "cannot be zero or negative")
	}
	return nil
}

// Created implements core.Stamped: the expense is dated today.
func (e *Expense) Created(now time.Time) {
	e.Date = now.Format(DateLayout)
	if e.Category == "" {
		e.Category = General
	}
}

// Touched implements core.Stamped: an edited expense is re-dated today.
func (e *Expense) Touched(now time.Time) {
	e.Date = now.Format(DateLayout)
	if e.Category == "" {
		e.Category = General
	}
}

// Time parses the stored date.
func (e Expense) Time() (time.Time, error) {
	if len(e.Date) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("date %q is not in YYYY-MM-DD form", e.Date)
	}
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not in YYYY-MM-DD form", e.Date)
	}
	return t, nil
}
