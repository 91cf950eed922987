package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aretw0/tally/pkg/core"
)

var amounts = message.NewPrinter(language.English)

// formatAmount renders an amount with thousands grouping and two decimals.
func formatAmount(v float64) string {
	return amounts.Sprintf("%.2f", v)
}

// formatWhen renders a timestamp relative to now, or "-" when absent.
func formatWhen(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return humanize.Time(*t)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// parseID converts a positional id argument.
func parseID(s string) (core.RecordID, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, core.Invalidf("id", "%q is not a positive integer", s)
	}
	return core.RecordID(n), nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return strconv.Itoa(m)
	}
	return time.Month(m).String()
}
