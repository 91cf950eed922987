package core

import (
	"iter"
)

// Filter selects records for List and Count. A nil Filter selects everything.
type Filter[R any] func(R) bool

// Matcher selects records for aggregation. Unlike a Filter it may fail, which
// signals a record whose stored data cannot be interpreted.
type Matcher[R any] func(R) (bool, error)

// And combines filters; nil entries are ignored.
func And[R any](filters ...Filter[R]) Filter[R] {
	return func(r R) bool {
		for _, f := range filters {
			if f != nil && !f(r) {
				return false
			}
		}
		return true
	}
}

// Where lifts a Filter into a Matcher.
func Where[R any](f Filter[R]) Matcher[R] {
	if f == nil {
		return nil
	}
	return func(r R) (bool, error) { return f(r), nil }
}

// MatchAll combines matchers; the first error wins.
func MatchAll[R any](matchers ...Matcher[R]) Matcher[R] {
	return func(r R) (bool, error) {
		for _, m := range matchers {
			if m == nil {
				continue
			}
			ok, err := m(r)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// List yields the records accepted by filter in ascending id order. The
// sequence reads the table when iterated, so ranging over it again reflects
// mutations made in between.
func (t *Table[R]) List(filter Filter[R]) iter.Seq2[RecordID, R] {
	return func(yield func(RecordID, R) bool) {
		t.mu.RLock()
		ids := t.doc.IDs()
		t.mu.RUnlock()

		for _, id := range ids {
			t.mu.RLock()
			rec, ok := t.doc.Records[id]
			t.mu.RUnlock()
			if !ok {
				continue
			}
			if filter != nil && !filter(rec) {
				continue
			}
			if !yield(id, rec) {
				return
			}
		}
	}
}

// Count returns the number of records accepted by filter.
func (t *Table[R]) Count(filter Filter[R]) int {
	n := 0
	for range t.List(filter) {
		n++
	}
	return n
}

// Aggregate sums value over the records accepted by match. No matching
// record yields zero. A failing matcher or value function aborts the whole
// aggregation with ErrDataIntegrity naming the offending record.
func (t *Table[R]) Aggregate(value func(R) (float64, error), match Matcher[R]) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen("aggregate"); err != nil {
		return 0, err
	}

	var total float64
	for _, id := range t.doc.IDs() {
		v, ok, err := t.evaluate(id, value, match)
		if err != nil {
			return 0, err
		}
		if ok {
			total += v
		}
	}
	return total, nil
}

// GroupSum is Aggregate partitioned by key.
func (t *Table[R]) GroupSum(key func(R) (string, error), value func(R) (float64, error), match Matcher[R]) (map[string]float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen("aggregate"); err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	for _, id := range t.doc.IDs() {
		v, ok, err := t.evaluate(id, value, match)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		k, err := key(t.doc.Records[id])
		if err != nil {
			return nil, &Error{Kind: ErrDataIntegrity, Op: "aggregate", ID: id, Err: err}
		}
		totals[k] += v
	}
	return totals, nil
}

func (t *Table[R]) evaluate(id RecordID, value func(R) (float64, error), match Matcher[R]) (float64, bool, error) {
	rec := t.doc.Records[id]
	if match != nil {
		ok, err := match(rec)
		if err != nil {
			return 0, false, &Error{Kind: ErrDataIntegrity, Op: "aggregate", ID: id, Err: err}
		}
		if !ok {
			return 0, false, nil
		}
	}
	v, err := value(rec)
	if err != nil {
		return 0, false, &Error{Kind: ErrDataIntegrity, Op: "aggregate", ID: id, Err: err}
	}
	return v, true, nil
}
