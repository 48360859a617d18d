package docstore

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEqual        Op = "=="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Valid reports whether op is one of the supported operators.
func (op Op) Valid() bool {
	switch op {
	case OpEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents of one collection. Filters are ANDed; documents
// missing a filtered field never match. Results are ordered by Orders and
// then by document id.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Limit      int
}

// From starts a query over collection.
func From(collection string) Query {
	return Query{Collection: collection}
}

func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(slices.Clip(q.Filters), Filter{Field: field, Op: op, Value: NormalizeValue(value)})
	return q
}

func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(slices.Clip(q.Orders), Order{Field: field, Direction: dir})
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Validate checks the query can be evaluated.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("%w: empty filter field", ErrInvalidQuery)
		}
		if !f.Op.Valid() {
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, f.Op)
		}
	}
	for _, o := range q.Orders {
		if o.Field == "" {
			return fmt.Errorf("%w: empty order field", ErrInvalidQuery)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// Matches reports whether doc satisfies every filter of q.
func (q Query) Matches(doc Document) bool {
	for _, f := range q.Filters {
		v, ok := doc.Data[f.Field]
		if !ok {
			return false
		}
		c, ok := CompareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if c != 0 {
				return false
			}
		case OpLess:
			if c >= 0 {
				return false
			}
		case OpLessEqual:
			if c > 0 {
				return false
			}
		case OpGreater:
			if c <= 0 {
				return false
			}
		case OpGreaterEqual:
			if c < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Apply filters, sorts and limits docs in place and returns the result.
func (q Query) Apply(docs []Document) []Document {
	out := docs[:0]
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	SortDocuments(out, q.Orders)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortDocuments orders docs by orders, then by id. Documents missing an order
// field sort after those that have it regardless of direction.
func SortDocuments(docs []Document, orders []Order) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		for _, o := range orders {
			av, aok := a.Data[o.Field]
			bv, bok := b.Data[o.Field]
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return 1
			case !bok:
				return -1
			}
			c, ok := CompareValues(av, bv)
			if !ok || c == 0 {
				continue
			}
			if o.Direction == Desc {
				return -c
			}
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Classify maps whether a document matched a live query before and after a
// write to the change a subscriber should see.
func Classify(before, after bool) (ChangeType, bool) {
	switch {
	case !before && after:
		return ChangeAdded, true
	case before && after:
		return ChangeModified, true
	case before && !after:
		return ChangeRemoved, true
	}
	return 0, false
}

// CompareValues orders two stored values. Numbers compare numerically across
// Go numeric types and json.Number; times compare chronologically, accepting
// RFC 3339 strings on either side. ok is false for incomparable kinds.
func CompareValues(a, b any) (c int, ok bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return cmp.Compare(af, bf), true
		}
		return 0, false
	}
	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			return at.Compare(bt), true
		}
		if bs, bok := b.(string); bok {
			if bt, err := time.Parse(time.RFC3339Nano, bs); err == nil {
				return at.Compare(bt), true
			}
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		if bv, bok := b.(string); bok {
			return cmp.Compare(av, bv), true
		}
		if bt, bok := b.(time.Time); bok {
			if at, err := time.Parse(time.RFC3339Nano, av); err == nil {
				return at.Compare(bt), true
			}
		}
	case bool:
		if bv, bok := b.(bool); bok {
			return cmp.Compare(boolRank(av), boolRank(bv)), true
		}
	case nil:
		return 0, b == nil
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}
