package chat

import (
	"context"
	"fmt"
	"time"
)

// Field names a queryable timestamp of a message.
type Field string

const (
	FieldUpdatedAt Field = "updatedAt"
	FieldCreatedAt Field = "createdAt"
)

// Operator is a comparison applied by a Filter.
type Operator string

const (
	OpGreaterThan      Operator = "greater_than"
	OpGreaterThanEqual Operator = "greater_than_equal"
	OpLessThan         Operator = "less_than"
)

// Sort orders accepted by Query.Sort. A leading "-" means descending.
const (
	SortUpdatedAtDesc = "-updatedAt"
	SortUpdatedAtAsc  = "updatedAt"
	SortCreatedAtDesc = "-createdAt"
)

// Filter compares one timestamp field against a value.
type Filter struct {
	Field    Field
	Operator Operator
	Value    time.Time
}

// Query is a find request against the message collection.
type Query struct {
	Filter *Filter
	Sort   string
	// Limit caps the number of records returned; zero means no cap.
	Limit int
}

// Validate rejects fields, operators and sort keys the store does not know.
func (q Query) Validate() error {
	if q.Filter != nil {
		switch q.Filter.Field {
		case FieldUpdatedAt, FieldCreatedAt:
		default:
			return fmt.Errorf("chat: unknown filter field %q", q.Filter.Field)
		}
		switch q.Filter.Operator {
		case OpGreaterThan, OpGreaterThanEqual, OpLessThan:
		default:
			return fmt.Errorf("chat: unknown filter operator %q", q.Filter.Operator)
		}
	}
	switch q.Sort {
	case "", SortUpdatedAtDesc, SortUpdatedAtAsc, SortCreatedAtDesc:
	default:
		return fmt.Errorf("chat: unknown sort %q", q.Sort)
	}
	if q.Limit < 0 {
		return fmt.Errorf("chat: negative limit %d", q.Limit)
	}
	return nil
}

// Finder runs queries against the message collection.
type Finder interface {
	Find(ctx context.Context, q Query) ([]Message, error)
}
