// Package filter describes metadata restrictions applied to vector queries.
package filter

import "fmt"

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 8

// Expression is a conjunction of exact tag matches.
// The zero value matches every record.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Category returns an expression restricting results to one category tag.
func Category(value string) (Expression, error) {
	c, err := NewMatch(FieldCategory, value)
	if err != nil {
		return Expression{}, err
	}
	return NewExpression(c)
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches reports whether fields satisfy every condition.
func (e Expression) Matches(fields map[string]string) bool {
	for _, c := range e.must {
		if fields[c.key] != c.match {
			return false
		}
	}
	return true
}

// FieldCategory is the metadata field carrying the record category.
const FieldCategory = "category"

// Condition is a single exact tag match.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }
