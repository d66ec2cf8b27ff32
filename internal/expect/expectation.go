package expect

import (
	"fmt"
	"strconv"
	"strings"
)

// Relation is the kind of check an Expectation makes.
type Relation string

const (
	RelContains    Relation = "contains"
	RelNotContains Relation = "not-contains"
	RelExists      Relation = "exists"
	RelNotExists   Relation = "not-exists"
)

// Expectation is a relation between the elements a locator matches and an
// expected value.
type Expectation struct {
	Relation Relation `json:"relation"`
	Text     string   `json:"text,omitempty"`
}

// Contain expects some matched element to render text.
func Contain(text string) Expectation { return Expectation{Relation: RelContains, Text: text} }

// NotContain expects no matched element to render text.
func NotContain(text string) Expectation { return Expectation{Relation: RelNotContains, Text: text} }

// Exist expects the locator to match at least one element.
func Exist() Expectation { return Expectation{Relation: RelExists} }

// NotExist expects the locator to match nothing.
func NotExist() Expectation { return Expectation{Relation: RelNotExists} }

// Negative reports whether the relation asserts absence. Absence must be
// observed on consecutive ticks before it counts.
func (e Expectation) Negative() bool {
	return e.Relation == RelNotContains || e.Relation == RelNotExists
}

// Validate checks the expectation is well formed.
func (e Expectation) Validate() error {
	switch e.Relation {
	case RelContains, RelNotContains:
		if strings.TrimSpace(e.Text) == "" {
			return fmt.Errorf("%s requires text", e.Relation)
		}
	case RelExists, RelNotExists:
		if e.Text != "" {
			return fmt.Errorf("%s takes no text", e.Relation)
		}
	default:
		return fmt.Errorf("unknown relation %q", e.Relation)
	}
	return nil
}

// String renders the expectation as a verb phrase, e.g. `contain "Save"`.
func (e Expectation) String() string {
	switch e.Relation {
	case RelContains:
		return "contain " + strconv.Quote(e.Text)
	case RelNotContains:
		return "not contain " + strconv.Quote(e.Text)
	case RelExists:
		return "exist"
	case RelNotExists:
		return "not exist"
	default:
		return string(e.Relation)
	}
}
