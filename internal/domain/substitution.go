package domain

import (
	"encoding/json"
	"slices"
)

// Course is a catalog course as it appears inside a substitution rule.
type Course struct {
	ID      int64   `json:"id"`
	CN      string  `json:"cn"`
	EN      string  `json:"en"`
	Code    string  `json:"code"`
	Period  float64 `json:"period"`
	Credits float64 `json:"credits"`
}

// Substitution is a raw rule: the substitute courses may be taken in place of
// the original courses. Interchangeable is accepted on input but ignored by Merge.
type Substitution struct {
	ID                int64    `json:"id"`
	SubstituteCourses []Course `json:"substituteCourses" validate:"required,min=1,unique=ID"`
	OriginalCourses   []Course `json:"originalCourses" validate:"required,min=1,unique=ID"`
	Interchangeable   bool     `json:"interchangeable"`
}

// Direction tells whether a relation holds one way or both ways
type Direction int

const (
	// Unidirectional means the substitutes may replace the originals only.
	Unidirectional Direction = iota
	// Bidirectional means either course set may replace the other.
	Bidirectional
)

// String returns the direction name used in logs and views
func (d Direction) String() string {
	if d == Bidirectional {
		return "bidirectional"
	}
	return "unidirectional"
}

// Relation is a merged substitution. It is built by Merge and never mutated
// afterwards; accessors hand out copies of the course slices.
type Relation struct {
	id          int64
	direction   Direction
	substitutes []Course
	originals   []Course
}

// NewRelation builds a unidirectional relation from a rule.
func NewRelation(rule Substitution) Relation {
	return Relation{
		id:          rule.ID,
		direction:   Unidirectional,
		substitutes: slices.Clone(rule.SubstituteCourses),
		originals:   slices.Clone(rule.OriginalCourses),
	}
}

// bidirectional returns a copy of r that holds both ways.
func (r Relation) bidirectional() Relation {
	r.direction = Bidirectional
	return r
}

// ID returns the id of the rule this relation was built from.
func (r Relation) ID() int64 { return r.id }

// Direction returns the relation kind.
func (r Relation) Direction() Direction { return r.direction }

// Interchangeable reports whether the relation is bidirectional.
func (r Relation) Interchangeable() bool { return r.direction == Bidirectional }

// Substitutes returns the substitute course group.
func (r Relation) Substitutes() []Course { return slices.Clone(r.substitutes) }

// Originals returns the original course group.
func (r Relation) Originals() []Course { return slices.Clone(r.originals) }

// Rule converts the relation back to the wire shape of a rule.
func (r Relation) Rule() Substitution {
	return Substitution{
		ID:                r.id,
		SubstituteCourses: r.Substitutes(),
		OriginalCourses:   r.Originals(),
		Interchangeable:   r.Interchangeable(),
	}
}

// MarshalJSON encodes the relation in the same shape as the input rules.
func (r Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Rule())
}
