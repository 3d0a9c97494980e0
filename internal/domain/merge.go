package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// KeyStyle selects how merge keys are built from course identifiers.
type KeyStyle string

const (
	// KeyStyleCanonical sorts identifiers numerically and separates the two
	// course sets with "|".
	KeyStyleCanonical KeyStyle = "canonical"
	// KeyStyleLegacy sorts identifiers by their decimal text and joins
	// everything with ",". Keys match the ones produced by the original web page.
	KeyStyleLegacy KeyStyle = "legacy"
)

// ParseKeyStyle validates a key style name. Empty means canonical.
func ParseKeyStyle(s string) (KeyStyle, error) {
	switch KeyStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyStyleCanonical:
		return KeyStyleCanonical, nil
	case KeyStyleLegacy:
		return KeyStyleLegacy, nil
	default:
		return "", fmt.Errorf("unknown merge key style %q", s)
	}
}

// MergeKey returns a fingerprint of the rule's two course sets that does not
// depend on course order or on which set is the substitute side.
func MergeKey(rule Substitution, style KeyStyle) string {
	if style == KeyStyleLegacy {
		return legacyKey(rule)
	}
	return canonicalKey(rule)
}

func canonicalKey(rule Substitution) string {
	orig := sortedIDs(rule.OriginalCourses)
	sub := sortedIDs(rule.SubstituteCourses)
	if slices.Compare(orig, sub) > 0 {
		orig, sub = sub, orig
	}
	return joinIDs(orig) + "|" + joinIDs(sub)
}

func legacyKey(rule Substitution) string {
	orig := strings.Join(sortedIDText(rule.OriginalCourses), ",")
	sub := strings.Join(sortedIDText(rule.SubstituteCourses), ",")
	if orig < sub {
		return orig + "," + sub
	}
	return sub + "," + orig
}

func sortedIDs(courses []Course) []int64 {
	ids := make([]int64, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	slices.Sort(ids)
	return ids
}

func sortedIDText(courses []Course) []string {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = strconv.FormatInt(c.ID, 10)
	}
	slices.Sort(ids)
	return ids
}

func joinIDs(ids []int64) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// Merge collapses rules that are exact inverses of each other into one
// bidirectional relation. The first rule seen for a merge key is kept, later
// rules with the same key only flip it to bidirectional. Output order is the
// order in which each key first appears.
//
// Every rule must have non-empty course sequences; Merge does not check.
func Merge(rules []Substitution, style KeyStyle) []Relation {
	index := make(map[string]int, len(rules))
	relations := make([]Relation, 0, len(rules))

	for _, rule := range rules {
		key := MergeKey(rule, style)
		if i, ok := index[key]; ok {
			relations[i] = relations[i].bidirectional()
			continue
		}
		index[key] = len(relations)
		relations = append(relations, NewRelation(rule))
	}

	return relations
}

// MergeStats summarizes a merge run.
type MergeStats struct {
	Input         int
	Output        int
	Bidirectional int
}

// Stats counts the relations produced from input rules.
func Stats(input int, relations []Relation) MergeStats {
	stats := MergeStats{Input: input, Output: len(relations)}
	for _, r := range relations {
		if r.Interchangeable() {
			stats.Bidirectional++
		}
	}
	return stats
}
