package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/yigit/substitutions/internal/domain"
	"github.com/yigit/substitutions/internal/pkg/apperrors"
	"github.com/yigit/substitutions/internal/pkg/source"
	"github.com/yigit/substitutions/internal/pkg/validation"
)

// LoadResult holds the valid rules of one fetch, in document order
type LoadResult struct {
	Rules    []domain.Substitution
	Received int
	Dropped  int
}

// SubstitutionRepository reads substitution rules from a Source
type SubstitutionRepository struct {
	source source.Source
	logger zerolog.Logger
}

// NewSubstitutionRepository creates a new SubstitutionRepository
func NewSubstitutionRepository(src source.Source, logger zerolog.Logger) *SubstitutionRepository {
	return &SubstitutionRepository{
		source: src,
		logger: logger,
	}
}

// Load fetches the document and decodes it into rules
func (r *SubstitutionRepository) Load(ctx context.Context) (*LoadResult, error) {
	body, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	result, err := DecodeRules(body, r.logger)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.source.Describe(), err)
	}
	return result, nil
}

// DecodeRules parses a JSON array of rules. A document that is not a JSON array
// fails as a whole; individual elements that do not form a valid rule are
// dropped and logged.
func DecodeRules(body []byte, logger zerolog.Logger) (*LoadResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: document is not valid JSON", apperrors.ErrInvalidPayload)
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected a JSON array, got %s", apperrors.ErrInvalidPayload, root.Type)
	}

	result := &LoadResult{Rules: make([]domain.Substitution, 0)}
	seen := make(map[int64]int)
	index := 0

	root.ForEach(func(_, value gjson.Result) bool {
		i := index
		index++
		result.Received++

		rule, err := decodeRule(value)
		if err != nil {
			result.Dropped++
			logger.Warn().Err(err).Int("index", i).Msg("Dropping malformed substitution rule")
			return true
		}

		if first, ok := seen[rule.ID]; ok {
			logger.Warn().Int64("ruleId", rule.ID).Int("index", i).Int("firstIndex", first).
				Msg("Duplicate substitution rule id")
		} else {
			seen[rule.ID] = i
		}

		result.Rules = append(result.Rules, rule)
		return true
	})

	return result, nil
}

func decodeRule(value gjson.Result) (domain.Substitution, error) {
	var rule domain.Substitution

	if !value.IsObject() {
		return rule, fmt.Errorf("%w: element is %s, not an object", apperrors.ErrMalformedRule, value.Type)
	}
	if id := value.Get("id"); id.Type != gjson.Number {
		return rule, fmt.Errorf("%w: missing numeric id", apperrors.ErrMalformedRule)
	}
	for _, field := range []string{"substituteCourses", "originalCourses"} {
		courses := value.Get(field)
		if !courses.IsArray() || len(courses.Array()) == 0 {
			return rule, fmt.Errorf("%w: %s must be a non-empty array", apperrors.ErrMalformedRule, field)
		}
	}

	if err := json.Unmarshal([]byte(value.Raw), &rule); err != nil {
		return rule, fmt.Errorf("%w: %v", apperrors.ErrMalformedRule, err)
	}

	if err := validation.Struct(rule); err != nil {
		return rule, fmt.Errorf("%w: %v", apperrors.ErrMalformedRule, err)
	}

	// recomputed by the merge
	rule.Interchangeable = false
	return rule, nil
}
