package interpret

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odorscope/odorscope/internal/analysis"
)

type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

type Rule struct {
	ID   string `yaml:"id"`
	When struct {
		All []Condition `yaml:"all"`
	} `yaml:"when"`
	Then Note `yaml:"then"`
}

// Condition fields:
//
//	label.<odor>  probability of that odor
//	best          probability of the most likely odor
//	margin        best minus runner-up
//	rank.<n>      probability at 1-based rank n
type Condition struct {
	Field string  `yaml:"field"`
	Op    string  `yaml:"op"`
	Value float64 `yaml:"value"`
}

type Note struct {
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
}

func LoadRules(path string) ([]Rule, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var set RuleSet
	if err := yaml.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	for _, r := range set.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("parse rules: rule without id")
		}
		for _, cond := range r.When.All {
			if !validOp(cond.Op) {
				return nil, fmt.Errorf("parse rules: rule %s: unknown op %q", r.ID, cond.Op)
			}
		}
	}
	return set.Rules, nil
}

func (r Rule) Evaluate(ranked analysis.Ranked) bool {
	for _, cond := range r.When.All {
		val, ok := lookupField(cond.Field, ranked)
		if !ok {
			return false
		}
		if !compare(val, cond.Value, cond.Op) {
			return false
		}
	}
	return true
}

// Interpreter attaches the notes of every matching rule, in file order.
type Interpreter struct {
	rules []Rule
}

func New(rules []Rule) *Interpreter {
	return &Interpreter{rules: rules}
}

func (in *Interpreter) Annotate(ranked analysis.Ranked) []analysis.Note {
	notes := make([]analysis.Note, 0, len(in.rules))
	for _, rule := range in.rules {
		if rule.Evaluate(ranked) {
			notes = append(notes, analysis.Note{
				RuleID:   rule.ID,
				Message:  rule.Then.Message,
				Severity: rule.Then.Severity,
			})
		}
	}
	return notes
}

func lookupField(field string, ranked analysis.Ranked) (float64, bool) {
	switch {
	case strings.HasPrefix(field, "label."):
		return ranked.Probability(strings.TrimPrefix(field, "label."))
	case strings.HasPrefix(field, "rank."):
		n, err := strconv.Atoi(strings.TrimPrefix(field, "rank."))
		if err != nil || n < 1 || n > len(ranked) {
			return 0, false
		}
		return ranked[n-1].Probability, true
	case field == "best":
		if len(ranked) == 0 {
			return 0, false
		}
		return ranked[0].Probability, true
	case field == "margin":
		if len(ranked) < 2 {
			return 0, false
		}
		return ranked[0].Probability - ranked[1].Probability, true
	default:
		return 0, false
	}
}

func validOp(op string) bool {
	switch strings.ToLower(op) {
	case "gte", "lte", "gt", "lt", "eq":
		return true
	}
	return false
}

func compare(actual, target float64, op string) bool {
	switch strings.ToLower(op) {
	case "gte":
		return actual >= target
	case "lte":
		return actual <= target
	case "gt":
		return actual > target
	case "lt":
		return actual < target
	case "eq":
		return actual == target
	default:
		return false
	}
}
