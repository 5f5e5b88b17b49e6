package autotest

import (
	"regexp"

	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// TestSelector picks which testing scenarios apply to subject, grounded
// on selectors.py.
type TestSelector interface {
	Select(w *workflow.Workflow, subject task.Task) []Scenario
}

// AllTestSelector selects every scenario named in subject's "tests"
// annotation (see TestableTask), resolved through the Scenario
// registry; unregistered names are silently skipped.
type AllTestSelector struct{}

func (AllTestSelector) Select(w *workflow.Workflow, subject task.Task) []Scenario {
	var scenarios []Scenario
	for _, name := range w.Tests(subject) {
		if s, ok := Resolve(name); ok {
			scenarios = append(scenarios, s)
		}
	}
	return scenarios
}

// RegexTestSelector narrows AllTestSelector's result to (subjectRegex,
// scenarioRegex) pairs that both match.
type RegexTestSelector struct {
	Regexes [][2]*regexp.Regexp
}

// NewRegexTestSelector compiles (subject, scenario) regex pairs given as
// strings.
func NewRegexTestSelector(pairs [][2]string) (*RegexTestSelector, error) {
	compiled := make([][2]*regexp.Regexp, len(pairs))
	for i, pair := range pairs {
		subjectRe, err := regexp.Compile(pair[0])
		if err != nil {
			return nil, err
		}
		scenarioRe, err := regexp.Compile(pair[1])
		if err != nil {
			return nil, err
		}
		compiled[i] = [2]*regexp.Regexp{subjectRe, scenarioRe}
	}
	return &RegexTestSelector{Regexes: compiled}, nil
}

func (s *RegexTestSelector) Select(w *workflow.Workflow, subject task.Task) []Scenario {
	var out []Scenario
	for _, scenario := range (AllTestSelector{}).Select(w, subject) {
		if s.match(subject, scenario) {
			out = append(out, scenario)
		}
	}
	return out
}

func (s *RegexTestSelector) match(subject task.Task, scenario Scenario) bool {
	for _, pair := range s.Regexes {
		if pair[0].MatchString(subject.Name()) && pair[1].MatchString(scenario.Name()) {
			return true
		}
	}
	return false
}
