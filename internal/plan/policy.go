package plan

import "fmt"

// TestScope selects which tests a build unit runs.
type TestScope string

const (
	TestScopeNone TestScope = "none"
	TestScopeUnit TestScope = "unit"
	TestScopeAll  TestScope = "all"
)

// ParseTestScope validates a test scope; the empty string selects TestScopeUnit.
func ParseTestScope(s string) (TestScope, error) {
	switch TestScope(s) {
	case "":
		return TestScopeUnit, nil
	case TestScopeNone, TestScopeUnit, TestScopeAll:
		return TestScope(s), nil
	default:
		return "", fmt.Errorf("unknown test scope %q (want none, unit or all)", s)
	}
}

// Policy holds the lint and test switches applied uniformly to every unit.
type Policy struct {
	LintStrict bool      `json:"lint_strict" yaml:"lint_strict"`
	TestScope  TestScope `json:"test_scope" yaml:"test_scope"`
}
