// Package model holds the in-memory shapes for testsets, testcases and
// binding configuration. The loader package fills them from YAML; the
// runner consumes them as already-parsed structures.
package model

// Config is the binding configuration shared by testset- and
// testcase-level scopes: feature modules to import, function bindings,
// ordered variable bindings and request defaults.
type Config struct {
	Name          string            `yaml:"name,omitempty"`
	Requires      []string          `yaml:"requires,omitempty"`
	FunctionBinds map[string]string `yaml:"function_binds,omitempty"`
	VariableBinds []map[string]any  `yaml:"variable_binds,omitempty"`
	Request       map[string]any    `yaml:"request,omitempty"`
}

// TestCase is one request/validate unit. Its binding fields override or
// extend the enclosing testset's for the same names; its request is
// merged over the testset's request defaults at execution time.
type TestCase struct {
	Name          string            `yaml:"name,omitempty"`
	Requires      []string          `yaml:"requires,omitempty"`
	FunctionBinds map[string]string `yaml:"function_binds,omitempty"`
	VariableBinds []map[string]any  `yaml:"variable_binds,omitempty"`
	Request       map[string]any    `yaml:"request"`
	ExtractBinds  map[string]string `yaml:"extract_binds,omitempty"`
	Validators    []Validator       `yaml:"validators,omitempty"`
}

// BindingConfig returns the testcase's binding fields as a Config so the
// runner can apply testset and testcase scopes through one code path.
func (tc *TestCase) BindingConfig() Config {
	return Config{
		Name:          tc.Name,
		Requires:      tc.Requires,
		FunctionBinds: tc.FunctionBinds,
		VariableBinds: tc.VariableBinds,
	}
}

// Validator declares one comparison between a response-derived value and
// an expected value.
type Validator struct {
	Check      string `yaml:"check"`
	Comparator string `yaml:"comparator"`
	Expect     any    `yaml:"expect"`
}

// TestSet is a named group of testcases sharing one configuration scope.
type TestSet struct {
	Name      string     `yaml:"name,omitempty"`
	Config    Config     `yaml:"config"`
	TestCases []TestCase `yaml:"testcases"`
}
