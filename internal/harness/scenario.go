package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
)

// Scenario defines a single conformance test.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Input is the path of a YAML IR file. Exactly one of Input and IR is set.
	Input string `yaml:"input,omitempty"`

	// IR is an inline YAML IR document.
	IR string `yaml:"ir,omitempty"`

	// Pipeline is the anchored pipeline text, e.g. "builtin.module(cse)".
	Pipeline string `yaml:"pipeline"`

	// Threads enables multithreaded execution with that many workers when
	// greater than 1.
	Threads int `yaml:"threads,omitempty"`

	// Expect is the expected outcome.
	Expect Expect `yaml:"expect"`
}

// Expect describes the expected outcome of a scenario.
type Expect struct {
	// Success is true when the pipeline must parse and run without error.
	Success bool `yaml:"success"`

	// ErrorCode is the expected pass.ErrorCode of a failing scenario.
	ErrorCode string `yaml:"error_code,omitempty"`

	// Output lists substrings the pass output must contain.
	Output []string `yaml:"output,omitempty"`

	// Diagnostics lists substrings the diagnostics must contain.
	Diagnostics []string `yaml:"diagnostics,omitempty"`

	// Executions is the expected number of recorded pass executions,
	// or nil to skip the check.
	Executions *int `yaml:"executions,omitempty"`
}

var knownCodes = map[pass.ErrorCode]bool{
	pass.ErrCodeAnchorMismatch: true,
	pass.ErrCodeSyntax:         true,
	pass.ErrCodeUnknownPass:    true,
	pass.ErrCodeInvalidOptions: true,
	pass.ErrCodeDialect:        true,
	pass.ErrCodeInitialize:     true,
	pass.ErrCodePassFailed:     true,
	pass.ErrCodeClosed:         true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected. A relative Input path is resolved against the
// directory of the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Input != "" && !filepath.IsAbs(s.Input) {
		s.Input = filepath.Join(filepath.Dir(path), s.Input)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarios loads every *.yaml file of dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	switch {
	case s.Input == "" && s.IR == "":
		return fmt.Errorf("one of input or ir is required")
	case s.Input != "" && s.IR != "":
		return fmt.Errorf("input and ir are mutually exclusive")
	}
	if s.Threads < 0 {
		return fmt.Errorf("threads must be non-negative")
	}

	e := s.Expect
	if e.Success && e.ErrorCode != "" {
		return fmt.Errorf("expect: error_code cannot be set on a successful scenario")
	}
	if e.ErrorCode != "" && !knownCodes[pass.ErrorCode(e.ErrorCode)] {
		return fmt.Errorf("expect: unknown error code %q", e.ErrorCode)
	}
	if e.Executions != nil && *e.Executions < 0 {
		return fmt.Errorf("expect: executions must be non-negative")
	}
	return nil
}

// loadIR returns the scenario's root operation.
func (s *Scenario) loadIR() (*ir.Operation, error) {
	if s.IR != "" {
		return ir.Parse(s.IR)
	}
	return ir.LoadFile(s.Input)
}
