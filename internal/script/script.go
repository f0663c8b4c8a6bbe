// Package script loads and replays YAML editor scripts.
//
//	text: hello world
//	steps:
//	  - name: move caret
//	    setPosition: {line: 1, column: 2}
//	    expect:
//	      - "handle selection change, source: api"
//	      - "selection: [1,2 -> 1,2], value: 1"
//	  - trigger: {source: keyboard, command: type, payload: abc}
//	  - stopTracing: true
//
// Each step names one session action, or stopTracing. A step with expect
// fails the replay when the entries it produced differ.
package script

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obsedit/obsedit/internal/errors"
	"github.com/obsedit/obsedit/internal/session"
)

// Script is a parsed replay script.
type Script struct {
	// Text is the initial editor text.
	Text  string `yaml:"text"`
	Steps []Step `yaml:"steps"`

	// Path is the file the script was loaded from, if any.
	Path string `yaml:"-"`
}

// Step is one replay step.
type Step struct {
	Name           string `yaml:"name,omitempty"`
	session.Action `yaml:",inline"`

	// StopTracing disposes the change trace instead of running an action.
	StopTracing bool `yaml:"stopTracing,omitempty"`

	// Expect, when set, lists the entries the step must produce.
	Expect []string `yaml:"expect,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// stepKeys holds the keys a step mapping may use.
var stepKeys = yamlKeys(reflect.TypeOf(Step{}))

// yamlKeys returns the mapping keys yaml.v3 decodes into struct type t,
// following inline fields.
func yamlKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "inline") {
			for k := range yamlKeys(f.Type) {
				keys[k] = struct{}{}
			}
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		keys[name] = struct{}{}
	}
	return keys
}

// unknownFieldError reports a step key that no step field decodes.
type unknownFieldError struct {
	key          string
	line, column int
}

func (e *unknownFieldError) Error() string {
	return fmt.Sprintf("line %d: unknown step field %q", e.line, e.key)
}

// UnmarshalYAML rejects unknown keys and records the position of the step
// in the file.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if _, ok := stepKeys[key.Value]; !ok {
				return &unknownFieldError{key: key.Value, line: key.Line, column: key.Column}
			}
		}
	}

	type plain Step
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	s.Line, s.Column = node.Line, node.Column
	return nil
}

// Label names the step for output: its name, or its action.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.StopTracing {
		return "stopTracing"
	}
	return s.Action.Name()
}

func (s Step) validate() error {
	if s.StopTracing {
		if s.Action.Validate() == nil {
			return fmt.Errorf("%w: stopTracing with an action", session.ErrInvalidAction)
		}
		return nil
	}
	return s.Action.Validate()
}

// Parse decodes a script. path is used in error locations only.
func Parse(data []byte, path string) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Script
	if err := dec.Decode(&sc); err != nil {
		e := errors.New("E201").WithDetail(err.Error())
		var field *unknownFieldError
		switch {
		case path == "":
		case stderrors.As(err, &field):
			e.WithLocation(path, field.line, field.column).
				WithSuggestion("step keys are name, expect, stopTracing and one action")
		default:
			e.Location = &errors.Location{File: path}
		}
		return nil, e
	}
	sc.Path = path

	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return nil, stepError("E201", &sc, i, err)
		}
	}
	return &sc, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E200").WithDetail(path).Wrap(err)
	}
	return Parse(data, path)
}

func stepError(code string, sc *Script, i int, err error) *errors.Error {
	st := sc.Steps[i]
	e := errors.New(code).
		WithDetail(fmt.Sprintf("step %d (%s)", i+1, st.Label())).
		Wrap(err)
	if sc.Path != "" && st.Line > 0 {
		e.WithLocation(sc.Path, st.Line, st.Column)
	}
	return e
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int      `json:"index" yaml:"index"`
	Label   string   `json:"label" yaml:"label"`
	Entries []string `json:"entries" yaml:"entries"`
}

// Result is the outcome of a replay.
type Result struct {
	// Initial holds the entries logged when tracing started.
	Initial []string      `json:"initial" yaml:"initial"`
	Steps   []StepResult  `json:"steps" yaml:"steps"`
	Final   session.State `json:"final" yaml:"final"`
}

// Entries returns every entry of the replay in order.
func (r *Result) Entries() []string {
	all := append([]string(nil), r.Initial...)
	for _, st := range r.Steps {
		all = append(all, st.Entries...)
	}
	return all
}

// Run replays sc against s. It stops at the first failing step and returns
// the results gathered so far together with the error.
func Run(ctx context.Context, sc *Script, s *session.Session) (*Result, error) {
	res := &Result{Initial: s.Entries()}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var entries []string
		if st.StopTracing {
			s.StopTracing()
			entries = s.Entries()
		} else {
			var err error
			entries, err = s.Apply(ctx, st.Action)
			if err != nil {
				res.Steps = append(res.Steps, StepResult{Index: i + 1, Label: st.Label(), Entries: entries})
				return res, stepError("E202", sc, i, err)
			}
		}
		res.Steps = append(res.Steps, StepResult{Index: i + 1, Label: st.Label(), Entries: entries})

		if st.Expect != nil && !reflect.DeepEqual(entries, st.Expect) {
			return res, stepError("E203", sc, i, fmt.Errorf("got %q, want %q", entries, st.Expect))
		}
	}

	res.Final = s.State()
	return res, nil
}
