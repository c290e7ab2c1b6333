// Package catalog loads named pass pipelines from CUE files.
//
// A catalog directory holds one CUE package declaring pipelines:
//
//	package pipelines
//
//	pipeline: "module-stats": {
//		description: "Print op stats for every function"
//		pipeline:    "func.func(print-op-stats)"
//	}
//
// Pipeline text is an element list, as accepted by pass.AddPipeline.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
)

// schema constrains the pipeline section of a catalog.
const schema = `
pipeline: [string]: {
	description: *"" | string
	pipeline:    string & !=""
}
`

// Entry is one named pipeline.
type Entry struct {
	Name        string
	Description string
	Pipeline    string
	Pos         token.Pos
}

// LoadError is a catalog error with its CUE position if available.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads every CUE file of the package in dir and returns its pipelines
// sorted by name.
func Load(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	return entries(ctx, ctx.BuildInstance(inst))
}

// Compile reads pipelines from CUE source text.
func Compile(src string) ([]Entry, error) {
	ctx := cuecontext.New()
	return entries(ctx, ctx.CompileString(src, cue.Filename("catalog.cue")))
}

func entries(ctx *cue.Context, v cue.Value) ([]Entry, error) {
	if err := v.Err(); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	v = v.Unify(ctx.CompileString(schema))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("invalid catalog: %v", err)}
	}

	section := v.LookupPath(cue.ParsePath("pipeline"))
	if !section.Exists() {
		return nil, nil
	}
	iter, err := section.Fields()
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("iterating pipelines: %v", err), Pos: section.Pos()}
	}

	var out []Entry
	for iter.Next() {
		val := iter.Value()
		e := Entry{Name: iter.Label(), Pos: val.Pos()}
		if e.Description, err = val.LookupPath(cue.ParsePath("description")).String(); err != nil {
			return nil, &LoadError{Message: fmt.Sprintf("pipeline %q: description: %v", e.Name, err), Pos: e.Pos}
		}
		if e.Pipeline, err = val.LookupPath(cue.ParsePath("pipeline")).String(); err != nil {
			return nil, &LoadError{Message: fmt.Sprintf("pipeline %q: pipeline: %v", e.Name, err), Pos: e.Pos}
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Register adds entries to reg as pipelines. Entries whose name is already
// registered are skipped and returned.
func Register(reg *pass.Registry, entries []Entry) (skipped []string) {
	for _, e := range entries {
		if !reg.RegisterPipeline(e.Name, e.Description, e.Pipeline) {
			skipped = append(skipped, e.Name)
		}
	}
	return skipped
}

// Validate checks that every entry resolves against reg. Pipelines that
// expand into themselves are reported by cycle; every other failing entry
// reports its first diagnostic.
func Validate(reg *pass.Registry, entries []Entry) error {
	var problems []string
	inCycle := make(map[string]bool)
	for _, c := range Cycles(reg, entries) {
		problems = append(problems, "cycle: "+c.String())
		for _, name := range c.Path {
			inCycle[name] = true
		}
	}

	for _, e := range entries {
		if inCycle[e.Name] {
			continue
		}
		var diag strings.Builder
		pm := pass.New(ir.NewContext(), pass.WithRegistry(reg))
		err := pass.AddPipeline(pm.AsOpPassManager(), e.Pipeline, pass.WriterSink(&diag))
		pm.Close()
		if err != nil {
			first, _, _ := strings.Cut(diag.String(), "\n")
			problems = append(problems, fmt.Sprintf("%s: %s", e.Name, first))
		}
	}
	if len(problems) > 0 {
		return &LoadError{Message: "invalid pipelines:\n  " + strings.Join(problems, "\n  ")}
	}
	return nil
}
