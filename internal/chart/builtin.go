package chart

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

var (
	builtinOnce   sync.Once
	builtinCharts []*Chart
)

// Builtin returns the embedded charts sorted by name. Each call returns fresh
// copies so callers may modify them.
func Builtin() []*Chart {
	builtinOnce.Do(loadBuiltin)
	out := make([]*Chart, len(builtinCharts))
	for i, c := range builtinCharts {
		out[i] = c.clone()
	}
	return out
}

// BuiltinNames lists the embedded chart names
func BuiltinNames() []string {
	builtinOnce.Do(loadBuiltin)
	names := make([]string, len(builtinCharts))
	for i, c := range builtinCharts {
		names[i] = c.Name
	}
	return names
}

// Lookup finds an embedded chart by exact name
func Lookup(name string) (*Chart, bool) {
	for _, c := range Builtin() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// LookupPrefix finds embedded charts whose name starts with prefix
func LookupPrefix(prefix string) []*Chart {
	var out []*Chart
	for _, c := range Builtin() {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// BuiltinSource returns the embedded YAML for a chart
func BuiltinSource(name string) ([]byte, error) {
	return builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
}

func loadBuiltin() {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		panic(err) // embedded, cannot fail
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			panic(err)
		}
		c, err := Parse(data)
		if err != nil {
			panic(fmt.Sprintf("built-in chart %s: %v", e.Name(), err))
		}
		builtinCharts = append(builtinCharts, c)
	}
	sort.Slice(builtinCharts, func(i, j int) bool { return builtinCharts[i].Name < builtinCharts[j].Name })
}

func (c *Chart) clone() *Chart {
	cp := *c
	cp.Stages = make([]Stage, len(c.Stages))
	for i, s := range c.Stages {
		s.Flows = append([]float64(nil), s.Flows...)
		s.Labels = append([]string(nil), s.Labels...)
		s.Orientations = append([]int(nil), s.Orientations...)
		s.PathLengths = append([]float64(nil), s.PathLengths...)
		s.Connect = append([]int(nil), s.Connect...)
		if s.Prior != nil {
			p := *s.Prior
			s.Prior = &p
		}
		if s.TrunkLength != nil {
			t := *s.TrunkLength
			s.TrunkLength = &t
		}
		cp.Stages[i] = s
	}
	cp.Annotations = append([]Annotation(nil), c.Annotations...)
	return &cp
}
