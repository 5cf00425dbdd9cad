package command

import (
	"strconv"
	"strings"
)

// Option is a single filter option. An empty Key makes it positional.
type Option struct {
	Key   string
	Value string
}

// Opt returns a keyed filter option.
func Opt(key, value string) Option {
	return Option{Key: key, Value: value}
}

// Filter is one named stage of a filter chain, e.g. scale=w=320:h=-1.
type Filter struct {
	Name    string
	Options []Option
}

// NewFilter builds a Filter from a name and its options.
func NewFilter(name string, opts ...Option) Filter {
	return Filter{Name: name, Options: opts}
}

// Chain is a linear sequence of filters with optional input and output pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

// Graph is an ordered set of chains, serialized with ';' between chains.
type Graph []Chain

// String renders the filter in the tool's option syntax.
func (f Filter) String() string {
	if len(f.Options) == 0 {
		return f.Name
	}
	parts := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		if o.Key == "" {
			parts = append(parts, quoteValue(o.Value))
			continue
		}
		parts = append(parts, o.Key+"="+quoteValue(o.Value))
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// String renders the chain, including pad labels.
func (c Chain) String() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString("[" + in + "]")
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	for _, out := range c.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// String renders the whole graph.
func (g Graph) String() string {
	parts := make([]string, 0, len(g))
	for _, c := range g {
		if len(c.Filters) == 0 {
			continue
		}
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ";")
}

// quoteValue wraps values containing filtergraph metacharacters in single
// quotes. Embedded single quotes are closed, escaped and reopened.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ",;:[]=' \\") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// formatFloat renders a float without trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
