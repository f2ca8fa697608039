// Package tools holds the tool catalog: one Descriptor per tool, pairing its
// schema with the handler that adapts arguments into a backend call.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

// Handler runs one tool. A returned error is turned into response text by the
// dispatcher.
type Handler func(ctx context.Context, args map[string]any) (mcp.ToolResult, error)

// Descriptor is an immutable tool definition.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Tool returns the wire definition, without the handler.
func (d Descriptor) Tool() mcp.Tool {
	return mcp.Tool{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
}

// Required lists the argument names the schema declares as required.
func (d Descriptor) Required() []string {
	switch req := d.InputSchema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Registry is the read-only catalog. Order is registration order.
type Registry struct {
	list   []Descriptor
	byName map[string]int
}

// Builder collects descriptors and rejects duplicate names.
type Builder struct {
	list []Descriptor
	seen map[string]bool
	dups []string
}

func NewBuilder() *Builder {
	return &Builder{seen: map[string]bool{}}
}

func (b *Builder) Add(ds ...Descriptor) *Builder {
	for _, d := range ds {
		if b.seen[d.Name] {
			b.dups = append(b.dups, d.Name)
			continue
		}
		b.seen[d.Name] = true
		b.list = append(b.list, d)
	}
	return b
}

// Build freezes the catalog. It fails if any name was added twice or a
// descriptor has no name or handler.
func (b *Builder) Build() (*Registry, error) {
	if len(b.dups) > 0 {
		sort.Strings(b.dups)
		return nil, fmt.Errorf("duplicate tool names: %v", b.dups)
	}
	r := &Registry{list: make([]Descriptor, len(b.list)), byName: make(map[string]int, len(b.list))}
	for i, d := range b.list {
		if d.Name == "" || d.Handler == nil {
			return nil, fmt.Errorf("tool #%d (%q) is missing a name or handler", i, d.Name)
		}
		r.list[i] = d
		r.byName[d.Name] = i
	}
	return r, nil
}

// List returns every descriptor in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.list))
	copy(out, r.list)
	return out
}

// Tools returns the wire definitions of every tool.
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(r.list))
	for i, d := range r.list {
		out[i] = d.Tool()
	}
	return out
}

// Find looks up a tool by name.
func (r *Registry) Find(name string) (Descriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.list[i], true
}

// Len is the number of registered tools.
func (r *Registry) Len() int { return len(r.list) }

// ValidateRequired returns the required arguments absent from args, in schema
// order. Only presence is checked; a key present with a null value counts as
// present. Types, enums and ranges are not enforced.
func ValidateRequired(d Descriptor, args map[string]any) []string {
	var missing []string
	for _, name := range d.Required() {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
