package sheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Kind is the block type a sheet entry was declared with
type Kind string

const (
	KindSource Kind = "source"
	KindCell   Kind = "cell"
	KindSelect Kind = "select"
)

// Decl is one declared entry of a sheet
type Decl struct {
	Name string
	Kind Kind

	// Expr is the value expression of a source or cell, or the name
	// expression of a select
	Expr hcl.Expression

	// Deps lists the entries Expr references, sorted and without duplicates
	Deps []string

	// Targetable marks entries a select may switch to: sources and cells
	// that do not depend on any select
	Targetable bool

	Range hcl.Range
}

// Definition is a parsed and validated sheet, ready to be instantiated on a graph
type Definition struct {
	Decls map[string]*Decl

	// Order lists every entry after the entries it needs
	Order []string
}

// hclSheetFile represents the top-level structure of a sheet file for decoding.
type hclSheetFile struct {
	Sources []*hclEntryBlock `hcl:"source,block"`
	Cells   []*hclEntryBlock `hcl:"cell,block"`
	Selects []*hclEntryBlock `hcl:"select,block"`
}

// hclEntryBlock leaves the block body undecoded. Its one attribute is read
// against a schema that requires it.
type hclEntryBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var (
	valueSchema  = &hcl.BodySchema{Attributes: []hcl.AttributeSchema{{Name: "value", Required: true}}}
	selectSchema = &hcl.BodySchema{Attributes: []hcl.AttributeSchema{{Name: "on", Required: true}}}
)

// attribute returns the expression of the one attribute schema declares, or
// nil when it is missing.
func (b *hclEntryBlock) attribute(schema *hcl.BodySchema) (hcl.Expression, hcl.Diagnostics) {
	content, diags := b.Body.Content(schema)
	if content == nil {
		return nil, diags
	}
	attr, ok := content.Attributes[schema.Attributes[0].Name]
	if !ok {
		return nil, diags
	}
	return attr.Expr, diags
}

// Load parses the sheet file at path
func Load(path string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse sheet %s: %w", path, diags)
	}

	def, diags := decode(file.Body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid sheet %s: %w", path, diags)
	}
	return def, nil
}

// Parse parses sheet source held in memory. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Definition, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Definition, hcl.Diagnostics) {
	var parsed hclSheetFile
	diags := gohcl.DecodeBody(body, nil, &parsed)
	if diags.HasErrors() {
		return nil, diags
	}

	def := &Definition{Decls: make(map[string]*Decl)}
	add := func(name string, kind Kind, expr hcl.Expression) {
		if prev, exists := def.Decls[name]; exists {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate sheet entry",
				Detail:   fmt.Sprintf("%q is already declared as a %s at %s.", name, prev.Kind, prev.Range),
				Subject:  expr.Range().Ptr(),
			})
			return
		}
		deps, depDiags := references(expr)
		diags = append(diags, depDiags...)
		def.Decls[name] = &Decl{Name: name, Kind: kind, Expr: expr, Deps: deps, Range: expr.Range()}
	}

	blocks := []struct {
		kind   Kind
		schema *hcl.BodySchema
		list   []*hclEntryBlock
	}{
		{KindSource, valueSchema, parsed.Sources},
		{KindCell, valueSchema, parsed.Cells},
		{KindSelect, selectSchema, parsed.Selects},
	}
	for _, group := range blocks {
		for _, b := range group.list {
			expr, attrDiags := b.attribute(group.schema)
			diags = append(diags, attrDiags...)
			if expr != nil {
				add(b.Name, group.kind, expr)
			}
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	diags = append(diags, def.validate()...)
	if diags.HasErrors() {
		return nil, diags
	}

	def.markTargets()
	def.sort()
	return def, diags
}

// references extracts the entries expr reads. A reference has the form
// cell.<name>.
func references(expr hcl.Expression) ([]string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	seen := make(map[string]bool)
	var deps []string

	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "cell" {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported reference",
				Detail:   fmt.Sprintf("Only cell.<name> references are allowed, got %q.", traversal.RootName()),
				Subject:  traversal.SourceRange().Ptr(),
			})
			continue
		}

		var attr hcl.TraverseAttr
		ok := len(traversal) >= 2
		if ok {
			attr, ok = traversal[1].(hcl.TraverseAttr)
		}
		if !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid cell reference",
				Detail:   "A cell reference must name the cell, as in cell.total.",
				Subject:  traversal.SourceRange().Ptr(),
			})
			continue
		}

		if !seen[attr.Name] {
			seen[attr.Name] = true
			deps = append(deps, attr.Name)
		}
	}

	sort.Strings(deps)
	return deps, diags
}

func (d *Definition) names() []string {
	names := make([]string, 0, len(d.Decls))
	for name := range d.Decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Definition) validate() hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, name := range d.names() {
		decl := d.Decls[name]
		if decl.Kind == KindSource && len(decl.Deps) > 0 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Source value must be constant",
				Detail:   fmt.Sprintf("Source %q references %s; declare it as a cell instead.", name, strings.Join(decl.Deps, ", ")),
				Subject:  decl.Range.Ptr(),
			})
			continue
		}
		for _, dep := range decl.Deps {
			if _, ok := d.Decls[dep]; !ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Reference to undeclared cell",
					Detail:   fmt.Sprintf("%q references cell %q, which is not declared.", name, dep),
					Subject:  decl.Range.Ptr(),
				})
			}
		}
	}
	if diags.HasErrors() {
		return diags
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(d.Decls))
	var path []string
	var visit func(name string)
	visit = func(name string) {
		switch state[name] {
		case done:
			return
		case visiting:
			start := 0
			for i, p := range path {
				if p == name {
					start = i
				}
			}
			cycle := append(append([]string{}, path[start:]...), name)
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Dependency cycle",
				Detail:   fmt.Sprintf("Entries depend on each other: %s.", strings.Join(cycle, " -> ")),
				Subject:  d.Decls[name].Range.Ptr(),
			})
			return
		}
		state[name] = visiting
		path = append(path, name)
		for _, dep := range d.Decls[name].Deps {
			visit(dep)
		}
		path = path[:len(path)-1]
		state[name] = done
	}
	for _, name := range d.names() {
		visit(name)
	}
	return diags
}

// markTargets flags the entries that can never depend on a select. Switching
// a select to one of them cannot close a cycle.
func (d *Definition) markTargets() {
	memo := make(map[string]bool, len(d.Decls))
	var free func(name string) bool
	free = func(name string) bool {
		if v, ok := memo[name]; ok {
			return v
		}
		decl := d.Decls[name]
		ok := decl.Kind != KindSelect
		for _, dep := range decl.Deps {
			ok = ok && free(dep)
		}
		memo[name] = ok
		return ok
	}
	for name, decl := range d.Decls {
		decl.Targetable = free(name)
	}
}

// sort computes Order. A select additionally comes after every targetable
// entry because it may switch to any of them.
func (d *Definition) sort() {
	names := d.names()
	var targets []string
	for _, name := range names {
		if d.Decls[name].Targetable {
			targets = append(targets, name)
		}
	}

	placed := make(map[string]bool, len(names))
	order := make([]string, 0, len(names))
	var place func(name string)
	place = func(name string) {
		if placed[name] {
			return
		}
		placed[name] = true
		decl := d.Decls[name]
		for _, dep := range decl.Deps {
			place(dep)
		}
		if decl.Kind == KindSelect {
			for _, t := range targets {
				place(t)
			}
		}
		order = append(order, name)
	}
	for _, name := range names {
		place(name)
	}

	d.Order = order
}
