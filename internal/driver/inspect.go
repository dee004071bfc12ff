package driver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/metadata"
	"frontcore/internal/names"
	"frontcore/internal/resolve"
	"frontcore/internal/storage"
	"frontcore/internal/trace"
)

// Listing is the rendered content of one library package. Members of a
// class follow it, indented by two spaces per nesting level.
type Listing struct {
	Package string
	Lines   []string
}

// Describe loads lib on its own and renders every declaration it carries.
// Problems met while deserializing are returned as diagnostics.
func Describe(ctx context.Context, lib *metadata.Library, classDirs []string) ([]Listing, []diag.Diagnostic, error) {
	nt := names.NewTable()
	bag := diag.NewBag(0)
	opts := providerOptions(nt, storage.ModeSingleThreaded, classDirs, diag.BagReporter{Bag: bag})
	p, err := metadata.NewProvider(nt, []*metadata.Library{lib}, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("index %s: %w", lib.Header.Module, err)
	}
	sess, err := resolve.NewSession(resolve.Config{
		ModuleName: lib.Header.Module,
		Names:      nt,
		Libraries:  []resolve.Library{p},
		Reporter:   diag.BagReporter{Bag: bag},
		Tracer:     trace.FromContext(ctx),
	})
	if err != nil {
		return nil, nil, err
	}

	pkgs := slices.Clone(p.Packages())
	slices.SortFunc(pkgs, func(a, b names.FqName) int { return strings.Compare(nt.FqString(a), nt.FqString(b)) })
	var out []Listing
	for _, fq := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		pkg := sess.ResolvePackage(fq)
		if pkg == nil {
			continue
		}
		l := Listing{Package: nt.FqString(fq)}
		l.Lines = describeAll(l.Lines, pkg.MemberScope().All(), 0)
		out = append(out, l)
	}
	bag.Sort()
	return out, bag.Items(), nil
}

func describeAll(lines []string, list []descriptors.Descriptor, depth int) []string {
	rendered := make([]string, len(list))
	order := make([]int, len(list))
	for i, d := range list {
		rendered[i] = descriptors.Render(d)
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return strings.Compare(rendered[a], rendered[b]) })
	indent := strings.Repeat("  ", depth)
	for _, i := range order {
		lines = append(lines, indent+rendered[i])
		c, ok := list[i].(*descriptors.ClassDescriptor)
		if !ok {
			continue
		}
		var members []descriptors.Descriptor
		for _, m := range c.Constructors() {
			members = append(members, m)
		}
		for _, m := range c.DeclaredMembers() {
			members = append(members, m)
		}
		for _, n := range c.NestedClasses() {
			members = append(members, n)
		}
		lines = describeAll(lines, members, depth+1)
	}
	return lines
}
