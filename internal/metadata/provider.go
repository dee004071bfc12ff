package metadata

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"frontcore/internal/descriptors"
	"frontcore/internal/names"
)

// Provider serves the classes and members of decoded libraries to a
// resolution session. One Provider belongs to one session.
type Provider struct {
	names    *names.Table
	extra    Decorations
	packages []names.FqName
	byPkg    map[names.FqName][]*fragmentIndex
	classes  map[names.ClassId]*fragmentIndex

	mu     sync.Mutex
	deser  map[*fragmentIndex]*Deserializer
	module *descriptors.ModuleDescriptor
}

type ProviderOption func(*Provider)

// WithDecorations merges annotations found outside metadata into every
// deserialized callable.
func WithDecorations(d Decorations) ProviderOption {
	return func(p *Provider) { p.extra = d }
}

// NewProvider indexes libs. A fragment that cannot be indexed makes the
// whole library unusable.
func NewProvider(nt *names.Table, libs []*Library, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		names:   nt,
		byPkg:   make(map[names.FqName][]*fragmentIndex),
		classes: make(map[names.ClassId]*fragmentIndex),
		deser:   make(map[*fragmentIndex]*Deserializer),
	}
	for _, o := range opts {
		o(p)
	}
	for _, lib := range libs {
		for i := range lib.Fragments {
			idx, err := indexFragment(nt, &lib.Fragments[i])
			if err != nil {
				return nil, fmt.Errorf("library %s fragment %d: %w", lib.Header.Module, i, err)
			}
			if _, seen := p.byPkg[idx.pkg]; !seen {
				p.packages = append(p.packages, idx.pkg)
			}
			p.byPkg[idx.pkg] = append(p.byPkg[idx.pkg], idx)
			for id := range idx.classes {
				if _, dup := p.classes[id]; !dup {
					p.classes[id] = idx
				}
			}
		}
	}
	slices.SortFunc(p.packages, func(a, b names.FqName) int {
		return strings.Compare(nt.FqString(a), nt.FqString(b))
	})
	return p, nil
}

func (p *Provider) Packages() []names.FqName { return p.packages }

func (p *Provider) HasClass(id names.ClassId) bool {
	_, ok := p.classes[id]
	return ok
}

func (p *Provider) Classes(fq names.FqName) []names.ClassId {
	var out []names.ClassId
	for _, idx := range p.byPkg[fq] {
		for _, id := range idx.top {
			if p.classes[id] == idx {
				out = append(out, id)
			}
		}
	}
	return out
}

func (p *Provider) deserializer(pkg *descriptors.PackageDescriptor, idx *fragmentIndex) (*Deserializer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.module == nil {
		p.module = pkg.Module()
	} else if p.module != pkg.Module() {
		return nil, fmt.Errorf("library provider is bound to module %s", p.names.MustLookup(p.module.Name()))
	}
	d, ok := p.deser[idx]
	if !ok {
		d = newDeserializer(pkg, idx, p.extra)
		p.deser[idx] = d
	}
	return d, nil
}

func (p *Provider) LoadClass(pkg *descriptors.PackageDescriptor, id names.ClassId) (*descriptors.ClassDescriptor, error) {
	idx, ok := p.classes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, p.names.ClassString(id))
	}
	d, err := p.deserializer(pkg, idx)
	if err != nil {
		return nil, err
	}
	return d.Class(id)
}

func (p *Provider) LoadMembers(pkg *descriptors.PackageDescriptor) ([]*descriptors.CallableDescriptor, error) {
	var out []*descriptors.CallableDescriptor
	for _, idx := range p.byPkg[pkg.FqName()] {
		d, err := p.deserializer(pkg, idx)
		if err != nil {
			return nil, err
		}
		ms, err := d.Members()
		if err != nil {
			return nil, err
		}
		out = append(out, ms...)
	}
	return out, nil
}
