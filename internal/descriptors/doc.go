// Package descriptors is the resolved symbol model: modules, packages,
// classes, callables and their parameters.
//
// Every descriptor is created fully formed with its owner fixed. Parts that
// may refer back into the graph (supertypes, members, bounds, return types)
// are storage lazy values computed on first access, so building a class never
// forces unrelated classes. Types are interned types.TypeID values; the module
// implements types.Hierarchy so the subtype checker can walk descriptors
// without importing this package.
package descriptors
