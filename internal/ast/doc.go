// Package ast is the immutable syntax tree consumed by the resolution core.
//
// Trees are produced by a Builder (the declaration-source loader or tests) and
// stored in per-kind arenas addressed by small integer IDs; 0 is always the
// "absent" ID. After construction the core only reads the tree.
package ast
