// Package names interns simple and qualified names and defines ClassId, the
// cross-module key for class lookup.
//
// Name and FqName are small integer handles; two strings that are equal after
// NFC normalization always intern to the same handle, so comparisons are plain
// integer comparisons. All lookups go through the owning Table.
package names
