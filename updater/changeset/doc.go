// Package changeset models the file changes of a dependency update commit.
//
// A Change is one of ContentUpdate, SymlinkUpdate, or SubmoduleUpdate. A
// Set is an ordered list of changes. A set holding a SubmoduleUpdate must
// hold nothing else: submodule pointer moves are committed through a
// dedicated platform call that cannot carry other files.
package changeset
