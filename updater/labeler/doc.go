// Package labeler provides the merge request labels of a dependency update.
// It makes sure a set of default labels exists on the project, creating the
// missing ones through a git.LabelStore, and returns those defaults followed
// by the labels specific to the request.
package labeler
