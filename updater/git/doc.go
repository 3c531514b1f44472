// Package git defines the contract between the merge request creation flow
// and a remote code-hosting platform.
//
// Platform is the set of read and write calls the flow needs: branch and
// commit lookups, merge request listing, branch/commit/submodule mutations,
// merge request creation, and approver edits. LabelStore covers project
// label management. Implementations exist for GitLab and GitHub in
// sub-packages.
//
// Adapters translate platform responses into two sentinel errors the flow
// decides on: ErrNotFound (404) and ErrAlreadyExists (the platform refused
// to create something that is already there). Every other failure is
// returned wrapped with context.
package git
