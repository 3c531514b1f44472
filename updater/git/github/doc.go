// Package github implements git.Platform and git.LabelStore on top of the
// GitHub REST API (cloud or enterprise). Merge requests map to pull requests,
// repositories are addressed as "owner/name", and commits are built with the
// git data API so that several files, or a submodule pointer, change in one
// commit. Set EnterpriseHost for GitHub Enterprise installations.
package github
