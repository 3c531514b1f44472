// Package gitlab implements git.Platform and git.LabelStore on top of the
// GitLab REST API. Projects are addressed by their full path
// ("group/project"). Duplicate branches, merge requests, and labels are
// reported as git.ErrAlreadyExists so callers can treat them as success.
package gitlab
