package git

import (
	"context"
	"errors"
)

// Pattern: Strategy -- swap git platform without
// changing merge request creation logic.

var (
	// ErrNotFound reports that the requested branch,
	// project, or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports that the platform
	// refused a create call because the object is
	// already there.
	ErrAlreadyExists = errors.New("already exists")
)

// ActionUpdate is the only file action kind the
// creation flow submits.
const ActionUpdate = "update"

// StateAll matches merge requests in any state
// (open, closed, merged).
const StateAll = "all"

// Branch is a named ref on the remote repository.
type Branch struct {
	Name      string
	CommitSHA string
}

// Commit is a commit as reported by the platform.
type Commit struct {
	SHA     string
	Message string
}

// Project holds the repository metadata the flow
// reads.
type Project struct {
	DefaultBranch string
}

// FileAction is a single file operation of an
// atomic multi-file commit.
type FileAction struct {
	Action   string
	FilePath string
	Content  string
}

// MergeRequest is a merge request (GitLab) or pull
// request (GitHub).
type MergeRequest struct {
	// ID is the project-scoped identifier: the GitLab
	// IID or the GitHub pull request number.
	ID           int64
	WebURL       string
	SourceBranch string
	TargetBranch string
	State        string
}

// NewMergeRequest holds the settings of a merge
// request to create. Nil AssigneeID and MilestoneID
// leave the fields unset.
type NewMergeRequest struct {
	Title              string
	Description        string
	SourceBranch       string
	TargetBranch       string
	RemoveSourceBranch bool
	AssigneeID         *int64
	MilestoneID        *int64
	Labels             []string
}

// Label is a project label.
type Label struct {
	Name        string
	Color       string
	Description string
}

// Platform is the remote code-hosting API used to
// create merge requests. repo is an opaque project
// identifier understood by the implementation.
type Platform interface {
	// GetBranch returns the branch or an error
	// wrapping ErrNotFound.
	GetBranch(
		ctx context.Context,
		repo string,
		name string,
	) (*Branch, error)

	// ListCommits returns the history of ref, most
	// recent first.
	ListCommits(
		ctx context.Context,
		repo string,
		ref string,
	) ([]*Commit, error)

	// ListMergeRequests returns the merge requests
	// from source into target in the given state.
	ListMergeRequests(
		ctx context.Context,
		repo string,
		source string,
		target string,
		state string,
	) ([]*MergeRequest, error)

	// CreateBranch creates branch name from ref.
	CreateBranch(
		ctx context.Context,
		repo string,
		name string,
		ref string,
	) (*Branch, error)

	// CreateCommit applies all actions to branch as
	// a single commit.
	CreateCommit(
		ctx context.Context,
		repo string,
		branch string,
		message string,
		actions []FileAction,
	) (*Commit, error)

	// EditSubmodule points the submodule at path to
	// commitSHA with a single commit on branch.
	EditSubmodule(
		ctx context.Context,
		repo string,
		path string,
		branch string,
		commitSHA string,
		message string,
	) (*Commit, error)

	// CreateMergeRequest opens a merge request.
	CreateMergeRequest(
		ctx context.Context,
		repo string,
		opts NewMergeRequest,
	) (*MergeRequest, error)

	// EditMergeRequestApprovers sets the required
	// approvers of merge request id.
	EditMergeRequestApprovers(
		ctx context.Context,
		repo string,
		id int64,
		approverIDs []int64,
		groupIDs []int64,
	) error

	// GetProject returns the project metadata.
	GetProject(
		ctx context.Context,
		repo string,
	) (*Project, error)
}

// LabelStore manages project labels.
type LabelStore interface {
	ListLabels(
		ctx context.Context,
		repo string,
	) ([]Label, error)

	// CreateLabel creates label or returns an error
	// wrapping ErrAlreadyExists.
	CreateLabel(
		ctx context.Context,
		repo string,
		label Label,
	) error
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err wraps
// ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
