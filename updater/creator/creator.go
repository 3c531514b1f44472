package creator

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/byte4ever/depmr/updater/changeset"
	"github.com/byte4ever/depmr/updater/git"
)

// Source identifies the repository to update.
type Source struct {
	// Repo is the platform project identifier (e.g.
	// "group/project" or "owner/name").
	Repo string

	// Branch overrides the merge request target
	// branch. Empty means the project default branch.
	Branch string
}

// Approvers lists the required approvers set on a
// created merge request.
type Approvers struct {
	// Approvers holds individual user IDs.
	Approvers []int64 `json:"approvers" yaml:"approvers"`

	// GroupApprovers holds group IDs.
	GroupApprovers []int64 `json:"group_approvers" yaml:"group_approvers"`
}

// IsEmpty reports whether a names no approver at all.
func (a *Approvers) IsEmpty() bool {
	return a == nil ||
		len(a.Approvers) == 0 && len(a.GroupApprovers) == 0
}

// Labeler computes merge request labels and makes
// sure the project carries the default ones.
type Labeler interface {
	// EnsureDefaultLabels creates the default labels
	// missing from the project. It must be safe to
	// call repeatedly.
	EnsureDefaultLabels(ctx context.Context) error

	// LabelsForRequest returns the labels to put on
	// the merge request.
	LabelsForRequest(ctx context.Context) ([]string, error)
}

// Config holds everything a merge request creation
// needs. Use a Config struct instead of many
// arguments.
type Config struct {
	// Source is the repository and optional target
	// branch.
	Source Source

	// BranchName is the update branch.
	BranchName string

	// BaseCommit is the ref the update branch is
	// created from.
	BaseCommit string

	// CommitMessage is the message of the update
	// commit. An existing branch whose latest commit
	// has exactly this message is considered done.
	CommitMessage string

	// Files is the change set of the update commit.
	Files changeset.Set

	// Title is the merge request title.
	Title string

	// Description is the merge request description.
	Description string

	// AssigneeID is the optional assignee user ID.
	AssigneeID *int64

	// MilestoneID is the optional milestone ID.
	MilestoneID *int64

	// Approvers is the optional approver list set
	// after creation.
	Approvers *Approvers

	// Platform performs the remote calls.
	Platform git.Platform

	// Labeler provides the merge request labels.
	Labeler Labeler
}

// Creator creates merge requests idempotently. It
// holds no per-run state and may be shared.
type Creator struct {
	cfg Config
}

// Result is the outcome of a Run.
type Result struct {
	// State is the last state reached.
	State State

	// MergeRequest is the created merge request, nil
	// when the run was skipped.
	MergeRequest *git.MergeRequest
}

// New validates cfg and returns a Creator.
func New(cfg Config) (*Creator, error) {
	const errCtx = "creating merge request creator"

	switch {
	case cfg.Platform == nil:
		return nil, fmt.Errorf(
			"%s: platform must be set", errCtx,
		)
	case cfg.Labeler == nil:
		return nil, fmt.Errorf(
			"%s: labeler must be set", errCtx,
		)
	case cfg.Source.Repo == "":
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	case cfg.BranchName == "":
		return nil, fmt.Errorf(
			"%s: branch name must be set", errCtx,
		)
	case cfg.BaseCommit == "":
		return nil, fmt.Errorf(
			"%s: base commit must be set", errCtx,
		)
	case cfg.CommitMessage == "":
		return nil, fmt.Errorf(
			"%s: commit message must be set", errCtx,
		)
	case cfg.Title == "":
		return nil, fmt.Errorf(
			"%s: title must be set", errCtx,
		)
	}

	if err := cfg.Files.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Creator{cfg: cfg}, nil
}

// Create runs the creation flow and returns the
// created merge request, or nil when an equivalent
// merge request already exists.
func (c *Creator) Create(
	ctx context.Context,
) (*git.MergeRequest, error) {
	res, err := c.Run(ctx)
	if err != nil {
		return nil, err
	}

	return res.MergeRequest, nil
}

// Run is Create reporting the final state as well.
func (c *Creator) Run(ctx context.Context) (Result, error) {
	const errCtx = "creating merge request"

	r := c.newRun(ctx)

	// Step 1: Probe the platform once.
	st, err := r.state(ctx)
	if err != nil {
		return Result{}, fmt.Errorf(
			"%s: probe: %w", errCtx, err,
		)
	}

	r.log.Info("probed", "state", st)

	// Step 2: Settle the branch and commit.
	switch st {
	case StateSkipped:
		r.log.Info(
			"merge request already exists, skipping",
		)

		return Result{State: st}, nil
	case StateNoBranch:
		err = r.createBranchAndCommit(ctx)
	case StateBranchNoCommit:
		err = r.createCommit(ctx)
	case StateBranchWithCommit:
		r.log.Info("branch already holds the update commit")
	default:
		err = fmt.Errorf("unexpected state %s", st)
	}

	if err != nil {
		return Result{State: st}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	// Step 3: Open the merge request.
	mr, err := r.publish(ctx)
	if err != nil {
		return Result{State: st}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	if mr == nil {
		return Result{State: StateSkipped}, nil
	}

	// Step 4: Annotate.
	annotated, err := r.annotate(ctx, mr)
	if err != nil {
		res := Result{
			State:        StateRequestCreated,
			MergeRequest: mr,
		}

		return res, fmt.Errorf("%s: %w", errCtx, err)
	}

	st = StateRequestCreated
	if annotated {
		st = StateAnnotated
	}

	return Result{State: st, MergeRequest: mr}, nil
}

// Probe returns the state a Run would start from
// without mutating anything.
func (c *Creator) Probe(ctx context.Context) (State, error) {
	r := c.newRun(ctx)

	st, err := r.state(ctx)
	if err != nil {
		return st, fmt.Errorf("probing: %w", err)
	}

	return st, nil
}

// run holds the memoised lookups of one Run. Branch
// and commit state cannot change within a run as far
// as this flow is concerned, so every lookup happens
// at most once.
type run struct {
	cfg *Config
	log *clog.Logger

	target       memo[string]
	branchExists memo[bool]
	commitExists memo[bool]
	mrExists     memo[bool]
}

func (c *Creator) newRun(ctx context.Context) *run {
	return &run{
		cfg: &c.cfg,
		log: clog.FromContext(ctx).With(
			"repo", c.cfg.Source.Repo,
			"branch", c.cfg.BranchName,
		),
	}
}

// memo caches the first successful result of a
// lookup.
type memo[T any] struct {
	done bool
	val  T
}

func (m *memo[T]) get(fn func() (T, error)) (T, error) {
	if m.done {
		return m.val, nil
	}

	val, err := fn()
	if err != nil {
		return val, err
	}

	m.set(val)

	return val, nil
}

func (m *memo[T]) set(val T) {
	m.done = true
	m.val = val
}
