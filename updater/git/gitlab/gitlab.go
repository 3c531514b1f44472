package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/depmr/updater/git"
)

const (
	defaultHost = "https://gitlab.com"

	// commitsPageSize bounds the history read by
	// ListCommits. Only the latest commit matters to
	// the creation flow.
	commitsPageSize = 20

	labelsPageSize = 100

	approvalRuleName = "dependency update approvers"
)

// Config holds the settings needed to create a GitLab
// platform client.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
	// RetryMax overrides the number of retries on
	// rate limiting and server errors. Zero keeps the
	// client default, a negative value disables
	// retries.
	RetryMax int
}

// Provider talks to the GitLab REST API.
//
// Pattern: Strategy -- implements git.Platform and
// git.LabelStore.
type Provider struct {
	client *gl.Client
}

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	opts := []gl.ClientOptionFunc{gl.WithBaseURL(host)}

	switch {
	case cfg.RetryMax < 0:
		opts = append(opts, gl.WithoutRetries())
	case cfg.RetryMax > 0:
		opts = append(opts, gl.WithCustomRetryMax(cfg.RetryMax))
	}

	client, err := gl.NewClient(cfg.AccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{client: client}, nil
}

// GetBranch returns the branch name of project repo.
func (p *Provider) GetBranch(
	ctx context.Context,
	repo string,
	name string,
) (*git.Branch, error) {
	const errCtx = "getting gitlab branch"

	b, _, err := p.client.Branches.GetBranch(
		repo, name, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, name, classify(err),
		)
	}

	return toBranch(b), nil
}

// ListCommits returns the most recent commits of ref,
// newest first.
func (p *Provider) ListCommits(
	ctx context.Context,
	repo string,
	ref string,
) ([]*git.Commit, error) {
	const errCtx = "listing gitlab commits"

	commits, _, err := p.client.Commits.ListCommits(
		repo,
		&gl.ListCommitsOptions{
			ListOptions: gl.ListOptions{
				PerPage: commitsPageSize,
			},
			RefName: gl.Ptr(ref),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, ref, classify(err),
		)
	}

	out := make([]*git.Commit, 0, len(commits))
	for _, c := range commits {
		out = append(out, toCommit(c))
	}

	return out, nil
}

// ListMergeRequests returns the merge requests from
// source into target in state ("opened", "closed",
// "merged", or "all").
func (p *Provider) ListMergeRequests(
	ctx context.Context,
	repo string,
	source string,
	target string,
	state string,
) ([]*git.MergeRequest, error) {
	const errCtx = "listing gitlab merge requests"

	mrs, _, err := p.client.MergeRequests.ListProjectMergeRequests(
		repo,
		&gl.ListProjectMergeRequestsOptions{
			State:        gl.Ptr(state),
			SourceBranch: gl.Ptr(source),
			TargetBranch: gl.Ptr(target),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	out := make([]*git.MergeRequest, 0, len(mrs))
	for _, mr := range mrs {
		out = append(out, toMergeRequest(mr))
	}

	return out, nil
}

// CreateBranch creates branch name from ref. GitLab
// answers 400 "Branch already exists" for a duplicate,
// reported as git.ErrAlreadyExists.
func (p *Provider) CreateBranch(
	ctx context.Context,
	repo string,
	name string,
	ref string,
) (*git.Branch, error) {
	const errCtx = "creating gitlab branch"

	b, _, err := p.client.Branches.CreateBranch(
		repo,
		&gl.CreateBranchOptions{
			Branch: gl.Ptr(name),
			Ref:    gl.Ptr(ref),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, name, classify(err),
		)
	}

	slog.Info("created branch", "branch", name, "ref", ref)

	return toBranch(b), nil
}

// CreateCommit applies actions to branch in one
// commit.
func (p *Provider) CreateCommit(
	ctx context.Context,
	repo string,
	branch string,
	message string,
	actions []git.FileAction,
) (*git.Commit, error) {
	const errCtx = "creating gitlab commit"

	opts := make([]*gl.CommitActionOptions, 0, len(actions))
	for _, a := range actions {
		opts = append(opts, &gl.CommitActionOptions{
			Action:   gl.Ptr(gl.FileActionValue(a.Action)),
			FilePath: gl.Ptr(a.FilePath),
			Content:  gl.Ptr(a.Content),
		})
	}

	c, _, err := p.client.Commits.CreateCommit(
		repo,
		&gl.CreateCommitOptions{
			Branch:        gl.Ptr(branch),
			CommitMessage: gl.Ptr(message),
			Actions:       opts,
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	return toCommit(c), nil
}

// EditSubmodule moves the submodule at path to
// commitSHA.
func (p *Provider) EditSubmodule(
	ctx context.Context,
	repo string,
	path string,
	branch string,
	commitSHA string,
	message string,
) (*git.Commit, error) {
	const errCtx = "updating gitlab submodule"

	c, _, err := p.client.RepositorySubmodules.UpdateSubmodule(
		repo,
		path,
		&gl.UpdateSubmoduleOptions{
			Branch:        gl.Ptr(branch),
			CommitSHA:     gl.Ptr(commitSHA),
			CommitMessage: gl.Ptr(message),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, path, classify(err),
		)
	}

	return &git.Commit{SHA: c.ID, Message: c.Message}, nil
}

// CreateMergeRequest opens a merge request. A
// duplicate (HTTP 409) is reported as
// git.ErrAlreadyExists.
func (p *Provider) CreateMergeRequest(
	ctx context.Context,
	repo string,
	opts git.NewMergeRequest,
) (*git.MergeRequest, error) {
	const errCtx = "creating gitlab merge request"

	glOpts := gl.CreateMergeRequestOptions{
		Title:              gl.Ptr(opts.Title),
		Description:        gl.Ptr(opts.Description),
		SourceBranch:       gl.Ptr(opts.SourceBranch),
		TargetBranch:       gl.Ptr(opts.TargetBranch),
		RemoveSourceBranch: gl.Ptr(opts.RemoveSourceBranch),
		AssigneeID:         opts.AssigneeID,
		MilestoneID:        opts.MilestoneID,
	}

	if len(opts.Labels) > 0 {
		labels := gl.LabelOptions(opts.Labels)
		glOpts.Labels = &labels
	}

	created, _, err := p.client.MergeRequests.CreateMergeRequest(
		repo, &glOpts, gl.WithContext(ctx),
	)
	if err != nil {
		err = classify(err)
		if !git.IsAlreadyExists(err) {
			slog.Warn(
				"gitlab merge request creation failed",
				"error", err,
			)
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("created merge request", "url", created.WebURL)

	return toMergeRequest(&created.BasicMergeRequest), nil
}

// EditMergeRequestApprovers sets the users and groups
// of the merge request rule named approvalRuleName,
// requiring one approval. The rule is created on the
// first call and replaced on later ones. Rules
// inherited from the project still apply.
func (p *Provider) EditMergeRequestApprovers(
	ctx context.Context,
	repo string,
	id int64,
	approverIDs []int64,
	groupIDs []int64,
) error {
	const errCtx = "setting gitlab approvers"

	rules, _, err := p.client.MergeRequestApprovals.GetApprovalRules(
		repo, id, gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf(
			"%s: merge request %d: listing rules: %w",
			errCtx, id, classify(err),
		)
	}

	for _, rule := range rules {
		if rule.Name != approvalRuleName {
			continue
		}

		users := append([]int64{}, approverIDs...)
		groups := append([]int64{}, groupIDs...)

		_, _, err = p.client.MergeRequestApprovals.UpdateApprovalRule(
			repo, id, rule.ID,
			&gl.UpdateMergeRequestApprovalRuleOptions{
				ApprovalsRequired: gl.Ptr(int64(1)),
				UserIDs:           &users,
				GroupIDs:          &groups,
			},
			gl.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf(
				"%s: merge request %d: rule %d: %w",
				errCtx, id, rule.ID, classify(err),
			)
		}

		return nil
	}

	opts := &gl.CreateMergeRequestApprovalRuleOptions{
		Name:              gl.Ptr(approvalRuleName),
		ApprovalsRequired: gl.Ptr(int64(1)),
	}

	if len(approverIDs) > 0 {
		opts.UserIDs = &approverIDs
	}

	if len(groupIDs) > 0 {
		opts.GroupIDs = &groupIDs
	}

	_, _, err = p.client.MergeRequestApprovals.CreateApprovalRule(
		repo, id, opts, gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf(
			"%s: merge request %d: %w",
			errCtx, id, classify(err),
		)
	}

	return nil
}

// GetProject returns the project metadata.
func (p *Provider) GetProject(
	ctx context.Context,
	repo string,
) (*git.Project, error) {
	const errCtx = "getting gitlab project"

	project, _, err := p.client.Projects.GetProject(
		repo, nil, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, repo, classify(err),
		)
	}

	return &git.Project{DefaultBranch: project.DefaultBranch}, nil
}

// ListLabels returns every label of the project.
func (p *Provider) ListLabels(
	ctx context.Context,
	repo string,
) ([]git.Label, error) {
	const errCtx = "listing gitlab labels"

	opts := &gl.ListLabelsOptions{
		ListOptions: gl.ListOptions{PerPage: labelsPageSize},
	}

	var out []git.Label

	for {
		labels, resp, err := p.client.Labels.ListLabels(
			repo, opts, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, classify(err),
			)
		}

		for _, l := range labels {
			out = append(out, git.Label{
				Name:        l.Name,
				Color:       l.Color,
				Description: l.Description,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateLabel creates label. A duplicate (HTTP 409)
// is reported as git.ErrAlreadyExists.
func (p *Provider) CreateLabel(
	ctx context.Context,
	repo string,
	label git.Label,
) error {
	const errCtx = "creating gitlab label"

	opts := &gl.CreateLabelOptions{
		Name:  gl.Ptr(label.Name),
		Color: gl.Ptr(label.Color),
	}

	if label.Description != "" {
		opts.Description = gl.Ptr(label.Description)
	}

	_, _, err := p.client.Labels.CreateLabel(
		repo, opts, gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, label.Name, classify(err),
		)
	}

	return nil
}

// classify maps GitLab failures onto the git
// sentinels while keeping the original error in the
// chain.
func classify(err error) error {
	if errors.Is(err, gl.ErrNotFound) {
		return fmt.Errorf("%w: %w", git.ErrNotFound, err)
	}

	var errResp *gl.ErrorResponse
	if !errors.As(err, &errResp) {
		return err
	}

	if errResp.HasStatusCode(http.StatusConflict) ||
		strings.Contains(
			strings.ToLower(string(errResp.Body)),
			"already exists",
		) {
		return fmt.Errorf("%w: %w", git.ErrAlreadyExists, err)
	}

	return err
}

func toBranch(b *gl.Branch) *git.Branch {
	out := &git.Branch{Name: b.Name}
	if b.Commit != nil {
		out.CommitSHA = b.Commit.ID
	}

	return out
}

func toCommit(c *gl.Commit) *git.Commit {
	return &git.Commit{SHA: c.ID, Message: c.Message}
}

func toMergeRequest(mr *gl.BasicMergeRequest) *git.MergeRequest {
	return &git.MergeRequest{
		ID:           mr.IID,
		WebURL:       mr.WebURL,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		State:        mr.State,
	}
}
