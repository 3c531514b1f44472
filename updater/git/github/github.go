package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/depmr/updater/git"
)

const (
	commitsPageSize = 20
	labelsPageSize  = 100

	fileMode      = "100644"
	submoduleMode = "160000"

	shaLength = 40
)

var errInvalidRepo = errors.New(
	`repo must have the form "owner/name"`,
)

// Config holds the settings needed to create a GitHub
// platform client.
type Config struct {
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// APIURL overrides the API base URL. It takes
	// precedence over EnterpriseHost.
	APIURL string
}

// Provider talks to the GitHub REST API. Merge
// requests are pull requests; repo is "owner/name".
//
// Pattern: Strategy -- implements git.Platform and
// git.LabelStore.
type Provider struct {
	client *gh.Client
}

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	var baseURL, uploadURL string

	switch {
	case cfg.APIURL != "":
		baseURL, uploadURL = cfg.APIURL, cfg.APIURL
	case cfg.EnterpriseHost != "":
		baseURL = "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL = "https://" +
			cfg.EnterpriseHost + "/api/uploads/"
	}

	if baseURL != "" {
		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Provider{client: client}, nil
}

// GetBranch returns branch name of repo.
func (p *Provider) GetBranch(
	ctx context.Context,
	repo string,
	name string,
) (*git.Branch, error) {
	const errCtx = "getting github branch"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	b, resp, err := p.client.Repositories.GetBranch(
		ctx, owner, project, name, 1,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, name, classify(resp, err),
		)
	}

	return &git.Branch{
		Name:      b.GetName(),
		CommitSHA: b.GetCommit().GetSHA(),
	}, nil
}

// ListCommits returns the most recent commits of ref,
// newest first.
func (p *Provider) ListCommits(
	ctx context.Context,
	repo string,
	ref string,
) ([]*git.Commit, error) {
	const errCtx = "listing github commits"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	commits, resp, err := p.client.Repositories.ListCommits(
		ctx,
		owner,
		project,
		&gh.CommitsListOptions{
			SHA: ref,
			ListOptions: gh.ListOptions{
				PerPage: commitsPageSize,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, ref, classify(resp, err),
		)
	}

	out := make([]*git.Commit, 0, len(commits))
	for _, c := range commits {
		out = append(out, &git.Commit{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
		})
	}

	return out, nil
}

// ListMergeRequests returns the pull requests from
// source into target. GitLab state names are
// accepted: "opened" maps to "open" and "merged" to
// "closed".
func (p *Provider) ListMergeRequests(
	ctx context.Context,
	repo string,
	source string,
	target string,
	state string,
) ([]*git.MergeRequest, error) {
	const errCtx = "listing github pull requests"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	prs, resp, err := p.client.PullRequests.List(
		ctx,
		owner,
		project,
		&gh.PullRequestListOptions{
			State: listState(state),
			Head:  owner + ":" + source,
			Base:  target,
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, classify(resp, err),
		)
	}

	out := make([]*git.MergeRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toMergeRequest(pr))
	}

	return out, nil
}

// CreateBranch creates branch name at ref. A ref that
// is not a full commit SHA is resolved first. GitHub
// answers 422 "Reference already exists" for a
// duplicate, reported as git.ErrAlreadyExists.
func (p *Provider) CreateBranch(
	ctx context.Context,
	repo string,
	name string,
	ref string,
) (*git.Branch, error) {
	const errCtx = "creating github branch"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sha := ref
	if !isSHA(ref) {
		var resp *gh.Response

		sha, resp, err = p.client.Repositories.GetCommitSHA1(
			ctx, owner, project, ref, "",
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: resolving %s: %w",
				errCtx, ref, classify(resp, err),
			)
		}
	}

	_, resp, err := p.client.Git.CreateRef(
		ctx,
		owner,
		project,
		&gh.Reference{
			Ref:    gh.Ptr("refs/heads/" + name),
			Object: &gh.GitObject{SHA: gh.Ptr(sha)},
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, name, classify(resp, err),
		)
	}

	slog.Info("created branch", "branch", name, "ref", ref)

	return &git.Branch{Name: name, CommitSHA: sha}, nil
}

// CreateCommit applies actions to branch in one
// commit built with the git data API.
func (p *Provider) CreateCommit(
	ctx context.Context,
	repo string,
	branch string,
	message string,
	actions []git.FileAction,
) (*git.Commit, error) {
	const errCtx = "creating github commit"

	entries := make([]*gh.TreeEntry, 0, len(actions))

	for _, a := range actions {
		if a.Action != git.ActionUpdate {
			return nil, fmt.Errorf(
				"%s: unsupported action %q for %s",
				errCtx, a.Action, a.FilePath,
			)
		}

		entries = append(entries, &gh.TreeEntry{
			Path:    gh.Ptr(strings.TrimPrefix(a.FilePath, "/")),
			Mode:    gh.Ptr(fileMode),
			Type:    gh.Ptr("blob"),
			Content: gh.Ptr(a.Content),
		})
	}

	c, err := p.commitTree(ctx, repo, branch, message, entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return c, nil
}

// EditSubmodule points the gitlink at path to
// commitSHA.
func (p *Provider) EditSubmodule(
	ctx context.Context,
	repo string,
	path string,
	branch string,
	commitSHA string,
	message string,
) (*git.Commit, error) {
	const errCtx = "updating github submodule"

	c, err := p.commitTree(
		ctx,
		repo,
		branch,
		message,
		[]*gh.TreeEntry{{
			Path: gh.Ptr(path),
			Mode: gh.Ptr(submoduleMode),
			Type: gh.Ptr("commit"),
			SHA:  gh.Ptr(commitSHA),
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", errCtx, path, err)
	}

	return c, nil
}

// commitTree creates a commit of entries on top of
// the branch head and moves the branch to it.
func (p *Provider) commitTree(
	ctx context.Context,
	repo string,
	branch string,
	message string,
	entries []*gh.TreeEntry,
) (*git.Commit, error) {
	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	ref, resp, err := p.client.Git.GetRef(
		ctx, owner, project, "heads/"+branch,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"branch head: %w", classify(resp, err),
		)
	}

	parentSHA := ref.GetObject().GetSHA()

	parent, resp, err := p.client.Git.GetCommit(
		ctx, owner, project, parentSHA,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"parent commit: %w", classify(resp, err),
		)
	}

	tree, resp, err := p.client.Git.CreateTree(
		ctx, owner, project, parent.GetTree().GetSHA(), entries,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"tree: %w", classify(resp, err),
		)
	}

	commit, resp, err := p.client.Git.CreateCommit(
		ctx,
		owner,
		project,
		&gh.Commit{
			Message: gh.Ptr(message),
			Tree:    &gh.Tree{SHA: tree.SHA},
			Parents: []*gh.Commit{{SHA: gh.Ptr(parentSHA)}},
		},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"commit: %w", classify(resp, err),
		)
	}

	_, resp, err = p.client.Git.UpdateRef(
		ctx,
		owner,
		project,
		&gh.Reference{
			Ref:    gh.Ptr("refs/heads/" + branch),
			Object: &gh.GitObject{SHA: commit.SHA},
		},
		false,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"moving branch: %w", classify(resp, err),
		)
	}

	return &git.Commit{
		SHA:     commit.GetSHA(),
		Message: commit.GetMessage(),
	}, nil
}

// CreateMergeRequest opens a pull request, then sets
// labels, assignee, and milestone with an issue edit.
// A failed edit is logged and the pull request is
// still returned. A duplicate (HTTP 422) is reported
// as git.ErrAlreadyExists.
func (p *Provider) CreateMergeRequest(
	ctx context.Context,
	repo string,
	opts git.NewMergeRequest,
) (*git.MergeRequest, error) {
	const errCtx = "creating github pull request"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	created, resp, err := p.client.PullRequests.Create(
		ctx,
		owner,
		project,
		&gh.NewPullRequest{
			Title: gh.Ptr(opts.Title),
			Head:  gh.Ptr(opts.SourceBranch),
			Base:  gh.Ptr(opts.TargetBranch),
			Body:  gh.Ptr(opts.Description),
		},
	)
	if err != nil {
		err = classify(resp, err)
		if !git.IsAlreadyExists(err) {
			slog.Warn(
				"github pull request creation failed",
				"error", err,
			)
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("created pull request", "url", created.GetHTMLURL())

	if opts.RemoveSourceBranch {
		slog.Debug(
			"source branch removal is a repository setting on github, ignoring",
			"number", created.GetNumber(),
		)
	}

	// The pull request exists from here on.
	if err := p.editIssue(ctx, owner, project, created.GetNumber(), opts); err != nil {
		slog.Warn(
			"github pull request created without labels, assignee, or milestone",
			"number", created.GetNumber(),
			"error", err,
		)
	}

	return toMergeRequest(created), nil
}

func (p *Provider) editIssue(
	ctx context.Context,
	owner string,
	project string,
	number int,
	opts git.NewMergeRequest,
) error {
	var (
		req  gh.IssueRequest
		edit bool
	)

	if len(opts.Labels) > 0 {
		labels := opts.Labels
		req.Labels = &labels
		edit = true
	}

	if opts.AssigneeID != nil {
		user, resp, err := p.client.Users.GetByID(
			ctx, *opts.AssigneeID,
		)
		if err != nil {
			return fmt.Errorf(
				"assignee %d: %w",
				*opts.AssigneeID, classify(resp, err),
			)
		}

		req.Assignees = &[]string{user.GetLogin()}
		edit = true
	}

	if opts.MilestoneID != nil {
		req.Milestone = gh.Ptr(int(*opts.MilestoneID))
		edit = true
	}

	if !edit {
		return nil
	}

	_, resp, err := p.client.Issues.Edit(
		ctx, owner, project, number, &req,
	)
	if err != nil {
		return fmt.Errorf(
			"editing pull request %d: %w",
			number, classify(resp, err),
		)
	}

	return nil
}

// EditMergeRequestApprovers requests reviews from the
// given users and teams. Team IDs are resolved within
// the repository owner organisation.
func (p *Provider) EditMergeRequestApprovers(
	ctx context.Context,
	repo string,
	id int64,
	approverIDs []int64,
	groupIDs []int64,
) error {
	const errCtx = "requesting github reviewers"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var req gh.ReviewersRequest

	for _, uid := range approverIDs {
		user, resp, err := p.client.Users.GetByID(ctx, uid)
		if err != nil {
			return fmt.Errorf(
				"%s: user %d: %w",
				errCtx, uid, classify(resp, err),
			)
		}

		req.Reviewers = append(req.Reviewers, user.GetLogin())
	}

	if len(groupIDs) > 0 {
		r, resp, err := p.client.Repositories.Get(
			ctx, owner, project,
		)
		if err != nil {
			return fmt.Errorf(
				"%s: repository: %w",
				errCtx, classify(resp, err),
			)
		}

		orgID := r.GetOwner().GetID()

		for _, tid := range groupIDs {
			team, resp, err := p.client.Teams.GetTeamByID(
				ctx, orgID, tid,
			)
			if err != nil {
				return fmt.Errorf(
					"%s: team %d: %w",
					errCtx, tid, classify(resp, err),
				)
			}

			req.TeamReviewers = append(
				req.TeamReviewers, team.GetSlug(),
			)
		}
	}

	_, resp, err := p.client.PullRequests.RequestReviewers(
		ctx, owner, project, int(id), req,
	)
	if err != nil {
		return fmt.Errorf(
			"%s: pull request %d: %w",
			errCtx, id, classify(resp, err),
		)
	}

	return nil
}

// GetProject returns the repository metadata.
func (p *Provider) GetProject(
	ctx context.Context,
	repo string,
) (*git.Project, error) {
	const errCtx = "getting github repository"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	r, resp, err := p.client.Repositories.Get(ctx, owner, project)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, repo, classify(resp, err),
		)
	}

	return &git.Project{DefaultBranch: r.GetDefaultBranch()}, nil
}

// ListLabels returns every label of the repository.
// Colors are returned with a leading '#'.
func (p *Provider) ListLabels(
	ctx context.Context,
	repo string,
) ([]git.Label, error) {
	const errCtx = "listing github labels"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	opts := &gh.ListOptions{PerPage: labelsPageSize}

	var out []git.Label

	for {
		labels, resp, err := p.client.Issues.ListLabels(
			ctx, owner, project, opts,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, classify(resp, err),
			)
		}

		for _, l := range labels {
			out = append(out, git.Label{
				Name:        l.GetName(),
				Color:       "#" + l.GetColor(),
				Description: l.GetDescription(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateLabel creates label. A duplicate (HTTP 422
// already_exists) is reported as git.ErrAlreadyExists.
func (p *Provider) CreateLabel(
	ctx context.Context,
	repo string,
	label git.Label,
) error {
	const errCtx = "creating github label"

	owner, project, err := splitRepo(repo)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ghLabel := &gh.Label{
		Name:  gh.Ptr(label.Name),
		Color: gh.Ptr(strings.TrimPrefix(label.Color, "#")),
	}

	if label.Description != "" {
		ghLabel.Description = gh.Ptr(label.Description)
	}

	_, resp, err := p.client.Issues.CreateLabel(
		ctx, owner, project, ghLabel,
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, label.Name, classify(resp, err),
		)
	}

	return nil
}

// classify maps GitHub failures onto the git
// sentinels while keeping the original error in the
// chain.
func classify(resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", git.ErrNotFound, err)
	}

	var errResp *gh.ErrorResponse
	if !errors.As(err, &errResp) ||
		errResp.Response == nil ||
		errResp.Response.StatusCode != http.StatusUnprocessableEntity {
		return err
	}

	if alreadyExists(errResp) {
		return fmt.Errorf("%w: %w", git.ErrAlreadyExists, err)
	}

	return err
}

func alreadyExists(errResp *gh.ErrorResponse) bool {
	if strings.Contains(
		strings.ToLower(errResp.Message), "already exists",
	) {
		return true
	}

	for _, e := range errResp.Errors {
		if e.Code == "already_exists" ||
			strings.Contains(
				strings.ToLower(e.Message), "already exists",
			) {
			return true
		}
	}

	return false
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" ||
		strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", errInvalidRepo, repo)
	}

	return owner, name, nil
}

func listState(state string) string {
	switch state {
	case "opened":
		return "open"
	case "merged":
		return "closed"
	default:
		return state
	}
}

func isSHA(s string) bool {
	if len(s) != shaLength {
		return false
	}

	for _, c := range s {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f':
		default:
			return false
		}
	}

	return true
}

func toMergeRequest(pr *gh.PullRequest) *git.MergeRequest {
	state := pr.GetState()
	if pr.MergedAt != nil {
		state = "merged"
	}

	return &git.MergeRequest{
		ID:           int64(pr.GetNumber()),
		WebURL:       pr.GetHTMLURL(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		State:        state,
	}
}
