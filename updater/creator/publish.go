package creator

import (
	"context"
	"errors"
	"fmt"

	"github.com/byte4ever/depmr/updater/git"
)

var errNoDefaultBranch = errors.New(
	"project has no default branch",
)

// targetBranch returns the source branch override or,
// failing that, the project default branch. The
// project is read at most once per run.
func (r *run) targetBranch(ctx context.Context) (string, error) {
	const errCtx = "resolving target branch"

	if r.cfg.Source.Branch != "" {
		return r.cfg.Source.Branch, nil
	}

	return r.target.get(func() (string, error) {
		project, err := r.cfg.Platform.GetProject(
			ctx, r.cfg.Source.Repo,
		)
		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		if project == nil || project.DefaultBranch == "" {
			return "", fmt.Errorf(
				"%s: %w", errCtx, errNoDefaultBranch,
			)
		}

		return project.DefaultBranch, nil
	})
}

// publish ensures the default labels exist and opens
// the merge request. A merge request the platform
// reports as already open is not an error: publish
// then returns nil.
func (r *run) publish(
	ctx context.Context,
) (*git.MergeRequest, error) {
	const errCtx = "publishing merge request"

	if err := r.cfg.Labeler.EnsureDefaultLabels(ctx); err != nil {
		return nil, fmt.Errorf(
			"%s: default labels: %w", errCtx, err,
		)
	}

	target, err := r.targetBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	labels, err := r.cfg.Labeler.LabelsForRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: labels: %w", errCtx, err,
		)
	}

	mr, err := r.cfg.Platform.CreateMergeRequest(
		ctx,
		r.cfg.Source.Repo,
		git.NewMergeRequest{
			Title:              r.cfg.Title,
			Description:        r.cfg.Description,
			SourceBranch:       r.cfg.BranchName,
			TargetBranch:       target,
			RemoveSourceBranch: true,
			AssigneeID:         r.cfg.AssigneeID,
			MilestoneID:        r.cfg.MilestoneID,
			Labels:             labels,
		},
	)

	switch {
	case err == nil:
	case git.IsAlreadyExists(err):
		r.log.Info(
			"reusing existing merge request",
			"target", target,
		)

		return nil, nil
	default:
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if mr == nil {
		return nil, fmt.Errorf(
			"%s: platform returned no merge request",
			errCtx,
		)
	}

	r.log.Info(
		"created merge request",
		"id", mr.ID,
		"url", mr.WebURL,
		"target", target,
	)

	return mr, nil
}
