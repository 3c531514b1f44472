package creator

import (
	"context"
	"fmt"

	"github.com/byte4ever/depmr/updater/git"
)

// branchExistsProbe reports whether the update branch
// exists. A not-found answer is false, not an error.
func (r *run) branchExistsProbe(
	ctx context.Context,
) (bool, error) {
	const errCtx = "checking branch"

	return r.branchExists.get(func() (bool, error) {
		_, err := r.cfg.Platform.GetBranch(
			ctx, r.cfg.Source.Repo, r.cfg.BranchName,
		)

		switch {
		case err == nil:
			return true, nil
		case git.IsNotFound(err):
			return false, nil
		default:
			return false, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	})
}

// commitExistsProbe reports whether the latest commit
// of the update branch carries exactly the update
// commit message.
func (r *run) commitExistsProbe(
	ctx context.Context,
) (bool, error) {
	const errCtx = "checking commit"

	return r.commitExists.get(func() (bool, error) {
		commits, err := r.cfg.Platform.ListCommits(
			ctx, r.cfg.Source.Repo, r.cfg.BranchName,
		)
		if err != nil {
			return false, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		if len(commits) == 0 || commits[0] == nil {
			return false, nil
		}

		return commits[0].Message == r.cfg.CommitMessage, nil
	})
}

// mergeRequestExists reports whether a merge request
// from the update branch into the target branch
// exists in any state.
func (r *run) mergeRequestExists(
	ctx context.Context,
) (bool, error) {
	const errCtx = "checking merge request"

	return r.mrExists.get(func() (bool, error) {
		target, err := r.targetBranch(ctx)
		if err != nil {
			return false, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		mrs, err := r.cfg.Platform.ListMergeRequests(
			ctx,
			r.cfg.Source.Repo,
			r.cfg.BranchName,
			target,
			git.StateAll,
		)
		if err != nil {
			return false, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return len(mrs) > 0, nil
	})
}
