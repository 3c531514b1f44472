package creator

import (
	"context"
	"fmt"

	"github.com/byte4ever/depmr/updater/changeset"
	"github.com/byte4ever/depmr/updater/git"
)

// createBranchAndCommit creates the update branch
// from the base commit, then the update commit. When
// another run created the branch first, the commit is
// only created if that run did not push it already.
func (r *run) createBranchAndCommit(
	ctx context.Context,
) error {
	const errCtx = "creating branch"

	_, err := r.cfg.Platform.CreateBranch(
		ctx,
		r.cfg.Source.Repo,
		r.cfg.BranchName,
		r.cfg.BaseCommit,
	)

	switch {
	case err == nil:
		r.branchExists.set(true)
		r.log.Info("created branch", "base", r.cfg.BaseCommit)

		return r.createCommit(ctx)

	case git.IsAlreadyExists(err):
		r.branchExists.set(true)
		r.log.Info("branch appeared concurrently, reusing it")

		exists, probeErr := r.commitExistsProbe(ctx)
		if probeErr != nil {
			return fmt.Errorf("%s: %w", errCtx, probeErr)
		}

		if exists {
			return nil
		}

		return r.createCommit(ctx)

	default:
		return fmt.Errorf("%s: %w", errCtx, err)
	}
}

// createCommit pushes the change set onto the update
// branch: a lone submodule update goes through the
// submodule edit call, everything else is one
// multi-file commit.
func (r *run) createCommit(ctx context.Context) error {
	const errCtx = "creating commit"

	if sub, ok := r.cfg.Files.Submodule(); ok {
		path := changeset.SubmodulePath(sub.Path)

		commit, err := r.cfg.Platform.EditSubmodule(
			ctx,
			r.cfg.Source.Repo,
			path,
			r.cfg.BranchName,
			sub.CommitSHA,
			r.cfg.CommitMessage,
		)
		if err != nil {
			return fmt.Errorf(
				"%s: submodule %s: %w", errCtx, path, err,
			)
		}

		r.commitExists.set(true)
		r.log.Info(
			"updated submodule",
			"path", path,
			"commit", commitSHA(commit),
		)

		return nil
	}

	actions := r.cfg.Files.Actions()

	commit, err := r.cfg.Platform.CreateCommit(
		ctx,
		r.cfg.Source.Repo,
		r.cfg.BranchName,
		r.cfg.CommitMessage,
		actions,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	r.commitExists.set(true)
	r.log.Info(
		"created commit",
		"files", len(actions),
		"commit", commitSHA(commit),
	)

	return nil
}

func commitSHA(c *git.Commit) string {
	if c == nil {
		return ""
	}

	return c.SHA
}
