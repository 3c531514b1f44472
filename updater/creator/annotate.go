package creator

import (
	"context"
	"fmt"

	"github.com/byte4ever/depmr/updater/git"
)

// annotate sets the configured approvers on mr. The
// platform creation call cannot carry approvers, so
// this is a separate edit. It reports whether an edit
// was made.
func (r *run) annotate(
	ctx context.Context,
	mr *git.MergeRequest,
) (bool, error) {
	const errCtx = "setting approvers"

	if r.cfg.Approvers.IsEmpty() {
		return false, nil
	}

	err := r.cfg.Platform.EditMergeRequestApprovers(
		ctx,
		r.cfg.Source.Repo,
		mr.ID,
		r.cfg.Approvers.Approvers,
		r.cfg.Approvers.GroupApprovers,
	)
	if err != nil {
		return false, fmt.Errorf(
			"%s: merge request %d: %w",
			errCtx, mr.ID, err,
		)
	}

	r.log.Info(
		"set approvers",
		"approvers", len(r.cfg.Approvers.Approvers),
		"group_approvers", len(r.cfg.Approvers.GroupApprovers),
	)

	return true, nil
}
