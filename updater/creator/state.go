package creator

import (
	"context"
	"fmt"
)

// State is a step of the creation flow.
//
// A run starts in one of StateSkipped, StateNoBranch,
// StateBranchNoCommit, or StateBranchWithCommit,
// computed once from the probes, and ends in
// StateSkipped, StateRequestCreated, or
// StateAnnotated.
type State int

const (
	// StateSkipped means a merge request for the
	// branch pair already exists in some state.
	StateSkipped State = iota

	// StateNoBranch means the update branch is
	// missing.
	StateNoBranch

	// StateBranchNoCommit means the branch exists but
	// its latest commit is not the update commit.
	StateBranchNoCommit

	// StateBranchWithCommit means the branch already
	// holds the update commit.
	StateBranchWithCommit

	// StateRequestCreated means the merge request was
	// opened.
	StateRequestCreated

	// StateAnnotated means the merge request was
	// opened and its approvers set.
	StateAnnotated
)

var stateNames = map[State]string{
	StateSkipped:          "skipped",
	StateNoBranch:         "no-branch",
	StateBranchNoCommit:   "branch-no-commit",
	StateBranchWithCommit: "branch-with-commit",
	StateRequestCreated:   "request-created",
	StateAnnotated:        "annotated",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// state folds the probe results into the starting
// state. Probes whose answer cannot change the
// outcome are not issued.
func (r *run) state(ctx context.Context) (State, error) {
	mrExists, err := r.mergeRequestExists(ctx)
	if err != nil {
		return StateSkipped, err
	}

	if mrExists {
		return StateSkipped, nil
	}

	branchExists, err := r.branchExistsProbe(ctx)
	if err != nil {
		return StateSkipped, err
	}

	if !branchExists {
		return StateNoBranch, nil
	}

	commitExists, err := r.commitExistsProbe(ctx)
	if err != nil {
		return StateSkipped, err
	}

	if !commitExists {
		return StateBranchNoCommit, nil
	}

	return StateBranchWithCommit, nil
}
