// Package creator opens a merge request for a dependency update so that
// running it again for the same update changes nothing.
//
// Create probes the platform once for an existing merge request, the
// update branch, and the update commit, folds the answers into a State,
// and dispatches on it: create the branch and commit, only the commit, or
// nothing. It then ensures the default labels exist, opens the merge
// request, and sets its approvers. A merge request already present for the
// branch pair in any state ends the run without a single mutating call.
//
// Create calls that race on the same branch are not locked against each
// other. Create calls that the platform rejects as already done (branch or
// merge request) are treated as successful.
package creator
