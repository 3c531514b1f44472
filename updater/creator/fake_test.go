package creator_test

import (
	"context"
	"fmt"

	"github.com/byte4ever/depmr/updater/git"
)

// fakePlatform is an in-memory platform that keeps
// the state mutating calls produce, so repeated runs
// observe each other.
type fakePlatform struct {
	defaultBranch string
	branches      map[string][]*git.Commit
	mrs           []*git.MergeRequest
	calls         map[string]int
	nextID        int64
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		defaultBranch: "main",
		branches:      map[string][]*git.Commit{},
		calls:         map[string]int{},
		nextID:        1,
	}
}

func (f *fakePlatform) GetBranch(
	_ context.Context,
	_ string,
	name string,
) (*git.Branch, error) {
	f.calls["GetBranch"]++

	if _, ok := f.branches[name]; !ok {
		return nil, fmt.Errorf(
			"branch %s: %w", name, git.ErrNotFound,
		)
	}

	return &git.Branch{Name: name}, nil
}

func (f *fakePlatform) ListCommits(
	_ context.Context,
	_ string,
	ref string,
) ([]*git.Commit, error) {
	f.calls["ListCommits"]++

	return f.branches[ref], nil
}

func (f *fakePlatform) ListMergeRequests(
	_ context.Context,
	_ string,
	source string,
	target string,
	_ string,
) ([]*git.MergeRequest, error) {
	f.calls["ListMergeRequests"]++

	var out []*git.MergeRequest

	for _, mr := range f.mrs {
		if mr.SourceBranch == source &&
			mr.TargetBranch == target {
			out = append(out, mr)
		}
	}

	return out, nil
}

func (f *fakePlatform) CreateBranch(
	_ context.Context,
	_ string,
	name string,
	ref string,
) (*git.Branch, error) {
	f.calls["CreateBranch"]++

	if _, ok := f.branches[name]; ok {
		return nil, fmt.Errorf(
			"branch %s: %w", name, git.ErrAlreadyExists,
		)
	}

	f.branches[name] = []*git.Commit{
		{SHA: ref, Message: "base"},
	}

	return &git.Branch{Name: name, CommitSHA: ref}, nil
}

func (f *fakePlatform) CreateCommit(
	_ context.Context,
	_ string,
	branch string,
	message string,
	_ []git.FileAction,
) (*git.Commit, error) {
	f.calls["CreateCommit"]++

	return f.push(branch, message), nil
}

func (f *fakePlatform) EditSubmodule(
	_ context.Context,
	_ string,
	_ string,
	branch string,
	_ string,
	message string,
) (*git.Commit, error) {
	f.calls["EditSubmodule"]++

	return f.push(branch, message), nil
}

func (f *fakePlatform) CreateMergeRequest(
	_ context.Context,
	_ string,
	opts git.NewMergeRequest,
) (*git.MergeRequest, error) {
	f.calls["CreateMergeRequest"]++

	mr := &git.MergeRequest{
		ID:           f.nextID,
		SourceBranch: opts.SourceBranch,
		TargetBranch: opts.TargetBranch,
		State:        "opened",
	}
	f.nextID++
	f.mrs = append(f.mrs, mr)

	return mr, nil
}

func (f *fakePlatform) EditMergeRequestApprovers(
	context.Context, string, int64, []int64, []int64,
) error {
	f.calls["EditMergeRequestApprovers"]++

	return nil
}

func (f *fakePlatform) GetProject(
	context.Context, string,
) (*git.Project, error) {
	f.calls["GetProject"]++

	return &git.Project{DefaultBranch: f.defaultBranch}, nil
}

func (f *fakePlatform) push(
	branch string,
	message string,
) *git.Commit {
	c := &git.Commit{
		SHA:     fmt.Sprintf("sha%d", len(f.branches[branch])),
		Message: message,
	}
	f.branches[branch] = append(
		[]*git.Commit{c}, f.branches[branch]...,
	)

	return c
}

type staticLabeler struct {
	ensured int
}

func (l *staticLabeler) EnsureDefaultLabels(
	context.Context,
) error {
	l.ensured++

	return nil
}

func (l *staticLabeler) LabelsForRequest(
	context.Context,
) ([]string, error) {
	return []string{"dependencies"}, nil
}
