package creator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/byte4ever/depmr/updater/git"
)

type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) GetBranch(
	ctx context.Context,
	repo string,
	name string,
) (*git.Branch, error) {
	args := m.Called(ctx, repo, name)
	b, _ := args.Get(0).(*git.Branch)

	return b, args.Error(1)
}

func (m *mockPlatform) ListCommits(
	ctx context.Context,
	repo string,
	ref string,
) ([]*git.Commit, error) {
	args := m.Called(ctx, repo, ref)
	c, _ := args.Get(0).([]*git.Commit)

	return c, args.Error(1)
}

func (m *mockPlatform) ListMergeRequests(
	ctx context.Context,
	repo string,
	source string,
	target string,
	state string,
) ([]*git.MergeRequest, error) {
	args := m.Called(ctx, repo, source, target, state)
	mrs, _ := args.Get(0).([]*git.MergeRequest)

	return mrs, args.Error(1)
}

func (m *mockPlatform) CreateBranch(
	ctx context.Context,
	repo string,
	name string,
	ref string,
) (*git.Branch, error) {
	args := m.Called(ctx, repo, name, ref)
	b, _ := args.Get(0).(*git.Branch)

	return b, args.Error(1)
}

func (m *mockPlatform) CreateCommit(
	ctx context.Context,
	repo string,
	branch string,
	message string,
	actions []git.FileAction,
) (*git.Commit, error) {
	args := m.Called(ctx, repo, branch, message, actions)
	c, _ := args.Get(0).(*git.Commit)

	return c, args.Error(1)
}

func (m *mockPlatform) EditSubmodule(
	ctx context.Context,
	repo string,
	path string,
	branch string,
	commitSHA string,
	message string,
) (*git.Commit, error) {
	args := m.Called(
		ctx, repo, path, branch, commitSHA, message,
	)
	c, _ := args.Get(0).(*git.Commit)

	return c, args.Error(1)
}

func (m *mockPlatform) CreateMergeRequest(
	ctx context.Context,
	repo string,
	opts git.NewMergeRequest,
) (*git.MergeRequest, error) {
	args := m.Called(ctx, repo, opts)
	mr, _ := args.Get(0).(*git.MergeRequest)

	return mr, args.Error(1)
}

func (m *mockPlatform) EditMergeRequestApprovers(
	ctx context.Context,
	repo string,
	id int64,
	approverIDs []int64,
	groupIDs []int64,
) error {
	args := m.Called(ctx, repo, id, approverIDs, groupIDs)

	return args.Error(0)
}

func (m *mockPlatform) GetProject(
	ctx context.Context,
	repo string,
) (*git.Project, error) {
	args := m.Called(ctx, repo)
	p, _ := args.Get(0).(*git.Project)

	return p, args.Error(1)
}

type mockLabeler struct {
	mock.Mock
}

func (m *mockLabeler) EnsureDefaultLabels(
	ctx context.Context,
) error {
	return m.Called(ctx).Error(0)
}

func (m *mockLabeler) LabelsForRequest(
	ctx context.Context,
) ([]string, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).([]string)

	return l, args.Error(1)
}

// newMocks returns a platform and labeler whose
// expectations are asserted when the test ends.
func newMocks(t *testing.T) (*mockPlatform, *mockLabeler) {
	t.Helper()

	pf := &mockPlatform{}
	lb := &mockLabeler{}

	t.Cleanup(func() {
		pf.AssertExpectations(t)
		lb.AssertExpectations(t)
	})

	return pf, lb
}

// assertNoMutation fails if any mutating platform call
// was made.
func assertNoMutation(t *testing.T, pf *mockPlatform) {
	t.Helper()

	pf.AssertNotCalled(t, "CreateBranch", anyArgs(4)...)
	pf.AssertNotCalled(t, "CreateCommit", anyArgs(5)...)
	pf.AssertNotCalled(t, "EditSubmodule", anyArgs(6)...)
	pf.AssertNotCalled(t, "CreateMergeRequest", anyArgs(3)...)
	pf.AssertNotCalled(
		t, "EditMergeRequestApprovers", anyArgs(5)...,
	)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = mock.Anything
	}

	return args
}
