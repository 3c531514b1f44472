package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/depmr/updater/creator"
	"github.com/byte4ever/depmr/updater/git"
)

const testRequest = `
repo: org/project
target_branch: main
branch_name: "deps/{{DEP}}"
base_commit: "4c2d1a7"
commit_message: "Bump {{DEP}}"
title: "Bump {{DEP}}"
changes:
  - path: /go.mod
    content: "module example.com/app\n"
`

// stubPlatform answers the probes and records the
// calls of a full run. Approver edits and project
// lookups panic on the nil embedded interfaces.
type stubPlatform struct {
	git.Platform
	git.LabelStore

	mrs []*git.MergeRequest

	gotSource string
	calls     []string
	actions   []git.FileAction
	newMR     git.NewMergeRequest
}

func (s *stubPlatform) CreateBranch(
	_ context.Context,
	_, name, ref string,
) (*git.Branch, error) {
	s.calls = append(s.calls, "CreateBranch "+name+" "+ref)

	return &git.Branch{Name: name, CommitSHA: ref}, nil
}

func (s *stubPlatform) CreateCommit(
	_ context.Context,
	_, branch, message string,
	actions []git.FileAction,
) (*git.Commit, error) {
	s.calls = append(s.calls, "CreateCommit "+branch)
	s.actions = actions

	return &git.Commit{SHA: "c0ffee", Message: message}, nil
}

func (s *stubPlatform) CreateMergeRequest(
	_ context.Context,
	_ string,
	opts git.NewMergeRequest,
) (*git.MergeRequest, error) {
	s.calls = append(s.calls, "CreateMergeRequest")
	s.newMR = opts

	return &git.MergeRequest{
		ID:           12,
		WebURL:       "https://gitlab.com/org/project/-/merge_requests/12",
		SourceBranch: opts.SourceBranch,
		TargetBranch: opts.TargetBranch,
		State:        "opened",
	}, nil
}

func (s *stubPlatform) ListLabels(
	_ context.Context,
	_ string,
) ([]git.Label, error) {
	s.calls = append(s.calls, "ListLabels")

	return []git.Label{{Name: "dependencies"}}, nil
}

func (s *stubPlatform) ListMergeRequests(
	_ context.Context,
	_, source, _, _ string,
) ([]*git.MergeRequest, error) {
	s.gotSource = source

	return s.mrs, nil
}

func (s *stubPlatform) GetBranch(
	_ context.Context,
	_, _ string,
) (*git.Branch, error) {
	return nil, git.ErrNotFound
}

func writeRequest(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	req := filepath.Join(dir, "request.yaml")
	vars := filepath.Join(dir, "vars.txt")

	require.NoError(t, os.WriteFile(req, []byte(testRequest), 0o600))
	require.NoError(t, os.WriteFile(vars, []byte("DEP net\n"), 0o600))

	return req, vars
}

func TestSliceFlag(t *testing.T) {
	t.Parallel()

	var s sliceFlag

	assert.Empty(t, s.String())
	require.NoError(t, s.Set("a"))
	require.NoError(t, s.Set("b"))
	assert.Equal(t, "a,b", s.String())
}

func TestWriteResult(t *testing.T) {
	t.Parallel()

	mr := &git.MergeRequest{
		ID:     42,
		WebURL: "https://gitlab.com/org/project/-/merge_requests/42",
	}

	tests := []struct {
		name   string
		format string
		res    creator.Result
		dryRun bool
		want   string
	}{
		{
			name:   "text",
			format: outputText,
			res:    creator.Result{State: creator.StateAnnotated, MergeRequest: mr},
			want:   "annotated " + mr.WebURL + "\n",
		},
		{
			name:   "text dry run",
			format: outputText,
			res:    creator.Result{State: creator.StateNoBranch},
			dryRun: true,
			want:   "no-branch (dry run)\n",
		},
		{
			name:   "json",
			format: outputJSON,
			res:    creator.Result{State: creator.StateRequestCreated, MergeRequest: mr},
			want: `{"state":"request-created","id":42,"url":"` +
				mr.WebURL + `"}` + "\n",
		},
		{
			name:   "json skipped",
			format: outputJSON,
			res:    creator.Result{State: creator.StateSkipped},
			want:   `{"state":"skipped"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			require.NoError(t, writeResult(&buf, tt.format, tt.res, tt.dryRun))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteResult_unknown_format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := writeResult(&buf, "xml", creator.Result{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestPlatformFlags_fromLookuper(t *testing.T) {
	t.Parallel()

	pf := platformFlags{glToken: "from-flag"}

	err := pf.fromLookuper(context.Background(), envconfig.MapLookuper(
		map[string]string{
			"GITLAB_ACCESS_TOKEN": "from-env",
			"GITLAB_HOST":         "https://git.example.com",
			"GITHUB_ACCESS_TOKEN": "gh-token",
		},
	))
	require.NoError(t, err)

	assert.Equal(t, "from-flag", pf.glToken)
	assert.Equal(t, "https://git.example.com", pf.glHost)
	assert.Equal(t, "gh-token", pf.ghToken)
	assert.Empty(t, pf.ghEnterprise)
}

func TestNewPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   platformFlags
		wantErr string
	}{
		{
			name:  "gitlab",
			flags: platformFlags{server: serverGitLab, glToken: "t"},
		},
		{
			name:  "github",
			flags: platformFlags{server: serverGitHub, ghToken: "t"},
		},
		{
			name:    "gitlab without token",
			flags:   platformFlags{server: serverGitLab},
			wantErr: "creating git provider",
		},
		{
			name:    "github without token",
			flags:   platformFlags{server: serverGitHub},
			wantErr: "creating git provider",
		},
		{
			name:    "unknown server",
			flags:   platformFlags{server: "bitbucket"},
			wantErr: `unknown server "bitbucket"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := newPlatform(tt.flags)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestExecute_dry_run(t *testing.T) {
	t.Parallel()

	req, vars := writeRequest(t)
	pf := &stubPlatform{}

	var buf bytes.Buffer

	err := execute(context.Background(), options{
		requestFile: req,
		varsFiles:   []string{vars},
		dryRun:      true,
		output:      outputText,
	}, pf, &buf)
	require.NoError(t, err)

	assert.Equal(t, "no-branch (dry run)\n", buf.String())
	assert.Equal(t, "deps/net", pf.gotSource)
}

func TestExecute_skips_existing_merge_request(t *testing.T) {
	t.Parallel()

	req, vars := writeRequest(t)
	pf := &stubPlatform{
		mrs: []*git.MergeRequest{{ID: 7, State: "opened"}},
	}

	var buf bytes.Buffer

	err := execute(context.Background(), options{
		requestFile: req,
		varsFiles:   []string{vars},
		output:      outputJSON,
	}, pf, &buf)
	require.NoError(t, err)

	assert.Equal(t, `{"state":"skipped"}`+"\n", buf.String())
}

func TestExecute_requires_request_file(t *testing.T) {
	t.Parallel()

	err := execute(
		context.Background(), options{}, &stubPlatform{}, &bytes.Buffer{},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request file must be set")
}

func TestExecute_creates_merge_request(t *testing.T) {
	t.Parallel()

	req, vars := writeRequest(t)
	pf := &stubPlatform{}

	var buf bytes.Buffer

	err := execute(context.Background(), options{
		requestFile: req,
		varsFiles:   []string{vars},
		labels:      []string{"go"},
		output:      outputText,
	}, pf, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CreateBranch deps/net 4c2d1a7",
		"CreateCommit deps/net",
		"ListLabels",
		"CreateMergeRequest",
	}, pf.calls)
	assert.Equal(t, []git.FileAction{{
		Action:   git.ActionUpdate,
		FilePath: "/go.mod",
		Content:  "module example.com/app\n",
	}}, pf.actions)
	assert.Equal(t, git.NewMergeRequest{
		Title:              "Bump net",
		SourceBranch:       "deps/net",
		TargetBranch:       "main",
		RemoveSourceBranch: true,
		Labels:             []string{"dependencies", "go"},
	}, pf.newMR)
	assert.Equal(
		t,
		"request-created https://gitlab.com/org/project/-/merge_requests/12\n",
		buf.String(),
	)
}

func TestExecute_rejects_unknown_output_before_changes(
	t *testing.T,
) {
	t.Parallel()

	req, vars := writeRequest(t)
	pf := &stubPlatform{}

	err := execute(context.Background(), options{
		requestFile: req,
		varsFiles:   []string{vars},
		output:      "xml",
	}, pf, &bytes.Buffer{})
	require.Error(t, err)

	assert.Contains(t, err.Error(), `unknown output format "xml"`)
	assert.Empty(t, pf.calls)
	assert.Empty(t, pf.gotSource)
}
