package request

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/byte4ever/depmr/updater/changeset"
	"github.com/byte4ever/depmr/updater/creator"
	"github.com/byte4ever/depmr/updater/git"
)

// Change kinds accepted in a request file.
const (
	KindContent   = "content"
	KindSymlink   = "symlink"
	KindSubmodule = "submodule"
)

var errUnknownFormat = errors.New("unknown request file format")

// File is a merge request description.
type File struct {
	Repo          string             `json:"repo" yaml:"repo"`
	TargetBranch  string             `json:"target_branch" yaml:"target_branch"`
	BranchName    string             `json:"branch_name" yaml:"branch_name"`
	BaseCommit    string             `json:"base_commit" yaml:"base_commit"`
	CommitMessage string             `json:"commit_message" yaml:"commit_message"`
	Title         string             `json:"title" yaml:"title"`
	Description   string             `json:"description" yaml:"description"`
	Labels        []string           `json:"labels" yaml:"labels"`
	AssigneeID    *int64             `json:"assignee_id" yaml:"assignee_id"`
	MilestoneID   *int64             `json:"milestone_id" yaml:"milestone_id"`
	Approvers     *creator.Approvers `json:"approvers" yaml:"approvers"`
	Changes       []Change           `json:"changes" yaml:"changes"`
	Vars          map[string]string  `json:"vars" yaml:"vars"`

	// dir is the directory content files resolve
	// against.
	dir string
}

// Change is one entry of the change set. Kind selects
// which fields apply and defaults to KindContent.
type Change struct {
	Kind      string `json:"kind" yaml:"kind"`
	Path      string `json:"path" yaml:"path"`
	Target    string `json:"target" yaml:"target"`
	Content   string `json:"content" yaml:"content"`
	CommitSHA string `json:"commit_sha" yaml:"commit_sha"`

	// ContentFile names a local file holding the new
	// content, relative to the request file. It
	// replaces Content.
	ContentFile string `json:"content_file" yaml:"content_file"`
}

// Load reads the request file at path. The format
// follows the extension: ".json", or ".yaml"/".yml".
// Placeholders are expanded from the file vars,
// overridden by those of varsFiles.
func Load(path string, varsFiles []string) (*File, error) {
	const errCtx = "loading request"

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", errCtx, path, err)
	}

	f.dir = filepath.Dir(path)

	vars, err := LoadVars(varsFiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	f.Expand(vars)

	return f, nil
}

// Parse decodes data as JSON (ext ".json") or YAML
// (ext ".yaml" or ".yml"). Unknown fields are
// rejected.
func Parse(data []byte, ext string) (*File, error) {
	const errCtx = "parsing request"

	var f File

	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()

		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	case ".yaml", ".yml":
		err := yaml.UnmarshalWithOptions(
			data, &f, yaml.DisallowUnknownField(),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	default:
		return nil, fmt.Errorf(
			"%s: %w %q", errCtx, errUnknownFormat, ext,
		)
	}

	return &f, nil
}

// Expand fills the placeholders of the branch name,
// commit message, title, description, and labels from
// the file vars merged with extra. extra wins on
// conflicts.
func (f *File) Expand(extra map[string]any) {
	vars := make(map[string]any, len(f.Vars)+len(extra))
	for k, v := range f.Vars {
		vars[k] = v
	}

	maps.Copy(vars, extra)

	f.BranchName = Expand(f.BranchName, vars)
	f.CommitMessage = Expand(f.CommitMessage, vars)
	f.Title = Expand(f.Title, vars)
	f.Description = Expand(f.Description, vars)

	for i, l := range f.Labels {
		f.Labels[i] = Expand(l, vars)
	}
}

// ChangeSet converts the file changes. Content files
// are read at this point.
func (f *File) ChangeSet() (changeset.Set, error) {
	const errCtx = "building change set"

	set := make(changeset.Set, 0, len(f.Changes))

	for i, c := range f.Changes {
		content, err := f.content(c)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: change %d: %w", errCtx, i, err,
			)
		}

		switch c.Kind {
		case KindContent, "":
			set = append(set, changeset.ContentUpdate{
				Path:    c.Path,
				Content: content,
			})
		case KindSymlink:
			set = append(set, changeset.SymlinkUpdate{
				Path:    c.Path,
				Target:  c.Target,
				Content: content,
			})
		case KindSubmodule:
			set = append(set, changeset.SubmoduleUpdate{
				Path:      c.Path,
				CommitSHA: c.CommitSHA,
			})
		default:
			return nil, fmt.Errorf(
				"%s: change %d: unknown kind %q",
				errCtx, i, c.Kind,
			)
		}
	}

	return set, nil
}

func (f *File) content(c Change) (string, error) {
	if c.ContentFile == "" {
		return c.Content, nil
	}

	if c.Kind == KindSubmodule {
		return "", errors.New("submodule change with content file")
	}

	p := c.ContentFile
	if !filepath.IsAbs(p) {
		p = filepath.Join(f.dir, p)
	}

	data, err := os.ReadFile(p) //nolint:gosec // path from request file
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}

	return string(data), nil
}

// CreatorConfig returns the creator configuration the
// file describes, running on platform and labeler.
func (f *File) CreatorConfig(
	platform git.Platform,
	labeler creator.Labeler,
) (creator.Config, error) {
	set, err := f.ChangeSet()
	if err != nil {
		return creator.Config{}, err
	}

	return creator.Config{
		Source: creator.Source{
			Repo:   f.Repo,
			Branch: f.TargetBranch,
		},
		BranchName:    f.BranchName,
		BaseCommit:    f.BaseCommit,
		CommitMessage: f.CommitMessage,
		Files:         set,
		Title:         f.Title,
		Description:   f.Description,
		AssigneeID:    f.AssigneeID,
		MilestoneID:   f.MilestoneID,
		Approvers:     f.Approvers,
		Platform:      platform,
		Labeler:       labeler,
	}, nil
}
