package changeset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/byte4ever/depmr/updater/git"
)

// ErrInvalid reports a change set the creation flow
// refuses to commit.
var ErrInvalid = errors.New("invalid change set")

// Change is a single file change. The set of
// implementations is closed.
type Change interface {
	change()
}

// ContentUpdate replaces the text content of the
// file at Path.
type ContentUpdate struct {
	Path    string
	Content string
}

// SymlinkUpdate replaces the content of the file a
// symlink at Path points to. The change is committed
// at Target.
type SymlinkUpdate struct {
	Path    string
	Target  string
	Content string
}

// SubmoduleUpdate moves the submodule at Path to
// CommitSHA.
type SubmoduleUpdate struct {
	Path      string
	CommitSHA string
}

func (ContentUpdate) change()   {}
func (SymlinkUpdate) change()   {}
func (SubmoduleUpdate) change() {}

// Set is an ordered list of changes committed
// together.
type Set []Change

// Validate checks that s can be committed: it is not
// empty, every change names its file, and a submodule
// update is the only change of its set.
func (s Set) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no changes", ErrInvalid)
	}

	submodules := 0

	for i, c := range s {
		if err := validateChange(c); err != nil {
			return fmt.Errorf(
				"%w: change %d: %w", ErrInvalid, i, err,
			)
		}

		if _, ok := c.(SubmoduleUpdate); ok {
			submodules++
		}
	}

	if submodules > 0 && len(s) > 1 {
		return fmt.Errorf(
			"%w: submodule update must be the only "+
				"change, got %d changes with %d "+
				"submodule updates",
			ErrInvalid, len(s), submodules,
		)
	}

	return nil
}

// Submodule returns the submodule update when s is
// exactly one SubmoduleUpdate.
func (s Set) Submodule() (SubmoduleUpdate, bool) {
	if len(s) != 1 {
		return SubmoduleUpdate{}, false
	}

	sub, ok := s[0].(SubmoduleUpdate)

	return sub, ok
}

// Actions returns one update action per change, in
// order. Symlinks are committed at their target.
// Submodule updates have no file action and are
// skipped.
func (s Set) Actions() []git.FileAction {
	actions := make([]git.FileAction, 0, len(s))

	for _, c := range s {
		switch v := c.(type) {
		case ContentUpdate:
			actions = append(actions, git.FileAction{
				Action:   git.ActionUpdate,
				FilePath: v.Path,
				Content:  v.Content,
			})
		case SymlinkUpdate:
			actions = append(actions, git.FileAction{
				Action:   git.ActionUpdate,
				FilePath: v.Target,
				Content:  v.Content,
			})
		case SubmoduleUpdate:
			continue
		}
	}

	return actions
}

// SubmodulePath returns p without its leading path
// separator.
func SubmodulePath(p string) string {
	return strings.TrimPrefix(p, "/")
}

func validateChange(c Change) error {
	switch v := c.(type) {
	case ContentUpdate:
		if v.Path == "" {
			return errors.New("content update without path")
		}
	case SymlinkUpdate:
		if v.Target == "" {
			return fmt.Errorf(
				"symlink %q without target", v.Path,
			)
		}
	case SubmoduleUpdate:
		if v.Path == "" {
			return errors.New(
				"submodule update without path",
			)
		}

		if v.CommitSHA == "" {
			return fmt.Errorf(
				"submodule %q without commit sha",
				v.Path,
			)
		}
	case nil:
		return errors.New("nil change")
	}

	return nil
}
