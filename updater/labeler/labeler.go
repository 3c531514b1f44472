package labeler

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/byte4ever/depmr/updater/git"
)

// DefaultLabels returns the labels put on every
// dependency update when none are configured.
func DefaultLabels() []git.Label {
	return []git.Label{{
		Name:        "dependencies",
		Color:       "#0366d6",
		Description: "Pull requests that update a dependency file",
	}}
}

// Config holds the labeler settings.
type Config struct {
	// Store reads and creates project labels.
	Store git.LabelStore

	// Repo is the project the labels live in.
	Repo string

	// Defaults are ensured to exist and put on every
	// request. Nil means DefaultLabels.
	Defaults []git.Label

	// Extra are request-specific labels. They are not
	// created.
	Extra []string
}

// Labeler implements creator.Labeler over a
// git.LabelStore.
type Labeler struct {
	store    git.LabelStore
	repo     string
	defaults []git.Label
	extra    []string
}

// New validates cfg and returns a Labeler.
func New(cfg Config) (*Labeler, error) {
	const errCtx = "creating labeler"

	if cfg.Store == nil {
		return nil, fmt.Errorf(
			"%s: label store must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf("%s: repo must be set", errCtx)
	}

	defaults := cfg.Defaults
	if defaults == nil {
		defaults = DefaultLabels()
	}

	for _, l := range defaults {
		if l.Name == "" {
			return nil, fmt.Errorf(
				"%s: default label without name", errCtx,
			)
		}
	}

	return &Labeler{
		store:    cfg.Store,
		repo:     cfg.Repo,
		defaults: defaults,
		extra:    cfg.Extra,
	}, nil
}

// EnsureDefaultLabels creates the default labels the
// project does not have yet. Names compare case
// insensitively. A label created concurrently is not
// an error.
func (l *Labeler) EnsureDefaultLabels(ctx context.Context) error {
	const errCtx = "ensuring default labels"

	if len(l.defaults) == 0 {
		return nil
	}

	existing, err := l.store.ListLabels(ctx, l.repo)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	have := make(map[string]bool, len(existing))
	for _, e := range existing {
		have[strings.ToLower(e.Name)] = true
	}

	log := clog.FromContext(ctx).With("repo", l.repo)

	for _, d := range l.defaults {
		if have[strings.ToLower(d.Name)] {
			continue
		}

		err := l.store.CreateLabel(ctx, l.repo, d)

		switch {
		case err == nil:
			log.Info("created label", "label", d.Name)
		case git.IsAlreadyExists(err):
			log.Debug("label appeared concurrently", "label", d.Name)
		default:
			return fmt.Errorf(
				"%s: %s: %w", errCtx, d.Name, err,
			)
		}

		have[strings.ToLower(d.Name)] = true
	}

	return nil
}

// LabelsForRequest returns the default label names
// followed by the extra ones, without duplicates.
func (l *Labeler) LabelsForRequest(
	context.Context,
) ([]string, error) {
	out := make([]string, 0, len(l.defaults)+len(l.extra))
	seen := make(map[string]bool, cap(out))

	add := func(name string) {
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}

		seen[key] = true
		out = append(out, name)
	}

	for _, d := range l.defaults {
		add(d.Name)
	}

	for _, e := range l.extra {
		add(e)
	}

	return out, nil
}
