// Command create_dependency_mr opens a dependency
// update merge request described by a request file. It
// is safe to run repeatedly: an existing branch,
// commit, or merge request is reused, never duplicated.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/byte4ever/depmr/updater/creator"
	"github.com/byte4ever/depmr/updater/git"
	"github.com/byte4ever/depmr/updater/labeler"
	"github.com/byte4ever/depmr/updater/request"
)

// sliceFlag implements flag.Value for multi-value
// string flags (repeated --flag=val usage).
type sliceFlag []string

// String returns the flag value as a comma-separated
// string representation.
func (s *sliceFlag) String() string {
	if s == nil {
		return ""
	}

	return strings.Join(*s, ",")
}

// Set appends a value to the slice.
func (s *sliceFlag) Set(val string) error {
	*s = append(*s, val)

	return nil
}

// options holds the parsed command line.
type options struct {
	requestFile   string
	varsFiles     []string
	repo          string
	targetBranch  string
	labels        []string
	defaultLabels []string
	dryRun        bool
	output        string
	platform      platformFlags
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running create_dependency_mr"

	var opts options

	flag.StringVar(
		&opts.requestFile, "request", "",
		"Request file (.yaml, .yml, or .json)",
	)

	var varsFiles sliceFlag

	flag.Var(
		&varsFiles,
		"vars_file",
		"KEY VALUE file filling {{KEY}} placeholders (repeatable)",
	)

	flag.StringVar(
		&opts.repo, "repo", "",
		"Project path, overrides the request file",
	)
	flag.StringVar(
		&opts.targetBranch, "target_branch", "",
		"Target branch, overrides the request file",
	)

	var labels sliceFlag

	flag.Var(
		&labels,
		"label",
		"Extra merge request label (repeatable)",
	)

	var defaultLabels sliceFlag

	flag.Var(
		&defaultLabels,
		"default_label",
		"Label created if missing and put on every request "+
			"(repeatable, default: dependencies)",
	)

	flag.BoolVar(
		&opts.dryRun, "dry_run", false,
		"Only probe and print the starting state",
	)
	flag.StringVar(
		&opts.output, "output", outputText,
		"Result format: text or json",
	)
	logLevel := flag.String(
		"log_level", "info",
		"Log level: debug, info, warn, or error",
	)

	// Git provider selection.
	flag.StringVar(
		&opts.platform.server, "git_server", serverGitLab,
		"Git hosting platform: gitlab or github",
	)

	// GitLab-specific flags.
	flag.StringVar(
		&opts.platform.glHost, "gitlab_host", "",
		"GitLab instance URL (env GITLAB_HOST)",
	)
	flag.StringVar(
		&opts.platform.glToken, "gitlab_access_token", "",
		"GitLab access token (env GITLAB_ACCESS_TOKEN)",
	)
	flag.IntVar(
		&opts.platform.glRetryMax, "gitlab_retry_max", 0,
		"GitLab retries on server errors, negative disables",
	)

	// GitHub-specific flags.
	flag.StringVar(
		&opts.platform.ghToken, "github_access_token", "",
		"GitHub access token (env GITHUB_ACCESS_TOKEN)",
	)
	flag.StringVar(
		&opts.platform.ghEnterprise, "github_enterprise_host", "",
		"GitHub Enterprise hostname (env GITHUB_ENTERPRISE_HOST)",
	)

	flag.Parse()

	opts.varsFiles = varsFiles
	opts.labels = labels
	opts.defaultLabels = defaultLabels

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("%s: log level: %w", errCtx, err)
	}

	handler := slog.NewTextHandler(
		os.Stderr, &slog.HandlerOptions{Level: level},
	)
	slog.SetDefault(slog.New(handler))

	ctx := clog.WithLogger(
		context.Background(), clog.New(handler),
	)

	if err := opts.platform.fromEnv(ctx); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pf, err := newPlatform(opts.platform)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := execute(ctx, opts, pf, os.Stdout); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// execute loads the request and runs, or probes, the
// creation on pf. The outcome is written to w.
func execute(
	ctx context.Context,
	opts options,
	pf platform,
	w io.Writer,
) error {
	if opts.requestFile == "" {
		return fmt.Errorf("request file must be set")
	}

	if err := checkOutput(opts.output); err != nil {
		return err
	}

	req, err := request.Load(opts.requestFile, opts.varsFiles)
	if err != nil {
		return err
	}

	if opts.repo != "" {
		req.Repo = opts.repo
	}

	if opts.targetBranch != "" {
		req.TargetBranch = opts.targetBranch
	}

	lb, err := labeler.New(labeler.Config{
		Store:    pf,
		Repo:     req.Repo,
		Defaults: defaultLabels(opts.defaultLabels),
		Extra:    slices.Concat(req.Labels, opts.labels),
	})
	if err != nil {
		return err
	}

	cfg, err := req.CreatorConfig(pf, lb)
	if err != nil {
		return err
	}

	c, err := creator.New(cfg)
	if err != nil {
		return err
	}

	if opts.dryRun {
		st, err := c.Probe(ctx)
		if err != nil {
			return err
		}

		return writeResult(
			w, opts.output, creator.Result{State: st}, true,
		)
	}

	res, err := c.Run(ctx)
	if err != nil {
		return err
	}

	return writeResult(w, opts.output, res, false)
}

// defaultLabels turns label names into labels with the
// default color. No names means the built-in defaults.
func defaultLabels(names []string) []git.Label {
	if len(names) == 0 {
		return nil
	}

	color := labeler.DefaultLabels()[0].Color

	out := make([]git.Label, 0, len(names))
	for _, n := range names {
		out = append(out, git.Label{Name: n, Color: color})
	}

	return out
}
