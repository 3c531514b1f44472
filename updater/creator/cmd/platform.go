package main

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"

	"github.com/byte4ever/depmr/updater/git"
	"github.com/byte4ever/depmr/updater/git/github"
	"github.com/byte4ever/depmr/updater/git/gitlab"
)

const (
	serverGitLab = "gitlab"
	serverGitHub = "github"
)

// platform is what the command needs from a
// provider.
type platform interface {
	git.Platform
	git.LabelStore
}

// platformFlags bundles provider-specific settings to
// keep newPlatform under the 4-argument limit.
type platformFlags struct {
	server       string
	glHost       string
	glToken      string
	glRetryMax   int
	ghToken      string
	ghEnterprise string
}

// platformEnv is the environment fallback of
// platformFlags.
type platformEnv struct {
	GitLabHost       string `env:"GITLAB_HOST"`
	GitLabToken      string `env:"GITLAB_ACCESS_TOKEN"`
	GitHubToken      string `env:"GITHUB_ACCESS_TOKEN"`
	GitHubEnterprise string `env:"GITHUB_ENTERPRISE_HOST"`
}

// fromEnv fills the settings left empty on the
// command line from the process environment.
func (pf *platformFlags) fromEnv(ctx context.Context) error {
	return pf.fromLookuper(ctx, envconfig.OsLookuper())
}

func (pf *platformFlags) fromLookuper(
	ctx context.Context,
	l envconfig.Lookuper,
) error {
	const errCtx = "reading environment"

	var env platformEnv

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: l,
	}); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	fill := func(dst *string, val string) {
		if *dst == "" {
			*dst = val
		}
	}

	fill(&pf.glHost, env.GitLabHost)
	fill(&pf.glToken, env.GitLabToken)
	fill(&pf.ghToken, env.GitHubToken)
	fill(&pf.ghEnterprise, env.GitHubEnterprise)

	return nil
}

// newPlatform creates the provider named by
// pf.server. Pattern: Factory -- selects platform
// implementation at runtime.
func newPlatform(pf platformFlags) (platform, error) {
	const errCtx = "creating git provider"

	switch pf.server {
	case serverGitLab:
		p, err := gitlab.NewProvider(gitlab.Config{
			Host:        pf.glHost,
			AccessToken: pf.glToken,
			RetryMax:    pf.glRetryMax,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil

	case serverGitHub:
		p, err := github.NewProvider(github.Config{
			AccessToken:    pf.ghToken,
			EnterpriseHost: pf.ghEnterprise,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown server %q", errCtx, pf.server,
		)
	}
}
