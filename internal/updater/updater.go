// Package updater checks GitHub releases for newer builds and replaces
// the running binary in place.
package updater

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/streamgate/internal/logging"
	"github.com/smazurov/streamgate/internal/version"
)

// Updater wraps go-selfupdate for one GitHub repository.
type Updater struct {
	slug    string
	updater *selfupdate.Updater
	logger  *slog.Logger
}

// New creates an updater for the given "owner/repo" slug.
func New(slug string, prerelease bool) (*Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	return &Updater{
		slug:    slug,
		updater: up,
		logger:  logging.GetLogger("updater"),
	}, nil
}

// Check returns the latest release, or nil if the running build is
// already current.
func (u *Updater) Check(ctx context.Context) (*selfupdate.Release, error) {
	release, found, err := u.updater.DetectLatest(ctx, selfupdate.ParseSlug(u.slug))
	if err != nil {
		return nil, fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no release found for %s", u.slug)
	}

	current := version.String()
	if current != "dev" && release.LessOrEqual(current) {
		u.logger.Info("Already up to date", "version", current)
		return nil, nil
	}
	return release, nil
}

// Apply downloads the release and replaces the current executable.
func (u *Updater) Apply(ctx context.Context, release *selfupdate.Release) error {
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	u.logger.Info("Applying update", "version", release.Version(), "asset", release.AssetName)
	if err := u.updater.UpdateTo(ctx, release, exe); err != nil {
		return fmt.Errorf("failed to apply update: %w", err)
	}

	u.logger.Info("Update applied, restart to take effect", "version", release.Version())
	return nil
}
