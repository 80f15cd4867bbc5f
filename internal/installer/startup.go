package installer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/ui"
	"go.uber.org/zap"
)

const refreshTimeout = 5 * time.Second

// CheckAndPrintBanner prints an update banner from the cached release check
// and refreshes a stale cache for the next run. It blocks for at most
// refreshTimeout.
func (i *Installer) CheckAndPrintBanner(ctx context.Context, w io.Writer, cacheDir, currentVersion string) {
	cache, err := LoadCache(cacheDir)
	if err != nil {
		i.logger.Debug("ignoring version cache", zap.Error(err))
		return
	}
	if cache.Announces(currentVersion) {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion)
	}
	if IsCacheStale(cache, DefaultCacheMaxAge) {
		ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		i.refreshCache(ctx, cacheDir, currentVersion)
	}
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\n%s %s -> %s\n", ui.Yellow("Update available:"), current, latest)
	fmt.Fprintf(w, "    Download it from https://github.com/%s/releases\n\n", branding.GitHubRepo())
}

func (i *Installer) refreshCache(ctx context.Context, cacheDir, currentVersion string) {
	release, err := i.LatestCLI(ctx)
	if err != nil {
		i.logger.Debug("version check failed", zap.Error(err))
		return
	}
	available, err := IsUpdateAvailable(currentVersion, release.Tag)
	if err != nil {
		// Development builds have no comparable version.
		return
	}
	cache := &VersionCache{
		LatestVersion:   release.Tag,
		CurrentVersion:  currentVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	}
	if err := SaveCache(cacheDir, cache); err != nil {
		i.logger.Debug("saving version cache", zap.Error(err))
	}
}
