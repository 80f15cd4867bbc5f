package installer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/autonomys/pulsar/internal/branding"
)

const githubAPIBase = "https://api.github.com"

// ErrReleaseNotFound is returned when the requested tag does not exist.
var ErrReleaseNotFound = errors.New("release not found")

// Latest fetches the newest release that ships executables for this
// platform. Subspace publishes several networks from one repository, so the
// most recent release is not always a farming one.
func (i *Installer) Latest(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=30", i.apiBase, i.repo)
	var releases []Release
	if err := i.getJSON(ctx, url, &releases); err != nil {
		return nil, err
	}
	for idx := range releases {
		r := &releases[idx]
		if r.Prerelease {
			continue
		}
		if _, err := SelectAssetForPlatform(r.Assets, NodeBinary); err != nil {
			continue
		}
		if _, err := SelectAssetForPlatform(r.Assets, FarmerBinary); err != nil {
			continue
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: no release of %s has executables for this platform", ErrReleaseNotFound, i.repo)
}

// Tag fetches a release by tag.
func (i *Installer) Tag(ctx context.Context, tag string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", i.apiBase, i.repo, tag)
	var r Release
	if err := i.getJSON(ctx, url, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestCLI fetches the newest release of pulsar itself.
func (i *Installer) LatestCLI(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", i.apiBase, branding.GitHubRepo())
	var r Release
	if err := i.getJSON(ctx, url, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (i *Installer) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent())

	// Optional token for higher rate limits.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrReleaseNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		return fmt.Errorf("GitHub API rate limit exceeded. Set GITHUB_TOKEN for higher limits")
	default:
		return fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing release JSON: %w", err)
	}
	return nil
}

func userAgent() string {
	return branding.CLIName() + "-installer"
}
