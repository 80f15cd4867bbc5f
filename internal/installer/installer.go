package installer

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/autonomys/pulsar/internal/branding"
	"go.uber.org/zap"
)

// Release represents a GitHub release.
type Release struct {
	Tag        string    `json:"tag_name"`
	Name       string    `json:"name"`
	Assets     []Asset   `json:"assets"`
	Published  time.Time `json:"published_at"`
	HTMLURL    string    `json:"html_url"`
	Prerelease bool      `json:"prerelease"`
}

// Asset represents a downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Installer downloads release executables.
type Installer struct {
	httpClient  *http.Client
	apiBase     string
	repo        string
	binDir      string
	out         io.Writer
	interactive bool
	logger      *zap.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(i *Installer) { i.httpClient = c }
}

// WithAPIBase points release lookups at another GitHub API endpoint.
func WithAPIBase(base string) Option {
	return func(i *Installer) { i.apiBase = base }
}

// WithRepo sets the "owner/repo" releases are fetched from.
func WithRepo(repo string) Option {
	return func(i *Installer) { i.repo = repo }
}

// WithOutput sets where download progress is written.
func WithOutput(w io.Writer, interactive bool) Option {
	return func(i *Installer) {
		i.out = w
		i.interactive = interactive
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// New creates an Installer writing into binDir.
func New(binDir string, opts ...Option) *Installer {
	i := &Installer{
		httpClient: http.DefaultClient,
		apiBase:    githubAPIBase,
		repo:       branding.NodeReleaseRepo(),
		binDir:     binDir,
		out:        os.Stderr,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// BinDir returns the install directory.
func (i *Installer) BinDir() string { return i.binDir }
