// Package installer fetches the subspace-node and subspace-farmer
// executables from GitHub releases, verifies them against the published
// checksums when there are any, and installs them into the binary
// directory. It also keeps a daily-cached check for newer pulsar releases
// that powers the startup banner.
package installer
