// Package platform hides the filesystem and desktop differences between
// Unix and Windows: permission bits, the "latest" log symlink, and opening
// a directory in the system file browser.
package platform
