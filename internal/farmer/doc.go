// Package farmer runs the subspace-farmer executable against the local node
// and follows its initial plotting progress by parsing its log output.
package farmer
