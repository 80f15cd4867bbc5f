// Package wipe deletes the node database, the farm and the farming
// summary so the next farm run starts from scratch.
package wipe
