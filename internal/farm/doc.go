// Package farm implements the farm command: it starts the node and the
// farmer, shows syncing and plotting progress, counts the blocks authored
// with the configured reward address, and shuts everything down in order on
// interrupt.
package farm
