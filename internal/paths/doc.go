// Package paths resolves where pulsar keeps its files: the settings file,
// node and farm data, binaries, logs, the summary and the instance lock.
// Every location can be overridden with a PULSAR_* environment variable,
// otherwise it follows the OS conventions for config, data and cache dirs.
package paths
