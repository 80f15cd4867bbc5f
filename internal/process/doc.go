// Package process supervises the external executables pulsar drives. It
// starts a child with a prepared environment, splits its output into lines
// that are logged and handed to registered handlers, and stops it with an
// interrupt followed by a kill when the caller's deadline passes.
package process
