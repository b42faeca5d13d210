// Package forceflag implements the persistent force-AP request flag.
//
// The flag is the existence of a file at a fixed path: presence means "an
// external actor requested immediate AP mode". The path must live in a
// directory that survives reboots, because the usual requester (the web UI)
// creates the flag and then reboots the device. File content is irrelevant;
// the whole protocol is presence or absence.
//
// The mode controller consumes the flag after committing to the AP
// transition, so a crash between detection and consumption re-triggers on
// restart. At-least-once semantics are safe because re-entering AP mode
// while it is already active is a no-op.
package forceflag

import (
	"fmt"
	"os"
	"path/filepath"
)

// Flag is a reboot-surviving boolean request stored as a file.
type Flag struct {
	path string
}

// New creates a flag handle for the given path. The file is not touched.
func New(path string) *Flag {
	return &Flag{path: path}
}

// Path returns the flag file path.
func (f *Flag) Path() string {
	return f.path
}

// Requested reports whether the flag file exists.
func (f *Flag) Requested() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Create raises the flag. Idempotent: an existing flag stays raised.
func (f *Flag) Create() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create flag directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create force-AP flag %s: %w", f.path, err)
	}
	return file.Close()
}

// Consume lowers the flag. Called exactly once per honored request, after
// the AP transition has been committed to. A missing flag is not an error.
func (f *Flag) Consume() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to consume force-AP flag %s: %w", f.path, err)
	}
	return nil
}
