package wifi

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// writeBackup writes a timestamped snapshot of network configuration to the
// backup directory and returns the file path.
//
// Snapshots are taken before client configuration is first modified (the
// autoconnect sweep on the way into AP mode) so an operator can restore by
// hand if something goes wrong. Nothing reads them programmatically.
func writeBackup(dir, prefix, content string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s-%s.backup", prefix, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return path, nil
}
