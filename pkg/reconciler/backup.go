package reconciler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupSuffix     = ".pg-backup-"
	backupTimeFormat = "20060102-150405"
	maxBackups       = 3
)

// Backup copies the config file to a timestamped sibling before a
// destructive write. Returns the backup path, or empty string if the
// source file doesn't exist yet.
func Backup(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file for backup: %w", err)
	}

	backupPath := path + backupSuffix + time.Now().Format(backupTimeFormat)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}

	// Prune old backups; failure to prune never fails the backup.
	_ = pruneBackups(path)

	return backupPath, nil
}

// pruneBackups keeps only the most recent maxBackups backup files.
func pruneBackups(originalPath string) error {
	dir := filepath.Dir(originalPath)
	prefix := filepath.Base(originalPath) + backupSuffix

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	if len(backups) <= maxBackups {
		return nil
	}

	// Timestamp in the filename makes lexicographic order chronological.
	sort.Strings(backups)

	for _, path := range backups[:len(backups)-maxBackups] {
		os.Remove(path)
	}

	return nil
}
