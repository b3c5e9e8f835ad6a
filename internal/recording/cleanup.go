package recording

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// CleanupInterval is how often old recordings are pruned.
const CleanupInterval = 1 * time.Hour

// RunCleanup prunes recordings older than retentionDays now and every
// CleanupInterval until ctx is done. A retention of zero keeps everything.
func RunCleanup(ctx context.Context, dir string, retentionDays int) {
	if dir == "" || retentionDays <= 0 {
		return
	}

	slog.Info("recording cleanup started", "path", dir, "retention_days", retentionDays)

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		Cleanup(dir, time.Now().AddDate(0, 0, -retentionDays))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cleanup removes date directories and files older than cutoff.
// It returns how many files and directories were deleted.
func Cleanup(dir string, cutoff time.Time) (deletedFiles, deletedDirs int) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, 0
	}
	if err != nil {
		slog.Error("failed to read recording directory", "path", dir, "error", err)
		return 0, 0
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		// Parse date from directory name (format: 2006-01-02)
		dirDate, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			continue
		}

		dirPath := filepath.Join(dir, entry.Name())

		if dirDate.Before(cutoff.Truncate(24 * time.Hour)) {
			if files, err := os.ReadDir(dirPath); err == nil {
				deletedFiles += len(files)
			}
			if err := os.RemoveAll(dirPath); err != nil {
				slog.Error("failed to remove old recording directory", "path", dirPath, "error", err)
			} else {
				deletedDirs++
			}
			continue
		}

		deletedFiles += cleanupFiles(dirPath, cutoff)
		// Today's directory may be about to receive a new file.
		if entry.Name() != time.Now().Format("2006-01-02") && removeIfEmpty(dirPath) {
			deletedDirs++
		}
	}

	if deletedFiles > 0 || deletedDirs > 0 {
		slog.Info("recording cleanup completed", "deleted_files", deletedFiles, "deleted_dirs", deletedDirs)
	}
	return deletedFiles, deletedDirs
}

// cleanupFiles removes files older than cutoff in dirPath.
func cleanupFiles(dirPath string, cutoff time.Time) int {
	files, err := os.ReadDir(dirPath)
	if err != nil {
		return 0
	}

	deleted := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		filePath := filepath.Join(dirPath, file.Name())
		if err := os.Remove(filePath); err != nil {
			slog.Error("failed to remove old recording file", "path", filePath, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}

// removeIfEmpty removes dirPath when it holds no entries.
func removeIfEmpty(dirPath string) bool {
	files, err := os.ReadDir(dirPath)
	if err != nil || len(files) > 0 {
		return false
	}
	if err := os.Remove(dirPath); err != nil {
		slog.Warn("failed to remove empty directory", "path", dirPath, "error", err)
		return false
	}
	return true
}
