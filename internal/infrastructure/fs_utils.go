package infrastructure

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars  = regexp.MustCompile(`[^\w\s.-]`)
	dashCollapse = regexp.MustCompile(`[-\s]+`)
)

const maxFilenameTitle = 50

// SafeFilename derives a filesystem-safe download filename from a
// title, falling back to the id when the title sanitizes to nothing.
func SafeFilename(title, id, extension string) string {
	safe := unsafeChars.ReplaceAllString(title, "")
	safe = dashCollapse.ReplaceAllString(safe, "-")
	safe = strings.Trim(safe, "-.")
	if len(safe) > maxFilenameTitle {
		safe = safe[:maxFilenameTitle]
		safe = strings.Trim(safe, "-.")
	}
	if safe == "" {
		safe = id
	}
	if extension == "" {
		extension = "mp4"
	}
	return safe + "." + strings.TrimPrefix(extension, ".")
}

// FormatFileSize formats a byte count in human readable form
func FormatFileSize(sizeBytes int64) string {
	if sizeBytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(sizeBytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", sizeBytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// FormatDuration formats seconds as HH:MM:SS or MM:SS
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "unknown"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// MoveFile renames src to dst, falling back to copy+remove when the
// paths sit on different filesystems
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
