// Package fileio provides small helpers for common file writing tasks.
package fileio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempFilePrefix is the prefix used by temporary files. Naming the file
// with origin information helps identify the source of excessive writes
// if this package is being abused or is not cleaning up after itself.
const TempFilePrefix = "anaconda-packaging-utils-"

// WriteFile writes text content to a file, truncating any existing file.
func WriteFile(path string, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteLines writes content to a file line-by-line, appending a newline
// to each entry.
func WriteLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return WriteFile(path, b.String())
}

// WriteTempFile writes content to a uniquely named file under the
// system temp directory and returns its path. Unlike os.CreateTemp
// handles, the file persists after this call so other programs can
// read it.
//
// tag optionally further identifies the file's purpose in its name.
func WriteTempFile(content string, tag string) (string, error) {
	if tag != "" {
		tag += "-"
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("%s%s%s.out", TempFilePrefix, tag, uuid.NewString()))
	if err := WriteFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}
