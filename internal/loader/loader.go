// Package loader discovers the PDF documents of the corpus and extracts
// their page text.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo holds metadata about a single document found during a scan.
type FileInfo struct {
	Name     string    // Slash path relative to the documents directory; the document identity.
	Path     string    // Absolute path on disk.
	Size     int64     // File size in bytes.
	ModTime  time.Time // Last modification time.
	Checksum string    // SHA-256 hex digest of the file content.
}

// ScanConfig controls the behaviour of Scan.
type ScanConfig struct {
	RootDir string   // Directory to walk.
	Include []string // Glob patterns; only matching files are documents.
	Exclude []string // Glob patterns; matching files are skipped.
}

// ScanResult is the outcome of a Scan.
type ScanResult struct {
	Files []FileInfo
	// Unreadable holds entries that matched but could not be read, keyed by
	// document name. An unreadable directory is keyed by its name with a
	// trailing slash and stands for every document below it.
	Unreadable map[string]error
}

// Covers reports whether name is unreadable itself or lies below an
// unreadable directory.
func (r *ScanResult) Covers(name string) bool {
	if _, ok := r.Unreadable[name]; ok {
		return true
	}
	for key := range r.Unreadable {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(name, key) {
			return true
		}
	}
	return false
}

// Scan walks config.RootDir and returns every file that passes filtering,
// sorted by name. A missing root directory yields an empty result. Read
// failures below the root do not abort the walk; they are reported in
// Unreadable so callers can tell them apart from deleted files.
func Scan(config ScanConfig) (*ScanResult, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve root: %w", err)
	}

	result := &ScanResult{Unreadable: make(map[string]error)}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if path == root {
			return walkErr
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relPath)

		if walkErr != nil {
			if d == nil || d.IsDir() {
				result.Unreadable[name+"/"] = walkErr
			} else {
				result.Unreadable[name] = walkErr
			}
			return nil
		}

		if d.IsDir() {
			if shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		// Only process regular files.
		if !d.Type().IsRegular() {
			return nil
		}

		if !MatchesInclude(name, config.Include) || MatchesExclude(name, config.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Unreadable[name] = err
			return nil
		}

		sum, err := hashFile(path)
		if err != nil {
			result.Unreadable[name] = err
			return nil
		}

		result.Files = append(result.Files, FileInfo{
			Name:     name,
			Path:     path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Checksum: sum,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: traversal: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Name < result.Files[j].Name })
	return result, nil
}

// openFile is replaced in tests to simulate read failures.
var openFile = os.Open

// hashFile computes the SHA-256 digest of the given file.
func hashFile(path string) (string, error) {
	f, err := openFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
