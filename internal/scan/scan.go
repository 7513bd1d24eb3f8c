package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type FileInfo struct {
	Path       string
	Key        string // path relative to the root, without extension
	Compressed bool
	Mtime      int64
	Size       int64
}

// IsSessionFile reports whether name looks like a session log.
func IsSessionFile(name string) bool {
	if strings.Contains(name, "sessions-index") {
		return false
	}
	return strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".jsonl.zst")
}

// SessionKey derives a stable key for path under root.
func SessionKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	rel = strings.TrimSuffix(rel, ".zst")
	rel = strings.TrimSuffix(rel, ".jsonl")
	return filepath.ToSlash(rel)
}

// ScanRoot lists session files under root, sorted by path. A missing root
// yields no files. Sub-agent directories hold sidechain copies of a parent
// session and are skipped.
func ScanRoot(root string) ([]FileInfo, error) {
	if root == "" {
		return nil, nil
	}
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			if filepath.Base(path) == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSessionFile(filepath.Base(path)) {
			return nil
		}
		files = append(files, FileInfo{
			Path:       path,
			Key:        SessionKey(root, path),
			Compressed: strings.HasSuffix(path, ".zst"),
			Mtime:      info.ModTime().Unix(),
			Size:       info.Size(),
		})
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
