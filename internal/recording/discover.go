package recording

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gazefix/internal/fixation"
)

// File is one recording scheduled for processing.
type File struct {
	Path     string
	Folder   string
	Identity fixation.Identity
	// FolderIndex and FileIndex are 1-based positions for progress reporting.
	FolderIndex int
	FileIndex   int
	FolderFiles int
}

// Folder groups the recordings of one participant directory.
type Folder struct {
	Path  string
	Files []File
}

// Discover lists participant folders below root (not root itself) in lexical
// order, each with its recordings in lexical order. Only files whose extension
// is in extensions (case-insensitive) are included; an empty list accepts all.
func Discover(root string, extensions []string) ([]Folder, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("inspect data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", root)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() && path != root {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk data dir: %w", err)
	}
	sort.Strings(dirs)

	folders := make([]Folder, 0, len(dirs))
	for i, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read folder %s: %w", dir, err)
		}
		var names []string
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if len(allowed) > 0 {
				if _, ok := allowed[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
					continue
				}
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		folder := Folder{Path: dir}
		for j, name := range names {
			folder.Files = append(folder.Files, File{
				Path:        filepath.Join(dir, name),
				Folder:      dir,
				Identity:    IdentityFor(dir, name),
				FolderIndex: i + 1,
				FileIndex:   j + 1,
				FolderFiles: len(names),
			})
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

// Flatten returns every file across folders in processing order.
func Flatten(folders []Folder) []File {
	var out []File
	for _, f := range folders {
		out = append(out, f.Files...)
	}
	return out
}
