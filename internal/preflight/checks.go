package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"gazefix/internal/config"
	"gazefix/internal/deps"
	"gazefix/internal/recording"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if detail, ok := inspectDirectory(path); !ok {
		return Result{Name: name, Detail: detail}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is a writable directory, or when it
// does not exist yet but its nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}

	ancestor := path
	for {
		next := filepath.Dir(ancestor)
		if next == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		ancestor = next
		info, err := os.Stat(ancestor)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
		}
		break
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckDataDirectory verifies the data directory is readable and reports how
// many recordings it holds. An empty data directory is not an error.
func CheckDataDirectory(path string, extensions []string) Result {
	const name = "Data directory"
	if detail, ok := inspectDirectory(path); !ok {
		return Result{Name: name, Detail: detail}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	folders, err := recording.Discover(path, extensions)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	files := recording.Flatten(folders)
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%d recordings in %d folders)", path, len(files), len(folders)),
	}
}

// CheckClassifier verifies the classifier command resolves, its script
// interpreter (if any) is installed, and reports the version it prints.
func CheckClassifier(ctx context.Context, cfg config.Classifier) []Result {
	statuses := deps.CheckBinaries([]deps.Requirement{{
		Name:        "Classifier",
		Command:     cfg.Command,
		Description: "Runs I2MC fixation classification",
	}})
	results := make([]Result, 0, 3)
	for _, s := range statuses {
		results = append(results, fromStatus(s))
	}
	if len(statuses) == 0 || !statuses[0].Available {
		return results
	}

	if interp, ok := deps.CheckInterpreter(statuses[0].Path); ok {
		results = append(results, fromStatus(interp))
	}

	probe := ProbeClassifier(ctx, statuses[0].Path, cfg.Args)
	results = append(results, Result{
		Name:     "Classifier version",
		Passed:   probe.Responded,
		Detail:   probe.Detail(),
		Optional: true,
	})
	return results
}

func fromStatus(s deps.Status) Result {
	if s.Available {
		detail := s.Path
		if s.Description != "" {
			detail = fmt.Sprintf("%s (%s)", s.Path, s.Description)
		}
		return Result{Name: s.Name, Passed: true, Detail: detail, Optional: s.Optional}
	}
	return Result{Name: s.Name, Detail: s.Detail, Optional: s.Optional}
}

func inspectDirectory(path string) (string, bool) {
	if path == "" {
		return "not configured", false
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("%s (error: does not exist)", path), false
		}
		return fmt.Sprintf("%s (error: stat: %v)", path, err), false
	}
	if !info.IsDir() {
		return fmt.Sprintf("%s (error: is not a directory)", path), false
	}
	return "", true
}
