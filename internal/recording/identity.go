package recording

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"gazefix/internal/fixation"
)

var digitRun = regexp.MustCompile(`\d+`)

// ParticipantFromFolder returns the last run of digits in the folder path,
// falling back to the folder's base name when it holds no digits.
func ParticipantFromFolder(folder string) string {
	folder = norm.NFC.String(filepath.ToSlash(folder))
	if runs := digitRun.FindAllString(folder, -1); len(runs) > 0 {
		return runs[len(runs)-1]
	}
	return strings.TrimSpace(filepath.Base(folder))
}

// TrialFromFile returns the file name up to its first dot.
func TrialFromFile(name string) string {
	base := norm.NFC.String(filepath.Base(name))
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return strings.TrimSpace(base)
}

// IdentityFor derives the participant/trial identity of a recording file.
func IdentityFor(folder, file string) fixation.Identity {
	return fixation.Identity{
		Participant: ParticipantFromFolder(folder),
		Trial:       TrialFromFile(file),
	}
}
