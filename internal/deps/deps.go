package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external program gazefix runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement plus the outcome of looking it up on PATH.
type Status struct {
	Requirement
	Available bool
	// Path is the resolved executable when Available is true.
	Path   string
	Detail string
}

// CheckBinaries resolves each requirement's command.
func CheckBinaries(requirements []Requirement) []Status {
	statuses := make([]Status, len(requirements))
	for i, req := range requirements {
		statuses[i] = checkBinary(req)
	}
	return statuses
}

func checkBinary(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}

	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available, status.Path = true, path
	return status
}

// Missing filters statuses down to required commands that were not found.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
