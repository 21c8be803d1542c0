package deps

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CheckInterpreter reports the interpreter named by a script's shebang line.
//
// Classifier commands are commonly Python or MATLAB wrapper scripts; when the
// script itself is on PATH but its interpreter is not, the batch would fail on
// every recording. The second return value is false when command does not
// resolve to a script with a shebang, in which case there is nothing to check.
func CheckInterpreter(command string) (Status, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Status{}, false
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Status{}, false
	}
	interpreter, ok := readShebang(resolved)
	if !ok {
		return Status{}, false
	}

	status := checkBinary(Requirement{
		Name:        "Interpreter",
		Command:     interpreter,
		Description: fmt.Sprintf("Runs %s", filepath.Base(resolved)),
	})
	return status, true
}

// readShebang returns the program a script's "#!" line executes. For
// "#!/usr/bin/env python3" that is "python3", not env.
func readShebang(path string) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, "#!") {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(fields) == 0 {
		return "", false
	}
	if filepath.Base(fields[0]) == "env" {
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				return f, true
			}
		}
		return "", false
	}
	return fields[0], true
}
