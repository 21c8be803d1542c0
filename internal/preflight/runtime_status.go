package preflight

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// ClassifierProbe reports what the classifier printed for --version.
type ClassifierProbe struct {
	Command   string
	Responded bool
	Version   string
}

// ProbeClassifier runs "<command> <args...> --version" with a short timeout and
// captures the first non-empty output line.
func ProbeClassifier(ctx context.Context, command string, args []string) ClassifierProbe {
	probe := ClassifierProbe{Command: strings.TrimSpace(command)}
	if probe.Command == "" {
		return probe
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	argv := append(append([]string{}, args...), "--version")
	cmd := exec.CommandContext(probeCtx, probe.Command, argv...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return probe
	}
	probe.Responded = true
	probe.Version = firstLine(output)
	return probe
}

// Detail renders a display-friendly summary for status output.
func (p ClassifierProbe) Detail() string {
	if !p.Responded {
		return "no response to --version"
	}
	if p.Version == "" {
		return "responded (no version reported)"
	}
	return p.Version
}

func firstLine(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
