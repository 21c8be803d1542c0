package logs

import (
	"encoding/json"
	"strings"
)

// Filter selects log lines by run or participant. Zero fields match everything.
type Filter struct {
	RunID       string
	Participant string
}

// Empty reports whether the filter accepts every line.
func (f Filter) Empty() bool {
	return f.RunID == "" && f.Participant == ""
}

// Match reports whether line belongs to the filtered run and participant.
// JSON lines are matched on their fields; console lines on the run_id=
// attribute and the "[participant/trial]" prefix.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(line), &fields); err == nil {
			return f.matchFields(fields)
		}
	}
	return f.matchConsole(line)
}

func (f Filter) matchFields(fields map[string]any) bool {
	if f.RunID != "" {
		id, _ := fields["run_id"].(string)
		if !strings.HasPrefix(id, f.RunID) {
			return false
		}
	}
	if f.Participant != "" {
		participant, _ := fields["participant"].(string)
		if participant != f.Participant {
			return false
		}
	}
	return true
}

func (f Filter) matchConsole(line string) bool {
	if f.RunID != "" && !strings.Contains(line, "run_id="+f.RunID) {
		return false
	}
	if f.Participant != "" && !strings.Contains(line, "["+f.Participant+"/") && !strings.Contains(line, "["+f.Participant+"]") {
		return false
	}
	return true
}
