// Package vivado is the boundary to the external synthesis backend:
// locating the installation, building the batch invocation, and parsing
// the line-oriented output stream for messages and step markers.
package vivado

import (
	"regexp"
	"strconv"
	"strings"

	"hdlforge/internal/steptrack"
)

// MessageType classifies one output line.
type MessageType int

const (
	MsgInfo MessageType = iota
	MsgWarning
	MsgCriticalWarning
	MsgError
	MsgStepUpdate
	MsgProjectName
	MsgBuildArtefacts
	MsgTiming
)

// Parsed is the result of classifying one line.
type Parsed struct {
	Type MessageType
	Text string

	// Step marker fields.
	StepName   string
	StepStatus steptrack.Status
	Warnings   int
	Errors     int

	// Extra marker fields.
	ProjectName  string
	ArtefactsDir string
	TimingPassed bool
	TimingReport string
}

var (
	errorPatterns = compileAll(
		`^error[:\s]`,
		`^\[error\]`,
		`\{error\}`,
		`ERROR:`,
		`\[ERROR\]`,
	)
	criticalWarningPatterns = compileAll(
		`critical warning[:\s]`,
		`\[critical warning\]`,
		`CRITICAL WARNING:`,
	)
	warningPatterns = compileAll(
		`^warning[:\s]`,
		`^\[warning\]`,
		`WARNING:`,
	)

	// Substrings that look like messages but are not.
	falsePositives = []string{
		"error_msg",
		"no error",
		"error_count",
		"warning_msg",
		"no warning",
	}

	// [W:3 E:1], [W:3] or [E:1]
	countRE = regexp.MustCompile(`\[(?:W:(\d+))?\s*(?:E:(\d+))?\]`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

func matchesAny(line string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// ParseLine classifies a single line of backend output.
//
// Marker lines take precedence over the generic error/warning patterns so
// that a step marker carrying "ERROR" in its own name is not double
// counted as a backend error.
func ParseLine(line string) Parsed {
	text := strings.TrimSpace(line)
	if text == "" {
		return Parsed{Type: MsgInfo, Text: text}
	}

	if p, ok := parseMarker(text); ok {
		return p
	}

	lower := strings.ToLower(text)
	for _, fp := range falsePositives {
		if strings.Contains(lower, fp) {
			return Parsed{Type: MsgInfo, Text: text}
		}
	}

	switch {
	case matchesAny(text, errorPatterns):
		return Parsed{Type: MsgError, Text: text}
	case matchesAny(text, criticalWarningPatterns):
		return Parsed{Type: MsgCriticalWarning, Text: text}
	case matchesAny(text, warningPatterns):
		return Parsed{Type: MsgWarning, Text: text}
	}
	return Parsed{Type: MsgInfo, Text: text}
}

func parseMarker(text string) (Parsed, bool) {
	switch {
	case strings.HasPrefix(text, steptrack.MarkerStepSuccess):
		return stepMarker(text, steptrack.MarkerStepSuccess, steptrack.StatusSuccess), true
	case strings.HasPrefix(text, steptrack.MarkerStepWarning):
		return stepMarker(text, steptrack.MarkerStepWarning, steptrack.StatusWarning), true
	case strings.HasPrefix(text, steptrack.MarkerStepError):
		return stepMarker(text, steptrack.MarkerStepError, steptrack.StatusError), true

	case strings.HasPrefix(text, steptrack.MarkerProjectName):
		return Parsed{
			Type:        MsgProjectName,
			Text:        text,
			ProjectName: strings.TrimSpace(strings.TrimPrefix(text, steptrack.MarkerProjectName)),
		}, true
	case strings.HasPrefix(text, steptrack.MarkerBuildArtefacts):
		return Parsed{
			Type:         MsgBuildArtefacts,
			Text:         text,
			ArtefactsDir: strings.TrimSpace(strings.TrimPrefix(text, steptrack.MarkerBuildArtefacts)),
		}, true
	case strings.HasPrefix(text, steptrack.MarkerTiming):
		rest := strings.Fields(strings.TrimPrefix(text, steptrack.MarkerTiming))
		p := Parsed{Type: MsgTiming, Text: text}
		if len(rest) > 0 {
			p.TimingPassed = rest[0] == "PASSED"
		}
		if len(rest) > 1 {
			p.TimingReport = rest[1]
		}
		return p, true
	}
	return Parsed{}, false
}

func stepMarker(text, prefix string, status steptrack.Status) Parsed {
	rest := strings.TrimSpace(strings.TrimPrefix(text, prefix))
	p := Parsed{Type: MsgStepUpdate, Text: text, StepStatus: status}
	if i := strings.IndexByte(rest, '['); i >= 0 {
		p.StepName = strings.TrimSpace(rest[:i])
		if m := countRE.FindStringSubmatch(rest[i:]); m != nil {
			if m[1] != "" {
				p.Warnings, _ = strconv.Atoi(m[1])
			}
			if m[2] != "" {
				p.Errors, _ = strconv.Atoi(m[2])
			}
		}
	} else {
		p.StepName = rest
	}
	return p
}
