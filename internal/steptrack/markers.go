package steptrack

import "fmt"

// Line-oriented stdout markers. These are the contract between a project
// run and whatever aggregates its output, so the formats here must stay in
// sync with the parser in internal/vivado.
const (
	MarkerStepSuccess = "[HDLFORGE_STEP_SUCCESS]"
	MarkerStepWarning = "[HDLFORGE_STEP_WARNING]"
	MarkerStepError   = "[HDLFORGE_STEP_ERROR]"

	MarkerProjectName    = "[HDLFORGE_PROJECT_NAME]"
	MarkerBuildArtefacts = "[HDLFORGE_BUILD_ARTEFACTS]"
	MarkerTiming         = "[HDLFORGE_TIMING]"
)

// StepMarker renders the terminal marker line for a step. Success carries
// no counts; warning and error carry a bracketed [W:n E:n] pair.
func StepMarker(step string, status Status, warnings, errors int) string {
	switch status {
	case StatusWarning:
		return fmt.Sprintf("%s %s [W:%d E:%d]", MarkerStepWarning, step, warnings, errors)
	case StatusError:
		return fmt.Sprintf("%s %s [W:%d E:%d]", MarkerStepError, step, warnings, errors)
	}
	return fmt.Sprintf("%s %s", MarkerStepSuccess, step)
}

// EmitProjectName reports the resolved project display name.
func (t *Tracker) EmitProjectName(name string) {
	fmt.Fprintf(t.out, "%s %s\n", MarkerProjectName, name)
}

// EmitBuildArtefacts reports the build artefact output directory.
func (t *Tracker) EmitBuildArtefacts(dir string) {
	fmt.Fprintf(t.out, "%s %s\n", MarkerBuildArtefacts, dir)
}

// EmitTiming reports the timing-check verdict and its report path.
func (t *Tracker) EmitTiming(passed bool, reportPath string) {
	verdict := "PASSED"
	if !passed {
		verdict = "FAILED"
	}
	if reportPath == "" {
		fmt.Fprintf(t.out, "%s %s\n", MarkerTiming, verdict)
		return
	}
	fmt.Fprintf(t.out, "%s %s %s\n", MarkerTiming, verdict, reportPath)
}
