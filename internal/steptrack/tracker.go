// Package steptrack aggregates per-step warning and error counts and
// decides the terminal status of each pipeline step.
//
// Every step writes a machine-parseable marker line on finalization, so an
// operator (or the multi-project runner parsing child output) can determine
// the outcome either from the live stream or from the final summary alone.
package steptrack

import (
	"fmt"
	"io"
	"os"
)

// Status is the terminal state of one step.
type Status int

const (
	StatusSuccess Status = iota
	StatusWarning
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Severity of a single recorded message.
type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

// Message is one diagnostic recorded against a step.
type Message struct {
	Severity Severity
	Text     string
}

// StepLog holds the counters for one step invocation. Counters are
// monotonic between Begin and Finalize.
type StepLog struct {
	Warnings int
	Errors   int
	Messages []Message
}

// Tracker maps step identifiers (module::proc form) to their counters.
// One tracker belongs to exactly one project run; there is no shared
// state between runs.
type Tracker struct {
	steps map[string]*StepLog
	order []string
	out   io.Writer

	runWarnings bool
	runErrors   bool
}

// New creates a tracker streaming markers and messages to out.
// A nil out falls back to stdout.
func New(out io.Writer) *Tracker {
	if out == nil {
		out = os.Stdout
	}
	return &Tracker{
		steps: make(map[string]*StepLog),
		out:   out,
	}
}

// Begin resets the counters for a step. Counts are never silently carried
// over from a previous invocation of the same step name.
func (t *Tracker) Begin(step string) {
	if _, seen := t.steps[step]; !seen {
		t.order = append(t.order, step)
	}
	t.steps[step] = &StepLog{}
}

func (t *Tracker) log(step string) *StepLog {
	l, ok := t.steps[step]
	if !ok {
		l = &StepLog{}
		t.steps[step] = l
		t.order = append(t.order, step)
	}
	return l
}

// Infof records a message without affecting the step outcome.
func (t *Tracker) Infof(step, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	l := t.log(step)
	l.Messages = append(l.Messages, Message{Severity: SevInfo, Text: text})
	fmt.Fprintf(t.out, "INFO: [%s] %s\n", step, text)
}

// Warnf records a warning against the step and prints it immediately.
func (t *Tracker) Warnf(step, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	l := t.log(step)
	l.Warnings++
	l.Messages = append(l.Messages, Message{Severity: SevWarning, Text: text})
	fmt.Fprintf(t.out, "WARNING: [%s] %s\n", step, text)
}

// Errorf records an error against the step and prints it immediately.
func (t *Tracker) Errorf(step, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	l := t.log(step)
	l.Errors++
	l.Messages = append(l.Messages, Message{Severity: SevError, Text: text})
	fmt.Fprintf(t.out, "ERROR: [%s] %s\n", step, text)
}

// Counts returns the current warning and error counters of a step.
func (t *Tracker) Counts(step string) (warnings, errors int) {
	if l, ok := t.steps[step]; ok {
		return l.Warnings, l.Errors
	}
	return 0, 0
}

// Messages returns the recorded messages of a step in order.
func (t *Tracker) Messages(step string) []Message {
	if l, ok := t.steps[step]; ok {
		return l.Messages
	}
	return nil
}

// Finalize computes the terminal status of a step, emits its marker line
// and folds the result into the run-level flags.
func (t *Tracker) Finalize(step string) Status {
	l := t.log(step)
	var status Status
	switch {
	case l.Errors > 0:
		status = StatusError
		t.runErrors = true
	case l.Warnings > 0:
		status = StatusWarning
		t.runWarnings = true
	default:
		status = StatusSuccess
	}
	fmt.Fprintln(t.out, StepMarker(step, status, l.Warnings, l.Errors))
	return status
}

// RunStatus aggregates every finalized step: any error wins over any
// warning, which wins over success.
func (t *Tracker) RunStatus() Status {
	switch {
	case t.runErrors:
		return StatusError
	case t.runWarnings:
		return StatusWarning
	}
	return StatusSuccess
}

// HasErrors reports whether any step recorded an error. The pipeline
// driver must not invoke the backend when this is true.
func (t *Tracker) HasErrors() bool { return t.runErrors }

// HasWarnings reports whether any step recorded a warning.
func (t *Tracker) HasWarnings() bool { return t.runWarnings }

// Steps returns the step identifiers in first-use order.
func (t *Tracker) Steps() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
