package ui

import (
	"fmt"
	"io"
	"strings"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step represents a single step in a multi-step operation
type Step struct {
	Name    string
	Status  StepStatus
	Message string // optional note, e.g. "3 networks"
}

// Steps prints a step list line by line as each step settles. It is
// meant for plain scrolling output, not a redrawn screen.
type Steps struct {
	out   io.Writer
	steps []Step
}

// NewSteps creates a step list writing to out.
func NewSteps(out io.Writer, names ...string) *Steps {
	s := &Steps{out: out, steps: make([]Step, len(names))}
	for i, name := range names {
		s.steps[i].Name = name
	}
	return s
}

// Run marks step i running, calls fn, and prints the outcome. The note
// returned by fn is shown next to the step name.
func (s *Steps) Run(i int, fn func() (string, error)) error {
	s.steps[i].Status = StepRunning
	note, err := fn()
	s.steps[i].Message = note
	if err != nil {
		s.steps[i].Status = StepFailed
		if note == "" {
			s.steps[i].Message = err.Error()
		}
	} else {
		s.steps[i].Status = StepComplete
	}
	_, _ = fmt.Fprintln(s.out, renderStep(s.steps[i]))
	return err
}

// Skip marks the remaining pending steps skipped and prints them.
func (s *Steps) Skip() {
	for i := range s.steps {
		if s.steps[i].Status == StepPending {
			s.steps[i].Status = StepSkipped
			_, _ = fmt.Fprintln(s.out, renderStep(s.steps[i]))
		}
	}
}

// Status returns the status of step i.
func (s *Steps) Status(i int) StepStatus {
	return s.steps[i].Status
}

func renderStep(step Step) string {
	var marker, name string
	switch step.Status {
	case StepComplete:
		marker = StepCompleteStyle.Render(StepMarkerComplete)
		name = StepCompleteStyle.Render(step.Name)
	case StepRunning:
		marker = StepRunningStyle.Render(StepMarkerRunning)
		name = StepRunningStyle.Render(step.Name)
	case StepFailed:
		marker = StepFailedStyle.Render(StepMarkerFailed)
		name = StepFailedStyle.Render(step.Name)
	default:
		marker = StepPendingStyle.Render(StepMarkerPending)
		name = StepPendingStyle.Render(step.Name)
	}

	line := "  " + marker + " " + name
	if step.Message != "" {
		line += " " + StepNoteStyle.Render("("+step.Message+")")
	}
	if step.Status == StepSkipped {
		line += " " + StepNoteStyle.Render("(skipped)")
	}
	return strings.TrimRight(line, " ")
}
