package session

import "fmt"

// ViolationKind is a counted misconduct signal. The values match the
// counter names stored with exam sessions.
type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "tab_switch"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
)

// Signal is a raw environment observation fed to a secure exam.
type Signal string

const (
	SignalHidden            Signal = "hidden"
	SignalFullscreenLost    Signal = "fullscreen_lost"
	SignalFullscreenEntered Signal = "fullscreen_entered"
	SignalCopy              Signal = "copy"
	SignalPaste             Signal = "paste"
	SignalContextMenu       Signal = "context_menu"
)

var signals = map[Signal]bool{
	SignalHidden:            true,
	SignalFullscreenLost:    true,
	SignalFullscreenEntered: true,
	SignalCopy:              true,
	SignalPaste:             true,
	SignalContextMenu:       true,
}

func ParseSignal(s string) (Signal, error) {
	if signals[Signal(s)] {
		return Signal(s), nil
	}
	return "", fmt.Errorf("unknown signal %q", s)
}

// Outcome says what a signal did to the session.
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeCounted    Outcome = "counted"
	OutcomeSuppressed Outcome = "suppressed"
)

// FullscreenRequester is the environment's exclusive-display control.
// A refused request is not fatal; the exam continues without it.
type FullscreenRequester interface {
	RequestFullscreen() error
	ExitFullscreen()
}

// monitor is the observer state of a secure exam. It only exists while the
// exam is in progress; detaching makes every later signal a no-op.
type monitor struct {
	attached       bool
	fullscreenHeld bool
}

func (m *monitor) detach() {
	m.attached = false
	m.fullscreenHeld = false
}

// classify maps a signal to its effect. Fullscreen loss only counts when
// the fullscreen was actually held.
func (m *monitor) classify(sig Signal) (Outcome, ViolationKind) {
	if !m.attached {
		return OutcomeIgnored, ""
	}
	switch sig {
	case SignalHidden:
		return OutcomeCounted, ViolationTabSwitch
	case SignalFullscreenLost:
		if !m.fullscreenHeld {
			return OutcomeIgnored, ""
		}
		m.fullscreenHeld = false
		return OutcomeCounted, ViolationFullscreenExit
	case SignalFullscreenEntered:
		m.fullscreenHeld = true
		return OutcomeIgnored, ""
	case SignalCopy, SignalPaste, SignalContextMenu:
		return OutcomeSuppressed, ""
	}
	return OutcomeIgnored, ""
}

func suppressedMessage(sig Signal) string {
	switch sig {
	case SignalCopy:
		return "Copying is disabled during the exam."
	case SignalPaste:
		return "Pasting is disabled during the exam."
	default:
		return "That action is disabled during the exam."
	}
}
