// Package router keeps the stack of screens the terminal client navigates.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/screen"
)

type PushScreenMsg struct {
	Screen screen.Screen
}

// PopScreenMsg closes the top screen, or every screen above home when
// ToRoot is set.
type PopScreenMsg struct {
	ToRoot bool
}

// ReplaceScreenMsg swaps the top screen, e.g. setup for the running attempt.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// ResumedMsg is delivered to a screen when the screens above it close, so
// it can refresh anything a finished quiz may have changed.
type ResumedMsg struct{}

// Router is a stack of screens. The bottom screen is never popped.
type Router struct {
	stack []screen.Screen
}

func New(root screen.Screen) *Router {
	return &Router{stack: []screen.Screen{root}}
}

func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

func (r *Router) Pop() tea.Cmd {
	return r.popTo(len(r.stack) - 1)
}

func (r *Router) PopToRoot() tea.Cmd {
	return r.popTo(1)
}

// popTo truncates the stack to n screens and resumes the new top.
func (r *Router) popTo(n int) tea.Cmd {
	if n < 1 || n >= len(r.stack) {
		return nil
	}
	clear(r.stack[n:])
	r.stack = r.stack[:n]
	return r.forward(ResumedMsg{})
}

func (r *Router) Replace(s screen.Screen) tea.Cmd {
	r.stack[len(r.stack)-1] = s
	return s.Init()
}

func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *Router) Depth() int {
	return len(r.stack)
}

// Update applies navigation messages and forwards everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		if msg.ToRoot {
			return r.PopToRoot()
		}
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	}
	return r.forward(msg)
}

func (r *Router) forward(msg tea.Msg) tea.Cmd {
	top := len(r.stack) - 1
	if top < 0 {
		return nil
	}
	updated, cmd := r.stack[top].Update(msg)
	r.stack[top] = updated
	return cmd
}

func (r *Router) View(width, height int) string {
	if s := r.Active(); s != nil {
		return s.View(width, height)
	}
	return ""
}
