package router

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/screen"
)

// probe records Init and every message it receives.
type probe struct {
	title   string
	started bool
	msgs    []tea.Msg
}

func (p *probe) Init() tea.Cmd {
	p.started = true
	return nil
}

func (p *probe) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	p.msgs = append(p.msgs, msg)
	return p, nil
}

func (p *probe) View(int, int) string { return p.title }
func (p *probe) Title() string        { return p.title }

func (p *probe) resumed() int {
	n := 0
	for _, m := range p.msgs {
		if _, ok := m.(ResumedMsg); ok {
			n++
		}
	}
	return n
}

func titles(r *Router) string {
	var out []string
	for _, s := range r.stack {
		out = append(out, s.Title())
	}
	return strings.Join(out, ">")
}

func stack(names ...string) (*Router, []*probe) {
	probes := make([]*probe, len(names))
	for i, n := range names {
		probes[i] = &probe{title: n}
	}
	r := New(probes[0])
	for _, p := range probes[1:] {
		r.Push(p)
	}
	return r, probes
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name  string
		start []string
		msg   tea.Msg
		want  string
	}{
		{"push", []string{"home"}, PushScreenMsg{Screen: &probe{title: "quizzes"}}, "home>quizzes"},
		{"pop", []string{"home", "quizzes"}, PopScreenMsg{}, "home"},
		{"pop keeps root", []string{"home"}, PopScreenMsg{}, "home"},
		{"pop to root", []string{"home", "quizzes", "results"}, PopScreenMsg{ToRoot: true}, "home"},
		{"replace top", []string{"home", "setup"}, ReplaceScreenMsg{Screen: &probe{title: "attempt"}}, "home>attempt"},
		{"replace root", []string{"home"}, ReplaceScreenMsg{Screen: &probe{title: "other"}}, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := stack(tt.start...)
			r.Update(tt.msg)
			if got := titles(r); got != tt.want {
				t.Errorf("stack = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPushAndReplaceRunInit(t *testing.T) {
	r, _ := stack("home")
	pushed, replaced := &probe{title: "setup"}, &probe{title: "attempt"}

	r.Update(PushScreenMsg{Screen: pushed})
	r.Update(ReplaceScreenMsg{Screen: replaced})

	if !pushed.started || !replaced.started {
		t.Errorf("Init ran: pushed=%v replaced=%v", pushed.started, replaced.started)
	}
}

func TestPopResumesNewTop(t *testing.T) {
	r, p := stack("home", "recommendations", "results")

	r.Pop()
	if p[1].resumed() != 1 {
		t.Errorf("recommendations resumed %d times, want 1", p[1].resumed())
	}

	r.PopToRoot()
	if p[0].resumed() != 1 {
		t.Errorf("home resumed %d times, want 1", p[0].resumed())
	}

	r.Pop()
	if p[0].resumed() != 1 {
		t.Error("popping at the root must not resume it again")
	}
}

func TestUpdateForwardsToActive(t *testing.T) {
	r, p := stack("home", "attempt")

	r.Update(tea.BlurMsg{})

	if len(p[0].msgs) != 0 {
		t.Error("root should not see messages while covered")
	}
	if len(p[1].msgs) != 1 {
		t.Fatalf("expected 1 forwarded message, got %d", len(p[1].msgs))
	}
	if _, ok := p[1].msgs[0].(tea.BlurMsg); !ok {
		t.Errorf("expected BlurMsg, got %T", p[1].msgs[0])
	}
}
