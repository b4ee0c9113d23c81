package scheduler

import (
	"github.com/google/uuid"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/resource"
)

// binding is stored in the user data slot of every scheduled context.
type binding struct {
	sched    *Scheduler
	handle   resource.Handle
	retained bool
	aborted  bool
}

type member struct {
	xc   scriptruntime.ExecutionContext
	bind *binding
}

// group is a set of co-routines sharing one turn pointer and one wake timer.
type group struct {
	id        string
	members   []*member
	current   int
	wakeUntil int64
	// since is the tick during which the group was activated.
	since uint64
}

func (g *group) turn() *member {
	if len(g.members) == 0 {
		return nil
	}
	return g.members[g.current]
}

func (g *group) indexOf(m *member) int {
	for i, x := range g.members {
		if x == m {
			return i
		}
	}
	return -1
}

// remove drops the member at i and keeps current pointing at the same
// co-routine, or at the next one when the turn holder itself is removed.
func (g *group) remove(i int) {
	g.members = append(g.members[:i], g.members[i+1:]...)
	if i < g.current {
		g.current--
	}
	if g.current >= len(g.members) {
		g.current = 0
	}
}

func (g *group) advance() {
	if len(g.members) > 0 {
		g.current = (g.current + 1) % len(g.members)
	}
}

func (g *group) reset() {
	clear(g.members)
	g.members = g.members[:0]
	g.current = 0
	g.wakeUntil = 0
	g.id = ""
}

func (s *Scheduler) activate(m *member) *group {
	var g *group
	if n := len(s.free); n > 0 {
		g = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		g = &group{}
	}
	g.id = uuid.NewString()
	g.since = s.ticks
	g.members = append(g.members, m)
	s.groups = append(s.groups, g)
	s.owners[m.bind.handle] = g
	return g
}

func (s *Scheduler) deactivate(g *group) {
	for i, x := range s.groups {
		if x == g {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
	g.reset()
	s.free = append(s.free, g)
}
