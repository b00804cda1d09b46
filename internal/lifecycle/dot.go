package lifecycle

import (
	"bytes"
	"fmt"
)

// DOT renders the machine as Graphviz source. The current state is filled.
func (m *Machine) DOT(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", name)
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for _, s := range m.states {
		attrs := ""
		switch {
		case m.current == s:
			attrs = `, style="rounded,filled", fillcolor=lightblue`
		case s.Final:
			attrs = `, peripheries=2`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", stateName(s), stateName(s), attrs)
	}
	fmt.Fprintf(&buf, "  __start [shape=point];\n  __start -> %q;\n", stateName(m.initial))

	for _, s := range m.states {
		for _, t := range s.Transitions {
			if t == nil {
				continue
			}
			label := t.Label
			if label == "" {
				label = fmt.Sprintf("event %d", t.Event)
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", stateName(s), stateName(t.Target), label)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func stateName(s *State) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("state%d", s.ID)
}
