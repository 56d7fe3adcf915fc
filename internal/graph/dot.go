package graph

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDot renders the file flow of the current walk in Graphviz dot
// syntax. Every file a task reads or writes becomes a vertex; each input of
// a task with a single output gets an edge to that output labelled with the
// task. Inherit tasks own no files and are left out.
func (w *Walker) WriteDot(out io.Writer) error {
	bw := bufio.NewWriter(out)
	fmt.Fprintln(bw, "digraph G {")
	fmt.Fprintln(bw, "  rankdir=LR;")

	seen := map[string]bool{}
	vertex := func(path string) {
		if !seen[path] {
			seen[path] = true
			fmt.Fprintf(bw, "  %q;\n", path)
		}
	}
	for _, t := range w.Tasks() {
		if t.node.Inherit() {
			continue
		}
		inputs := t.node.Inputs().Paths()
		outputs := t.Outputs().Paths()
		for _, p := range inputs {
			vertex(p)
		}
		for _, p := range outputs {
			vertex(p)
		}
		if len(outputs) != 1 {
			continue
		}
		for _, p := range inputs {
			fmt.Fprintf(bw, "  %q -> %q [label=%q];\n", p, outputs[0], t.String())
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
