package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warriorguo/dagflow/types"
)

// renderDOT draws the graph with an edge from every dependency to its
// dependent. When a report is given nodes are filled by their outcome.
func renderDOT(nodes []types.NodeInfo, report *types.RunReport) (string, error) {
	renderer := newDAGRenderer()
	return renderer.generateDOT(nodes, report)
}

func newDAGRenderer() *dagRenderer {
	return &dagRenderer{nil, &strings.Builder{}}
}

type dagRenderer struct {
	outcomes map[string]types.NodeOutcome
	sb       *strings.Builder
}

func (d *dagRenderer) setReport(report *types.RunReport) {
	d.outcomes = make(map[string]types.NodeOutcome)
	if report == nil {
		return
	}
	for _, o := range report.Outcomes {
		d.outcomes[o.Name] = o
	}
}

func (d *dagRenderer) generateDOT(nodes []types.NodeInfo, report *types.RunReport) (string, error) {
	d.setReport(report)

	d.write("digraph D {")
	for _, n := range nodes {
		d.drawNode(n.Name)
	}
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			d.write("%s -> %s", quoteString(dep), quoteString(n.Name))
		}
	}
	if report != nil {
		d.write("label=%s", quoteString("run "+report.RunID))
	}
	d.write("}")
	return d.sb.String(), nil
}

func packToComment(o types.NodeOutcome) string {
	s, _ := json.Marshal(o)
	return formatNL(addSlashes(string(s)))
}

func statusColor(status types.StatusType) string {
	switch status {
	case types.Completed:
		return "green"
	case types.Failed:
		return "red"
	case types.Running:
		return "yellow"
	case types.Skipped:
		return "lightgrey"
	default:
		return "white"
	}
}

func (d *dagRenderer) calcAttr(name string) string {
	o, exists := d.outcomes[name]
	if !exists {
		return ""
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\" comment=\"%s\"", statusColor(o.Status), packToComment(o))
}

func (d *dagRenderer) drawNode(name string) {
	d.write("%s [label=%s shape=\"record\"%s]", quoteString(name), quoteString(name), d.calcAttr(name))
}

func (d *dagRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

var (
	slashesToken = []string{"\\", "\"", "'", " "}
)

func addSlashes(s string) string {
	for _, token := range slashesToken {
		s = strings.ReplaceAll(s, token, "\\"+token)
	}
	return s
}

func formatNL(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}
