package optimize

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteLP writes the model in CPLEX LP format. Variable names are only used
// here, for solver interop and debugging.
func (m *Model) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\* %s *\\\n", m.name)
	bw.WriteString("Minimize\n")
	bw.WriteString(" obj:")
	bw.WriteString(m.expr(m.objective))
	bw.WriteString("\nSubject To\n")
	for i, c := range m.constraints {
		name := c.Name
		if name == "" {
			name = "c" + strconv.Itoa(i)
		}
		if len(c.Terms) == 0 {
			fmt.Fprintf(bw, "\\ %s: empty, %s %s\n", lpName(name), c.Sense, formatFloat(c.RHS))
			continue
		}
		fmt.Fprintf(bw, " %s:%s %s %s\n", lpName(name), m.expr(c.Terms), c.Sense, formatFloat(c.RHS))
	}
	bw.WriteString("End\n")

	return bw.Flush()
}

func (m *Model) expr(terms []Term) string {
	var sb strings.Builder
	for _, t := range terms {
		if t.Coef < 0 {
			sb.WriteString(" - ")
			sb.WriteString(formatFloat(-t.Coef))
		} else {
			sb.WriteString(" + ")
			sb.WriteString(formatFloat(t.Coef))
		}
		sb.WriteString(" ")
		sb.WriteString(lpName(m.VarName(t.Var)))
	}
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// lpName replaces characters the LP format does not accept in names.
func lpName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':', '+', '-', '*', '^', '<', '>', '=', '[', ']', '\\':
			return '_'
		}
		return r
	}, s)
}
