// Package optimize is a small sparse linear program representation and the
// Solver contract used to solve it.
//
// Every variable is continuous and lower-bounded at zero with no upper bound.
// Constraints are linear with a <=, >= or = sense, and the objective is always
// minimized.
package optimize

import "fmt"

// Var is a handle to a model variable.
type Var int

// Term is coefficient * variable.
type Term struct {
	Var  Var
	Coef float64
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Constraint is sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization linear program.
type Model struct {
	name        string
	varNames    []string
	constraints []Constraint
	objective   []Term
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Name is the model name used in exports.
func (m *Model) Name() string {
	return m.name
}

// AddVar adds a non-negative variable and returns its handle.
func (m *Model) AddVar(name string) Var {
	m.varNames = append(m.varNames, name)
	return Var(len(m.varNames) - 1)
}

// AddConstraint appends a constraint. Terms must reference variables of this
// model.
func (m *Model) AddConstraint(c Constraint) error {
	for _, t := range c.Terms {
		if !m.valid(t.Var) {
			return fmt.Errorf("constraint %q: unknown variable %d", c.Name, t.Var)
		}
	}
	m.constraints = append(m.constraints, c)
	return nil
}

// SetObjective replaces the objective terms.
func (m *Model) SetObjective(terms []Term) error {
	for _, t := range terms {
		if !m.valid(t.Var) {
			return fmt.Errorf("objective: unknown variable %d", t.Var)
		}
	}
	m.objective = terms
	return nil
}

// NumVars is the number of variables.
func (m *Model) NumVars() int {
	return len(m.varNames)
}

// VarName returns the name a variable was created with.
func (m *Model) VarName(v Var) string {
	if !m.valid(v) {
		return ""
	}
	return m.varNames[v]
}

// Constraints returns the model constraints. The slice must not be modified.
func (m *Model) Constraints() []Constraint {
	return m.constraints
}

// Objective returns the objective terms. The slice must not be modified.
func (m *Model) Objective() []Term {
	return m.objective
}

// ObjectiveCoefficients returns the dense cost vector, summing repeated terms.
func (m *Model) ObjectiveCoefficients() []float64 {
	c := make([]float64, len(m.varNames))
	for _, t := range m.objective {
		c[t.Var] += t.Coef
	}
	return c
}

func (m *Model) valid(v Var) bool {
	return v >= 0 && int(v) < len(m.varNames)
}
