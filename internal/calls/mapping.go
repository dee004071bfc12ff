package calls

import (
	"fmt"

	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
)

// argumentMapping assigns call arguments to parameters.
type argumentMapping struct {
	// byParam holds the argument indices per parameter.
	byParam [][]int
	// param is the parameter index per argument, -1 when unmapped.
	param      []int
	usesVararg bool
	problems   []Problem
}

// mapArguments follows the positional-then-named rules: positional
// arguments fill parameters in order until the first named argument, a
// vararg parameter swallows every remaining positional argument, and
// parameters without a value must have a default or be vararg.
func mapArguments(nt *names.Table, call *Call, params []*descriptors.ValueParameter) argumentMapping {
	m := argumentMapping{
		byParam: make([][]int, len(params)),
		param:   make([]int, len(call.Args)),
	}
	for i := range m.param {
		m.param[i] = -1
	}
	named := false
	next := 0
	for i, arg := range call.Args {
		if arg.Name != names.NoName {
			named = true
			idx := paramByName(params, arg.Name)
			if idx < 0 {
				m.problem(diag.TypNamedParameterNotFound, arg, fmt.Sprintf("cannot find a parameter with this name: %s", nt.MustLookup(arg.Name)))
				continue
			}
			if len(m.byParam[idx]) > 0 {
				m.problem(diag.TypArgumentPassedTwice, arg, fmt.Sprintf("an argument is already passed for parameter %s", nt.MustLookup(arg.Name)))
				continue
			}
			m.assign(i, idx, params[idx], arg)
			continue
		}
		if named {
			m.problem(diag.TypMixingNamedAndPositional, arg, "mixing named and positional arguments is not allowed")
			continue
		}
		if next >= len(params) {
			m.problem(diag.TypTooManyArguments, arg, "too many arguments")
			continue
		}
		m.assign(i, next, params[next], arg)
		if !params[next].IsVararg() {
			next++
		}
	}
	for idx, p := range params {
		if len(m.byParam[idx]) > 0 {
			continue
		}
		switch {
		case p.IsVararg():
			m.usesVararg = true
		case p.HasDefault():
		default:
			m.problems = append(m.problems, Problem{
				Code: diag.TypNoValueForParameter,
				Span: call.Span,
				Msg:  fmt.Sprintf("no value passed for parameter %s", nt.MustLookup(p.Name())),
			})
		}
	}
	return m
}

func (m *argumentMapping) assign(arg, idx int, p *descriptors.ValueParameter, a Argument) {
	if a.Spread && !p.IsVararg() {
		m.problem(diag.TypMismatch, a, "the spread operator is only allowed for a vararg parameter")
		return
	}
	if p.IsVararg() && !a.Spread {
		m.usesVararg = true
	}
	m.byParam[idx] = append(m.byParam[idx], arg)
	m.param[arg] = idx
}

func (m *argumentMapping) problem(code diag.Code, a Argument, msg string) {
	m.problems = append(m.problems, Problem{Code: code, Span: a.Span, Msg: msg})
}

func paramByName(params []*descriptors.ValueParameter, name names.Name) int {
	for i, p := range params {
		if p.Name() == name {
			return i
		}
	}
	return -1
}
