package controller

import (
	"fmt"

	"github.com/controlkit/ctrlsim/internal/sim"
)

// Names lists the selectable controller variants in display order.
var Names = []string{
	"p", "p_adaptive",
	"pd", "pd_adaptive",
	"pi", "pi_adaptive",
	"pid", "pid_adaptive",
}

// New builds a controller by name with fresh zeroed state.
func New(name string, params Params) (sim.Controller, error) {
	switch name {
	case "p":
		return NewP(params), nil
	case "p_adaptive":
		return NewAdaptiveP(params), nil
	case "pd":
		return NewPD(params), nil
	case "pd_adaptive":
		return NewAdaptivePD(params), nil
	case "pi":
		return NewPI(params), nil
	case "pi_adaptive":
		return NewAdaptivePI(params), nil
	case "pid":
		return NewPID(params), nil
	case "pid_adaptive":
		return NewAdaptivePID(params), nil
	default:
		return nil, fmt.Errorf("%w: unknown controller %q", sim.ErrInvalidParameter, name)
	}
}
