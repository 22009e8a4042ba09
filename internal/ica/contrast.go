package ica

import (
	"fmt"
	"math"
)

// Contrast is the FastICA nonlinearity: g and its derivative g'
type Contrast interface {
	Name() string
	Eval(u float64) (g, dg float64)
}

// GetContrast returns the named contrast function
func GetContrast(name string) (Contrast, error) {
	switch name {
	case "exp", "":
		return expContrast{}, nil
	case "logcosh":
		return logcoshContrast{}, nil
	case "cube":
		return cubeContrast{}, nil
	default:
		return nil, fmt.Errorf("unknown contrast function: %s", name)
	}
}

// expContrast is g(u) = u·exp(−u²/2), robust to outliers
type expContrast struct{}

func (expContrast) Name() string { return "exp" }

func (expContrast) Eval(u float64) (float64, float64) {
	u2 := u * u
	e := math.Exp(-u2 / 2)
	return u * e, (1 - u2) * e
}

// logcoshContrast is g(u) = tanh(u)
type logcoshContrast struct{}

func (logcoshContrast) Name() string { return "logcosh" }

func (logcoshContrast) Eval(u float64) (float64, float64) {
	th := math.Tanh(u)
	return th, 1 - th*th
}

// cubeContrast is g(u) = u³, the kurtosis-based contrast
type cubeContrast struct{}

func (cubeContrast) Name() string { return "cube" }

func (cubeContrast) Eval(u float64) (float64, float64) {
	return u * u * u, 3 * u * u
}
