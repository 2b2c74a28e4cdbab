package integration

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// RequirementChecker tells whether a requirement is installed.
type RequirementChecker interface {
	Installed(ctx context.Context, requirement string) (bool, error)
}

// PipChecker asks pip whether a Python package is installed.
type PipChecker struct {
	// Python is the interpreter to run, python3 when empty.
	Python string
}

// Installed runs `python -m pip show requirement`. A missing interpreter is
// an error, a missing package is not.
func (c PipChecker) Installed(ctx context.Context, requirement string) (bool, error) {
	python := c.Python
	if python == "" {
		python = "python3"
	}

	_, err := exec.LookPath(python)
	if err != nil {
		return false, errors.Wrapf(err, "unable to find %s", python)
	}

	cmd := exec.CommandContext(ctx, python, "-m", "pip", "show", "--quiet", requirementName(requirement))
	err = cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}

		return false, errors.Wrapf(err, "unable to run pip for %s", requirement)
	}

	return true, nil
}

// requirementName strips the version specifier of a requirement such as
// scikit-learn>=1.0.
func requirementName(requirement string) string {
	if i := strings.IndexAny(requirement, "<>=!~[; "); i >= 0 {
		return requirement[:i]
	}

	return requirement
}

// StaticChecker treats a fixed set of requirements as installed.
type StaticChecker map[string]bool

func (c StaticChecker) Installed(_ context.Context, requirement string) (bool, error) {
	return c[requirementName(requirement)], nil
}

// AllInstalled is a checker for which every requirement is installed.
type AllInstalled struct{}

func (AllInstalled) Installed(context.Context, string) (bool, error) { return true, nil }
