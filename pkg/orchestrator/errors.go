package orchestrator

import "github.com/rotisserie/eris"

// The build can only fail in two ways that a caller needs to tell apart:
// the dependency set could not be produced, or the test gate rejected the
// build. Everything else is an ordinary wrapped error.
var (
	ErrDependencyResolution = eris.New("dependency resolution failed")
	ErrTestFailure          = eris.New("test suite failed")
)

// IsResolutionFailure reports whether err stems from lockfile export or
// package installation.
func IsResolutionFailure(err error) bool {
	return eris.Is(err, ErrDependencyResolution)
}

// IsTestFailure reports whether err means the test gate rejected the build.
func IsTestFailure(err error) bool {
	return eris.Is(err, ErrTestFailure)
}
