package loader

import "errors"

var (
	// ErrAlreadyLoaded is returned when Load is invoked more than once.
	ErrAlreadyLoaded = errors.New("modules already loaded")
	// ErrNoImplementation marks a descriptor without a class reference.
	ErrNoImplementation = errors.New("module has no class defined")
	// ErrNilInstance marks a constructor that returned neither a module nor an error.
	ErrNilInstance = errors.New("constructor returned no module")
	// ErrUnresolvable marks a module whose dependencies never became available.
	ErrUnresolvable = errors.New("unresolvable module dependencies")
	// ErrDuplicateModule marks a descriptor reusing an earlier name.
	ErrDuplicateModule = errors.New("duplicate module name")
)

// Status is the terminal state of a descriptor after Load.
type Status int

const (
	StatusLoaded Status = iota + 1
	StatusDisabled
	StatusFailed
	StatusUnresolvable
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusDisabled:
		return "disabled"
	case StatusFailed:
		return "failed"
	case StatusUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one descriptor. Pass is zero for modules
// decided before resolution started.
type Outcome struct {
	Name   string
	Class  string
	Status Status
	Err    error
	Pass   int
}
