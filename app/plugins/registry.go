package plugins

import (
	"github.com/kilianp07/modai/core/factory"
	"github.com/kilianp07/modai/core/module"
)

// Modules maps implementation references used in the "class" key of module
// declarations to their constructors.
var Modules = factory.NewRegistry[module.Constructor]()

// RegisterModule adds a constructor under ref. Registering the same
// reference twice is an error.
func RegisterModule(ref string, ctor module.Constructor) error {
	return Modules.Register(ref, ctor)
}

func mustRegister(ref string, ctor module.Constructor) {
	if err := RegisterModule(ref, ctor); err != nil {
		panic(err)
	}
}
