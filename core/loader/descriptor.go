package loader

// Descriptor is the configuration entry describing how to build one module.
type Descriptor struct {
	// Name is the registry key of the module. It is filled from the key of the
	// modules map in the configuration.
	Name string `json:"-"`
	// Class references the implementation in the resolver.
	Class string `json:"class"`
	// Enabled defaults to true when unset.
	Enabled *bool `json:"enabled"`
	// Config is passed verbatim to the constructor.
	Config map[string]any `json:"config"`
	// Dependencies maps a local alias to the name of another module.
	Dependencies map[string]string `json:"module_dependencies"`
}

// IsEnabled reports whether the descriptor takes part in loading.
func (d Descriptor) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

func (d Descriptor) normalized() Descriptor {
	if d.Config == nil {
		d.Config = map[string]any{}
	}
	return d
}
