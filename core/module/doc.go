// Package module defines the construction contract shared by every pluggable
// component of the backend.
//
// A module is built from exactly two inputs: a Dependencies snapshot holding the
// already constructed modules it declared, keyed by local alias, and its raw
// nested configuration. Modules that serve HTTP additionally implement
// WebModule; the host mounts them, the loader never looks at that capability.
package module
