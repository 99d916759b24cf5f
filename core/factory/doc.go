// Package factory provides a small generic registry used to instantiate
// components from configuration. Entries are keyed by a reference string and
// hold a factory function; callers look the function up by the reference found
// in the configuration and invoke it with their own inputs. Decode turns raw
// settings into typed structs.
//
// Example usage:
//
//	reg := factory.NewRegistry[factory.Factory[io.Reader]]()
//	_ = reg.Register("file", func(conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(c.Path)
//	})
//	r, err := factory.Create(reg, factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "foo"}})
package factory
