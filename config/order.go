package config

import "gopkg.in/yaml.v3"

// moduleOrder returns the keys of the top-level modules mapping in document
// order. JSON documents are valid YAML and go through the same path.
func moduleOrder(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "modules" {
			continue
		}
		mods := root.Content[i+1]
		if mods.Kind != yaml.MappingNode {
			return nil, nil
		}
		names := make([]string, 0, len(mods.Content)/2)
		for j := 0; j+1 < len(mods.Content); j += 2 {
			names = append(names, mods.Content[j].Value)
		}
		return names, nil
	}
	return nil, nil
}
