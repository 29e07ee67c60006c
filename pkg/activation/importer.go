package activation

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Target is a PluginImporter platform entry, e.g. {iPhone iOS}
type Target struct {
	Category string
	Name     string
}

// Importer targets per native plugin folder
var (
	IOSTargets     = []Target{{Category: "iPhone", Name: "iOS"}, {Category: "tvOS", Name: "tvOS"}}
	AndroidTargets = []Target{{Category: "Android", Name: "Android"}}
)

// UpdatePluginImporter rewrites the platformData of a PluginImporter .meta
// file: the Any and Editor entries are disabled and each target is set to
// enabled. Files without a PluginImporter section are returned unchanged.
func UpdatePluginImporter(data []byte, targets []Target, enabled bool) ([]byte, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to parse meta file: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return data, false, nil
	}

	importer := lookup(doc.Content[0], "PluginImporter")
	if importer == nil || importer.Kind != yaml.MappingNode {
		return data, false, nil
	}

	platformData := lookup(importer, "platformData")
	if platformData == nil {
		platformData = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		importer.Content = append(importer.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "platformData"}, platformData)
	}
	if platformData.Kind != yaml.SequenceNode {
		return nil, false, fmt.Errorf("platformData is not a list")
	}

	changed := false
	found := make(map[Target]bool)
	for _, entry := range platformData.Content {
		category, name := entryTarget(entry)
		switch {
		case category == "Any" || category == "Editor":
			changed = setEnabled(entry, false) || changed
		default:
			t := Target{Category: category, Name: name}
			if containsTarget(targets, t) {
				found[t] = true
				changed = setEnabled(entry, enabled) || changed
			}
		}
	}

	if enabled {
		for _, t := range targets {
			if !found[t] {
				platformData.Content = append(platformData.Content, newPlatformEntry(t))
				changed = true
			}
		}
	}

	if !changed {
		return data, false, nil
	}

	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, false, fmt.Errorf("failed to encode meta file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, false, err
	}
	return b.Bytes(), true, nil
}

func entryTarget(entry *yaml.Node) (string, string) {
	first := lookup(entry, "first")
	if first == nil || first.Kind != yaml.MappingNode || len(first.Content) < 2 {
		return "", ""
	}
	return first.Content[0].Value, first.Content[1].Value
}

func setEnabled(entry *yaml.Node, enabled bool) bool {
	want := "0"
	if enabled {
		want = "1"
	}

	second := lookup(entry, "second")
	if second == nil || second.Kind != yaml.MappingNode {
		return false
	}
	value := lookup(second, "enabled")
	if value == nil {
		second.Content = append(second.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "enabled"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: want})
		return true
	}
	if value.Value == want {
		return false
	}
	value.Kind = yaml.ScalarNode
	value.Tag = "!!int"
	value.Value = want
	return true
}

func newPlatformEntry(t Target) *yaml.Node {
	scalar := func(tag, v string) *yaml.Node { return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v} }
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		scalar("!!str", "first"),
		{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{scalar("!!str", t.Category), scalar("!!str", t.Name)}},
		scalar("!!str", "second"),
		{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
			scalar("!!str", "enabled"), scalar("!!int", "1"),
			scalar("!!str", "settings"), {Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle},
		}},
	}}
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func containsTarget(targets []Target, t Target) bool {
	for _, candidate := range targets {
		if candidate == t {
			return true
		}
	}
	return false
}
