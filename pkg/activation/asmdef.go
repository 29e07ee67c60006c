package activation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllPlatforms is the exclude list written to disabled assembly definitions
var AllPlatforms = []string{
	"Android",
	"Editor",
	"EmbeddedLinux",
	"GameCoreScarlett",
	"GameCoreXboxOne",
	"iOS",
	"LinuxStandalone64",
	"macOSStandalone",
	"PS4",
	"PS5",
	"QNX",
	"Switch",
	"tvOS",
	"VisionOS",
	"WSA",
	"WebGL",
	"WindowsStandalone32",
	"WindowsStandalone64",
	"XboxOne",
}

// ToggleAssemblyDefinition rewrites the platform lists of an asmdef. Enabled
// assemblies include and exclude nothing; disabled ones exclude every
// platform. Other fields keep their order and values. The bool result reports
// whether the platform lists changed.
func ToggleAssemblyDefinition(data []byte, enabled bool) ([]byte, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to parse asmdef: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, false, fmt.Errorf("asmdef is not a JSON object")
	}
	root := doc.Content[0]

	exclude := []string{}
	if !enabled {
		exclude = AllPlatforms
	}

	changed := setStringList(root, "includePlatforms", []string{})
	changed = setStringList(root, "excludePlatforms", exclude) || changed
	if !changed {
		return data, false, nil
	}

	var b bytes.Buffer
	if err := writeJSON(&b, root, 0); err != nil {
		return nil, false, err
	}
	b.WriteByte('\n')
	return b.Bytes(), true, nil
}

func setStringList(mapping *yaml.Node, key string, values []string) bool {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		if sameStrings(mapping.Content[i+1], values) {
			return false
		}
		mapping.Content[i+1] = seq
		return true
	}

	mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, seq)
	return true
}

func sameStrings(n *yaml.Node, values []string) bool {
	if n.Kind != yaml.SequenceNode || len(n.Content) != len(values) {
		return false
	}
	for i, item := range n.Content {
		if item.Value != values[i] {
			return false
		}
	}
	return true
}

// writeJSON prints a node tree as JSON with four-space indentation, the
// layout Unity uses for asmdef files
func writeJSON(b *bytes.Buffer, n *yaml.Node, depth int) error {
	pad := func(d int) { b.WriteString(strings.Repeat("    ", d)) }

	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteString("{\n")
		for i := 0; i+1 < len(n.Content); i += 2 {
			pad(depth + 1)
			if err := writeString(b, n.Content[i].Value); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := writeJSON(b, n.Content[i+1], depth+1); err != nil {
				return err
			}
			if i+2 < len(n.Content) {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		pad(depth)
		b.WriteByte('}')
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteString("[\n")
		for i, item := range n.Content {
			pad(depth + 1)
			if err := writeJSON(b, item, depth+1); err != nil {
				return err
			}
			if i+1 < len(n.Content) {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		pad(depth)
		b.WriteByte(']')
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return writeString(b, n.Value)
		case "!!null":
			b.WriteString("null")
		default:
			b.WriteString(n.Value)
		}
	case yaml.AliasNode:
		return writeJSON(b, n.Alias, depth)
	default:
		return fmt.Errorf("unsupported asmdef node kind %d", n.Kind)
	}
	return nil
}

func writeString(b *bytes.Buffer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}
