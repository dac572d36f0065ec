package spec

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeNodes deep-merges override into base in place. Mappings are merged
// key by key with override precedence; every other node (scalars, sequences,
// or a type change) replaces the base value outright. Base key order is kept
// and new keys are appended in override order.
func mergeNodes(base, override *yaml.Node) error {
	if base == nil || override == nil {
		return fmt.Errorf("nil node")
	}
	if override.Kind == yaml.DocumentNode {
		if len(override.Content) == 0 {
			return nil
		}
		override = override.Content[0]
	}
	if override.Kind == yaml.AliasNode && override.Alias != nil {
		override = override.Alias
	}
	if base.Kind != yaml.MappingNode || override.Kind != yaml.MappingNode {
		*base = *override
		return nil
	}
	for i := 0; i+1 < len(override.Content); i += 2 {
		key, value := override.Content[i], override.Content[i+1]
		if existing := mappingValue(base, key.Value); existing != nil {
			if err := mergeNodes(existing, value); err != nil {
				return fmt.Errorf("%s: %w", key.Value, err)
			}
			continue
		}
		base.Content = append(base.Content, key, value)
	}
	return nil
}

// mappingValue returns the value node stored under key, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// applyBasePath prefixes every key under paths with x-fern-base-path.
func applyBasePath(root *yaml.Node) {
	base := mappingValue(root, "x-fern-base-path")
	if base == nil || strings.TrimSpace(base.Value) == "" {
		return
	}
	paths := mappingValue(root, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return
	}
	prefix := strings.TrimRight(strings.TrimSpace(base.Value), "/")
	for i := 0; i < len(paths.Content); i += 2 {
		paths.Content[i].Value = prefix + paths.Content[i].Value
	}
}
