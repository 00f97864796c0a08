package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// Top level keys decoded from the raw document.
const (
	keyProjectDirs = "project_dirs"
	keyWorkDirs    = "work_dirs"
)

// decodeSections fills ProjectDirs and WorkDirs from the raw document,
// keeping key case and document order.
func decodeSections(data []byte, cfg *Config) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	root := documentRoot(&doc)
	if root == nil {
		return errors.New("configuration file is empty")
	}
	if root.Kind != yaml.MappingNode {
		return errors.New("configuration file is not a mapping")
	}

	if node := mappingValue(root, keyProjectDirs); node != nil && !isNull(node) {
		depts, err := decodeProjectDirs(node)
		if err != nil {
			return err
		}
		cfg.ProjectDirs = depts
	}

	cfg.WorkDirs = map[string]quota.Override{}
	if node := mappingValue(root, keyWorkDirs); node != nil && !isNull(node) {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("'%s' is not a dictionary", keyWorkDirs)
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			user := node.Content[i].Value
			o, err := decodeOverride(node.Content[i+1])
			if err != nil {
				return fmt.Errorf("quota for user '%s': %w", user, err)
			}
			cfg.WorkDirs[user] = o
		}
	}

	return nil
}

func decodeProjectDirs(node *yaml.Node) ([]Department, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("'%s' is not a dictionary", keyProjectDirs)
	}

	depts := make([]Department, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		projects := node.Content[i+1]
		if projects.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("department '%s' is not a dictionary", name)
		}

		dept := Department{Name: name}
		for j := 0; j+1 < len(projects.Content); j += 2 {
			project := projects.Content[j].Value
			o, err := decodeOverride(projects.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("quota for project '%s': %w", project, err)
			}
			dept.Projects = append(dept.Projects, Project{Name: project, Quota: o})
		}
		depts = append(depts, dept)
	}
	return depts, nil
}

// decodeOverride decodes a partial quota mapping. An empty value is an
// empty override.
func decodeOverride(node *yaml.Node) (quota.Override, error) {
	if isNull(node) {
		return quota.Override{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return quota.Override{}, fmt.Errorf("%w: not a dictionary", quota.ErrInvalidQuota)
	}
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return quota.Override{}, err
	}
	return quota.OverrideFromMap(m)
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	if doc.Kind == 0 {
		return nil
	}
	return doc
}

// mappingValue returns the value node of key in a mapping node.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
