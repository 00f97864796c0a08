package config

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(label string, defaultYes bool) (bool, error)
}

// WriteOptions control how an edited site configuration is written back.
type WriteOptions struct {
	// DryRun logs instead of writing
	DryRun bool
	// Confirm, when set, is asked before an existing file is overwritten
	Confirm Confirmer
}

// Document is a site configuration held as a YAML node tree, so that
// edits keep comments, key order and formatting of untouched sections.
type Document struct {
	path string
	root yaml.Node
}

// OpenDocument reads the site configuration at path for editing.
func OpenDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	d := &Document{path: path}
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if r := documentRoot(&d.root); r == nil || r.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("problem loading configuration: configuration file '%s' was empty", path)
	}
	return d, nil
}

// Path returns the file the document was read from.
func (d *Document) Path() string {
	return d.path
}

// SetProjectQuota sets the quota override of a project, creating the
// department and project entries when missing. Empty override fields are
// left untouched.
func (d *Document) SetProjectQuota(department, project string, o quota.Override) error {
	if err := checkOverride(o); err != nil {
		return err
	}
	dirs := ensureMapping(documentRoot(&d.root), keyProjectDirs)
	dept := ensureMapping(dirs, department)
	setOverride(ensureMapping(dept, project), o)
	return nil
}

// SetWorkDirQuota sets the quota override of a user's work directory.
func (d *Document) SetWorkDirQuota(user string, o quota.Override) error {
	if err := checkOverride(o); err != nil {
		return err
	}
	dirs := ensureMapping(documentRoot(&d.root), keyWorkDirs)
	setOverride(ensureMapping(dirs, user), o)
	return nil
}

// Check validates the edited document as a site configuration, reusing the
// settings of base for everything outside project_dirs and work_dirs.
func (d *Document) Check(base *Config) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	cfg := *base
	cfg.ProjectDirs = nil
	if err := decodeSections(data, &cfg); err != nil {
		return fmt.Errorf("edited configuration: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return fmt.Errorf("edited configuration is invalid: %w", err)
	}
	return nil
}

// Bytes renders the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores the document at its path. It reports whether the write was
// accepted by the operator; in dry-run mode an accepted write is only logged.
func (d *Document) Write(ctx context.Context, opts WriteOptions) (bool, error) {
	data, err := d.Bytes()
	if err != nil {
		return false, err
	}

	if opts.Confirm != nil {
		if _, err := os.Stat(d.path); err == nil {
			ok, err := opts.Confirm.Confirm(fmt.Sprintf("Overwrite configuration file '%s'?", d.path), true)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}

	if opts.DryRun {
		logger.DebugCtx(ctx, "dry run enabled, configuration not overwritten", logger.ConfigFile(d.path))
		return true, nil
	}

	mode := os.FileMode(0o644)
	if st, err := os.Stat(d.path); err == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(d.path, data, mode); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	logger.InfoCtx(ctx, "configuration written", logger.ConfigFile(d.path))
	return true, nil
}

func checkOverride(o quota.Override) error {
	if o.Bytes == "" && o.Inodes == "" {
		return fmt.Errorf("%w: no quota value given", quota.ErrInvalidQuota)
	}
	if o.Bytes != "" && !quota.Valid(o.Bytes) {
		return fmt.Errorf("%w: %s %q", quota.ErrInvalidQuota, quota.KeyBytes, o.Bytes)
	}
	if o.Inodes != "" && !quota.Valid(o.Inodes) {
		return fmt.Errorf("%w: %s %q", quota.ErrInvalidQuota, quota.KeyInodes, o.Inodes)
	}
	return nil
}

func setOverride(m *yaml.Node, o quota.Override) {
	if o.Bytes != "" {
		setScalar(m, quota.KeyBytes, o.Bytes)
	}
	if o.Inodes != "" {
		setScalar(m, quota.KeyInodes, o.Inodes)
	}
}

// ensureMapping returns the mapping stored under key in m, creating it or
// replacing an empty value.
func ensureMapping(m *yaml.Node, key string) *yaml.Node {
	if v := mappingValue(m, key); v != nil {
		if v.Kind != yaml.MappingNode {
			*v = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", HeadComment: v.HeadComment, LineComment: v.LineComment}
		}
		// Flow style {} would otherwise stay inline after gaining keys
		v.Style &^= yaml.FlowStyle
		return v
	}
	v := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		v,
	)
	return v
}

func setScalar(m *yaml.Node, key, value string) {
	if v := mappingValue(m, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = "!!str"
		v.Value = value
		v.Style = 0
		v.Content = nil
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
