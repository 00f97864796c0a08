// Package intent derives the directories clusterstor manages from the site
// configuration.
package intent

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/config"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// Kind is the role of a managed directory.
type Kind string

const (
	KindDepartment Kind = "department"
	KindProject    Kind = "project"
	KindWorkRoot   Kind = "workroot"
	KindWorkDir    Kind = "workdir"
)

// Permissions of leaf directories.
const (
	ProjectPermissions = "2770"
	WorkDirPermissions = "2700"
)

// DirIntent is the desired state of one directory.
type DirIntent struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	Name       string `json:"name" yaml:"name"`
	Path       string `json:"path" yaml:"path"`
	Mountpoint string `json:"mountpoint" yaml:"mountpoint"`
	// Department is set for projects and departments.
	Department string `json:"department,omitempty" yaml:"department,omitempty"`

	StripeParameters string `json:"stripe_parameters" yaml:"stripe_parameters"`
	StripeReference  string `json:"-" yaml:"-"`

	// DirStripeCount is set for departments and the work root only.
	DirStripeCount int `json:"dirstripe_count,omitempty" yaml:"dirstripe_count,omitempty"`

	// Leaf directory settings, empty for departments and the work root.
	Permissions string      `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	Owner       string      `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group       string      `json:"group,omitempty" yaml:"group,omitempty"`
	Quota       quota.Quota `json:"quota,omitempty" yaml:"quota,omitempty"`
}

// Striped reports whether the directory is created with lfs setdirstripe.
func (d DirIntent) Striped() bool {
	return d.DirStripeCount > 0
}

// Leaf reports whether the directory carries ownership, project ID and quota.
func (d DirIntent) Leaf() bool {
	return d.Kind == KindProject || d.Kind == KindWorkDir
}

// Directory resolves users and groups.
type Directory interface {
	GroupID(ctx context.Context, name string) (uint32, error)
	GroupMembers(ctx context.Context, name string) ([]string, error)
}

// Filter restricts Projects to a department and/or project.
type Filter struct {
	Department string
	Project    string
}

func (f Filter) matchDepartment(name string) bool {
	return f.Department == "" || f.Department == name
}

func (f Filter) matchProject(name string) bool {
	return f.Project == "" || f.Project == name
}

// holdsProject reports whether dept contains the project f names, if any.
func (f Filter) holdsProject(dept config.Department) bool {
	if f.Project == "" {
		return true
	}
	for _, p := range dept.Projects {
		if p.Name == f.Project {
			return true
		}
	}
	return false
}

// Builder turns a site configuration into directory intents.
type Builder struct {
	cfg *config.Config
	dir Directory
}

// NewBuilder returns a Builder over cfg. dir is only needed for work
// directories.
func NewBuilder(cfg *config.Config, dir Directory) *Builder {
	return &Builder{cfg: cfg, dir: dir}
}

func (b *Builder) base(kind Kind, name, path string) DirIntent {
	d := b.cfg.Defaults
	return DirIntent{
		Kind:             kind,
		Name:             name,
		Path:             path,
		Mountpoint:       d.Mountpoint,
		StripeParameters: d.StripeParameters,
		StripeReference:  b.cfg.StripeReference,
	}
}

// Departments returns one dirstriped intent per department matching f. With
// a project filter only departments holding that project are returned.
func (b *Builder) Departments(f Filter) []DirIntent {
	var out []DirIntent
	for _, dept := range b.cfg.ProjectDirs {
		if !f.matchDepartment(dept.Name) || !f.holdsProject(dept) {
			continue
		}
		d := b.base(KindDepartment, dept.Name, filepath.Join(b.cfg.Defaults.Mountpoint, dept.Name))
		d.Department = dept.Name
		d.DirStripeCount = b.cfg.Defaults.DirStripeCount
		out = append(out, d)
	}
	return out
}

// Projects returns one intent per project matching f, in document order.
func (b *Builder) Projects(f Filter) ([]DirIntent, error) {
	var out []DirIntent
	for _, dept := range b.cfg.ProjectDirs {
		if !f.matchDepartment(dept.Name) {
			continue
		}
		for _, p := range dept.Projects {
			if !f.matchProject(p.Name) {
				continue
			}
			q := b.cfg.ProjectQuota(p)
			if err := q.Check(); err != nil {
				return nil, fmt.Errorf("quota for project '%s': %w", p.Name, err)
			}
			d := b.base(KindProject, p.Name, filepath.Join(b.cfg.Defaults.Mountpoint, dept.Name, p.Name))
			d.Department = dept.Name
			d.Permissions = ProjectPermissions
			d.Group = p.Name
			d.Quota = q
			out = append(out, d)
		}
	}
	if len(out) == 0 && (f.Department != "" || f.Project != "") {
		return nil, fmt.Errorf("no project matches department %q project %q", f.Department, f.Project)
	}
	return out, nil
}

// WorkRoot returns the dirstriped directory holding the work directories.
func (b *Builder) WorkRoot() DirIntent {
	name := b.cfg.Defaults.WorkDirName
	d := b.base(KindWorkRoot, name, filepath.Join(b.cfg.Defaults.Mountpoint, name))
	d.DirStripeCount = b.cfg.Defaults.DirStripeCount
	return d
}

func (b *Builder) workDir(user string) (DirIntent, error) {
	q := b.cfg.WorkDirQuota(user)
	if err := q.Check(); err != nil {
		return DirIntent{}, fmt.Errorf("quota for user '%s': %w", user, err)
	}
	d := b.base(KindWorkDir, user, filepath.Join(b.WorkRoot().Path, user))
	d.Permissions = WorkDirPermissions
	d.Owner = user
	d.Group = user
	d.Quota = q
	return d, nil
}

// WorkDirs returns one intent per member of the users group.
func (b *Builder) WorkDirs(ctx context.Context) ([]DirIntent, error) {
	group := b.cfg.Defaults.UsersGroup
	users, err := b.dir.GroupMembers(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %q: %w", group, err)
	}
	logger.DebugCtx(ctx, "users group resolved", logger.Group(group), logger.Count(len(users)))

	out := make([]DirIntent, 0, len(users))
	for _, u := range users {
		d, err := b.workDir(u)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// WorkDir returns the intent for a single user, who must exist.
func (b *Builder) WorkDir(ctx context.Context, user string) (DirIntent, error) {
	if _, err := b.dir.GroupID(ctx, user); err != nil {
		logger.ErrorCtx(ctx, "could not find user", logger.User(user))
		return DirIntent{}, fmt.Errorf("user %q: %w", user, err)
	}
	return b.workDir(user)
}
