package provision

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/lustre"
)

// projectID returns the project ID for name: the GID of the group of that
// name, or the UID of the user when no such group exists. In dry-run mode an
// unknown name yields 0.
func (p *Provisioner) projectID(ctx context.Context, name, path string) (uint32, error) {
	logger.DebugCtx(ctx, "checking group id", logger.Group(name))
	id, err := p.ids.GroupID(ctx, name)
	if err != nil {
		if !p.opts.DryRun {
			logger.ErrorCtx(ctx, "got an error with group name", logger.Group(name), logger.Err(err))
		}
		return 0, p.tolerate(ctx, err, path)
	}
	return id, nil
}

// project returns the project ID of path. In dry-run mode a read error
// yields ID -1 without inheritance.
func (p *Provisioner) project(ctx context.Context, path string) (lustre.ProjectInfo, error) {
	info, err := p.lfs.Project(ctx, path)
	if err != nil {
		return lustre.ProjectInfo{ID: -1}, p.tolerate(ctx, err, path)
	}
	return info, nil
}

// VerifyProjectID reports whether path has a project ID with inheritance.
// In strict mode the ID must equal the project ID of the directory's base
// name; otherwise any positive ID passes.
func (p *Provisioner) VerifyProjectID(ctx context.Context, path string) (bool, error) {
	info, err := p.project(ctx, path)
	if err != nil {
		return false, err
	}

	var ok bool
	if p.opts.StrictProjectIDs {
		want, err := p.projectID(ctx, filepath.Base(path), path)
		if err != nil {
			return false, err
		}
		ok = info.ID == int64(want) && info.Inherit
	} else {
		ok = info.ID > 0 && info.Inherit
	}

	if ok {
		logger.DebugCtx(ctx, "directory has a project ID and inheritance set", logger.Path(path))
		p.skip(ActionSetProject)
		return true, nil
	}

	p.warn(ctx, "Project ID mismatch", "project ID does not seem to be set correctly",
		logger.Path(path), "current_project_id", info.ID, "inherit", info.Inherit)
	return false, p.pause()
}

// SetProjectID assigns the project ID of name to path with inheritance.
func (p *Provisioner) SetProjectID(ctx context.Context, path, name string) (bool, error) {
	id, err := p.projectID(ctx, name, path)
	if err != nil {
		return false, err
	}

	ok, err := p.apply(ctx, p.commandChange(ActionSetProject, path,
		fmt.Sprintf("Setting project ID of directory '%s' to '%d'", path, id), lustre.SetProjectCmd(path, id)))
	if err != nil || ok {
		return ok, err
	}

	p.warn(ctx, "Project ID might not be set correctly", "project ID declined", logger.Path(path), logger.ProjectID(id))
	view, err := p.confirm.Confirm(fmt.Sprintf("Do you want to view the project id information for folder '%s'", path), true)
	if err != nil || !view {
		return false, err
	}
	info, err := p.project(ctx, path)
	if err != nil {
		return false, err
	}
	p.out.Printf("Project ID for folder '%s': '%d'\nInheritance enabled: %t\n\n", path, info.ID, info.Inherit)
	return false, p.pause()
}
