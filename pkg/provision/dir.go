package provision

import (
	"context"
	"fmt"

	"github.com/clusterstor-tools/clusterstor/internal/cli/prompt"
	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/lustre"
	"github.com/clusterstor-tools/clusterstor/pkg/posix"
)

// exists checks path. In dry-run mode an invalid path is logged and
// reported as missing.
func (p *Provisioner) exists(ctx context.Context, path string) (bool, error) {
	ok, err := posix.CheckDir(path)
	if err != nil {
		return false, p.tolerate(ctx, err, path)
	}
	return ok, nil
}

// requireDir fails unless path is an existing directory. In dry-run mode a
// missing directory is expected after a planned mkdir, so it is only logged.
func (p *Provisioner) requireDir(ctx context.Context, path string) (bool, error) {
	ok, err := p.exists(ctx, path)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, p.tolerate(ctx, fmt.Errorf("%w: %s", posix.ErrNotDirectory, path), path)
	}
	return true, nil
}

// EnsureDir creates path unless it exists. It reports whether the
// directory was created (or would have been, in dry-run mode).
func (p *Provisioner) EnsureDir(ctx context.Context, path string) (bool, error) {
	ok, err := p.exists(ctx, path)
	if err != nil {
		return false, err
	}
	if ok {
		logger.DebugCtx(ctx, "directory already exists, skipping creation", logger.Path(path))
		p.skip(ActionMkdir)
		return false, nil
	}

	return p.apply(ctx, change{
		action:   ActionMkdir,
		path:     path,
		question: fmt.Sprintf("Create directory '%s'?", path),
		cmd:      "mkdir " + path,
		run: func(context.Context) error {
			return posix.Mkdir(path)
		},
	})
}

// EnsureDirStriped creates path striped over count MDTs. An existing
// directory with a different count cannot be fixed in place: the operator is
// warned and asked whether to continue, and ErrAborted is returned if not.
func (p *Provisioner) EnsureDirStriped(ctx context.Context, path string, count int) (bool, error) {
	ok, err := p.exists(ctx, path)
	if err != nil {
		return false, err
	}

	if ok {
		logger.DebugCtx(ctx, "directory already exists, skipping creation", logger.Path(path))
		p.skip(ActionSetDirStripe)

		current, err := p.lfs.DirStripeCount(ctx, path)
		if err != nil {
			return false, p.tolerate(ctx, err, path)
		}
		if current == count {
			return false, nil
		}

		p.warn(ctx, "Dirstripe mismatch!",
			fmt.Sprintf("Dirstripe count for directory '%s' of %d does not match the expected value of %d. "+
				"This will result in performance problems. Please re-create the folder.", path, current, count),
			logger.Path(path), logger.StripeCount(current))

		cont, err := p.confirm.Confirm("Continue with execution?", false)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, prompt.ErrAborted
		}
		return false, nil
	}

	return p.apply(ctx, p.commandChange(ActionSetDirStripe, path,
		"Creating dirstriped directory", lustre.SetDirStripeCmd(path, count)))
}

// EnsureOwner changes the owner of path to user.
func (p *Provisioner) EnsureOwner(ctx context.Context, path, user string) (bool, error) {
	present, err := p.requireDir(ctx, path)
	if err != nil {
		return false, err
	}

	uid, err := p.ids.UserID(ctx, user)
	if err := p.tolerate(ctx, err, path); err != nil {
		return false, err
	}

	if present {
		st, err := posix.Stat(path)
		if err != nil {
			return false, err
		}
		if st.UID == uid {
			logger.DebugCtx(ctx, "directory has correct user ownership", logger.Path(path), logger.UID(uid))
			p.skip(ActionChown)
			return false, nil
		}
	}

	return p.apply(ctx, p.commandChange(ActionChown, path,
		"Setting user ownership", posix.ChownCmd(user, path)))
}

// EnsureGroup changes the group of path to group.
func (p *Provisioner) EnsureGroup(ctx context.Context, path, group string) (bool, error) {
	present, err := p.requireDir(ctx, path)
	if err != nil {
		return false, err
	}

	gid, err := p.ids.GroupID(ctx, group)
	if err := p.tolerate(ctx, err, path); err != nil {
		return false, err
	}

	if present {
		st, err := posix.Stat(path)
		if err != nil {
			return false, err
		}
		if st.GID == gid {
			logger.DebugCtx(ctx, "directory has correct group ownership", logger.Path(path), logger.GID(gid))
			p.skip(ActionChgrp)
			return false, nil
		}
	}

	return p.apply(ctx, p.commandChange(ActionChgrp, path,
		"Setting group ownership", posix.ChgrpCmd(group, path)))
}

// EnsurePermissions sets the mode of path to perms, an octal string such
// as 2770.
func (p *Provisioner) EnsurePermissions(ctx context.Context, path, perms string) (bool, error) {
	present, err := p.requireDir(ctx, path)
	if err != nil {
		return false, err
	}

	if present {
		st, err := posix.Stat(path)
		if err != nil {
			return false, err
		}
		if st.Permissions() == perms {
			logger.DebugCtx(ctx, "directory has correct permissions", logger.Path(path), logger.Mode(st.Mode))
			p.skip(ActionChmod)
			return false, nil
		}
	}

	return p.apply(ctx, p.commandChange(ActionChmod, path,
		"Setting permissions", posix.ChmodCmd(perms, path)))
}
