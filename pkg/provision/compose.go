package provision

import (
	"context"
	"fmt"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/intent"
)

// withTarget tags log records of ctx with the directory being provisioned.
func withTarget(ctx context.Context, d intent.DirIntent) context.Context {
	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext("")
	}
	return logger.WithContext(ctx, lc.WithTarget(d.Path))
}

// ProjectDir provisions a project directory.
func (p *Provisioner) ProjectDir(ctx context.Context, d intent.DirIntent) error {
	p.out.SubHeader(fmt.Sprintf("Working with project: '%s'", d.Name))
	return p.leaf(withTarget(ctx, d), d)
}

// WorkDir provisions a user's work directory.
func (p *Provisioner) WorkDir(ctx context.Context, d intent.DirIntent) error {
	p.out.SubHeader(fmt.Sprintf("Working with user: '%s'", d.Name))
	return p.leaf(withTarget(ctx, d), d)
}

// Department provisions a dirstriped department directory.
func (p *Provisioner) Department(ctx context.Context, d intent.DirIntent) error {
	p.out.SubHeader(fmt.Sprintf("Working with department: '%s'", d.Name))
	return p.striped(withTarget(ctx, d), d)
}

// WorkRoot provisions the dirstriped directory holding the work directories.
func (p *Provisioner) WorkRoot(ctx context.Context, d intent.DirIntent) error {
	p.out.SubHeader(fmt.Sprintf("Working with work directory root: '%s'", d.Name))
	return p.striped(withTarget(ctx, d), d)
}

// Provision dispatches on the kind of d.
func (p *Provisioner) Provision(ctx context.Context, d intent.DirIntent) error {
	switch d.Kind {
	case intent.KindProject:
		return p.ProjectDir(ctx, d)
	case intent.KindWorkDir:
		return p.WorkDir(ctx, d)
	case intent.KindDepartment:
		return p.Department(ctx, d)
	case intent.KindWorkRoot:
		return p.WorkRoot(ctx, d)
	default:
		return fmt.Errorf("unknown directory kind %q", d.Kind)
	}
}

// All provisions every intent in order and stops at the first error.
func (p *Provisioner) All(ctx context.Context, dirs []intent.DirIntent) error {
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Provision(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) striped(ctx context.Context, d intent.DirIntent) error {
	p.metrics.AddDirectory(string(d.Kind))

	created, err := p.EnsureDirStriped(ctx, d.Path, d.DirStripeCount)
	if err != nil {
		return err
	}
	return p.ensureStriping(ctx, d, created)
}

// leaf runs the steps of a project or work directory. A new directory gets
// every step; an existing one only the steps whose redo flag is set and
// whose check fails. Ownerships are redone on the flag alone.
func (p *Provisioner) leaf(ctx context.Context, d intent.DirIntent) error {
	p.metrics.AddDirectory(string(d.Kind))

	created, err := p.EnsureDir(ctx, d.Path)
	if err != nil {
		return err
	}

	if err := p.ensureStriping(ctx, d, created); err != nil {
		return err
	}

	redo := created
	if !redo && p.opts.Redo.ProjectIDs {
		ok, err := p.VerifyProjectID(ctx, d.Path)
		if err != nil {
			return err
		}
		redo = !ok
	}
	if redo {
		if _, err := p.SetProjectID(ctx, d.Path, d.Group); err != nil {
			return err
		}
	}

	if created || p.opts.Redo.Ownerships {
		if d.Owner != "" {
			if _, err := p.EnsureOwner(ctx, d.Path, d.Owner); err != nil {
				return err
			}
		}
		if _, err := p.EnsureGroup(ctx, d.Path, d.Group); err != nil {
			return err
		}
		if _, err := p.EnsurePermissions(ctx, d.Path, d.Permissions); err != nil {
			return err
		}
	}

	redo = created
	if !redo && p.opts.Redo.Quotas {
		ok, err := p.VerifyQuota(ctx, d.Path, d.Group, d.Quota)
		if err != nil {
			return err
		}
		redo = !ok
	}
	if redo {
		if _, err := p.SetQuota(ctx, d.Path, d.Group, d.Quota); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) ensureStriping(ctx context.Context, d intent.DirIntent, created bool) error {
	redo := created
	if !redo && p.opts.Redo.Striping {
		ok, err := p.CompareStriping(ctx, d.Path, d.StripeReference)
		if err != nil {
			return err
		}
		redo = !ok
	}
	if redo {
		_, err := p.SetStriping(ctx, d.Path, d.StripeParameters)
		return err
	}
	return nil
}
