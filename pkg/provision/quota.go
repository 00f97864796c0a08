package provision

import (
	"context"
	"fmt"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/lustre"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// VerifyQuota reports whether the project quota of name on path equals q.
func (p *Provisioner) VerifyQuota(ctx context.Context, path, name string, q quota.Quota) (bool, error) {
	logger.DebugCtx(ctx, "verifying quota", logger.Path(path), logger.Name(name))

	want, err := q.Absolute()
	if err != nil {
		return false, p.tolerate(ctx, err, path)
	}

	id, err := p.projectID(ctx, name, path)
	if err != nil {
		return false, err
	}

	usage, err := p.lfs.ProjectQuota(ctx, path, id)
	if err := p.tolerate(ctx, err, path); err != nil {
		return false, err
	}

	got, err := usage.Quota().Absolute()
	if err != nil {
		return false, p.tolerate(ctx, err, path)
	}

	if got != want {
		logger.InfoCtx(ctx, "quota does not match the expected quota",
			logger.Path(path),
			"set_byte_quota", got.Bytes, "expected_byte_quota", want.Bytes,
			"set_inode_quota", got.Inodes, "expected_inode_quota", want.Inodes)
		return false, nil
	}

	logger.DebugCtx(ctx, "quota is set correctly", logger.Path(path))
	p.skip(ActionSetQuota)
	return true, nil
}

// SetQuota sets equal soft and hard limits q for the project of name.
func (p *Provisioner) SetQuota(ctx context.Context, path, name string, q quota.Quota) (bool, error) {
	if err := q.Check(); err != nil {
		logger.ErrorCtx(ctx, "error encountered while setting project quota", logger.Path(path), logger.Err(err))
		if p.opts.DryRun {
			logger.ErrorCtx(ctx, "dry run enabled, continuing despite of errors")
			return true, nil
		}
		return false, err
	}

	id, err := p.projectID(ctx, name, path)
	if err != nil {
		return false, err
	}

	return p.apply(ctx, p.commandChange(ActionSetQuota, path,
		fmt.Sprintf("Setting project quota of directory '%s'", path), lustre.SetProjectQuotaCmd(path, id, q)))
}
