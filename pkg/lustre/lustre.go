// Package lustre drives the lfs command line tool: directory striping,
// file layouts, project IDs and project quotas.
package lustre

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/clusterstor-tools/clusterstor/internal/command"
	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// Program is the lfs executable.
const Program = "lfs"

// Client runs lfs through a command.Runner.
type Client struct {
	runner command.Runner
}

// NewClient returns a Client using r.
func NewClient(r command.Runner) *Client {
	return &Client{runner: r}
}

// ============================================================================
// Directory striping (DNE)
// ============================================================================

// SetDirStripeCmd creates dir striped over count MDTs, starting anywhere.
func SetDirStripeCmd(dir string, count int) command.Cmd {
	return command.New(Program, "setdirstripe", "-c", strconv.Itoa(count), "-i", "-1", dir)
}

// DirStripeCount returns the number of MDTs dir is striped over.
func (c *Client) DirStripeCount(ctx context.Context, dir string) (int, error) {
	out, err := c.runner.Run(ctx, Program, "getdirstripe", "-c", dir)
	if err != nil {
		return -1, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return -1, fmt.Errorf("unexpected lfs getdirstripe output for %q: %q", dir, strings.TrimSpace(out))
	}
	return n, nil
}

// SetDirStripe creates dir as a striped directory.
func (c *Client) SetDirStripe(ctx context.Context, dir string, count int) error {
	_, err := SetDirStripeCmd(dir, count).Run(ctx, c.runner)
	return err
}

// ============================================================================
// File layout
// ============================================================================

// SetStripingCmd applies the default layout described by params to dir.
// params is split with shell quoting rules.
func SetStripingCmd(dir, params string) (command.Cmd, error) {
	args, err := command.Split(params)
	if err != nil {
		return command.Cmd{}, fmt.Errorf("invalid stripe parameters %q: %w", params, err)
	}
	args = append(append([]string{"setstripe"}, args...), dir)
	return command.New(Program, args...), nil
}

// Striping returns the default layout of dir as YAML, trimmed.
func (c *Client) Striping(ctx context.Context, dir string) (string, error) {
	out, err := c.runner.Run(ctx, Program, "getstripe", "-d", "--yaml", dir)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SetStriping applies params as the default layout of dir.
func (c *Client) SetStriping(ctx context.Context, dir, params string) error {
	cmd, err := SetStripingCmd(dir, params)
	if err != nil {
		return err
	}
	_, err = cmd.Run(ctx, c.runner)
	return err
}

// ============================================================================
// Project IDs
// ============================================================================

// ProjectInfo is the project ID of a directory and whether new entries
// inherit it.
type ProjectInfo struct {
	ID      int64 `json:"id" yaml:"id"`
	Inherit bool  `json:"inherit" yaml:"inherit"`
}

// SetProjectCmd assigns id to dir and enables inheritance.
func SetProjectCmd(dir string, id uint32) command.Cmd {
	return command.New(Program, "project", "-p", strconv.FormatUint(uint64(id), 10), "-s", dir)
}

// Project returns the project ID of dir.
func (c *Client) Project(ctx context.Context, dir string) (ProjectInfo, error) {
	out, err := c.runner.Run(ctx, Program, "project", "-d", dir)
	if err != nil {
		return ProjectInfo{ID: -1}, err
	}
	return parseProject(out)
}

// parseProject reads "<id> <P|-> <path>".
func parseProject(out string) (ProjectInfo, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return ProjectInfo{ID: -1}, fmt.Errorf("unexpected lfs project output: %q", strings.TrimSpace(out))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return ProjectInfo{ID: -1}, fmt.Errorf("unexpected project id in lfs project output: %q", fields[0])
	}
	return ProjectInfo{ID: id, Inherit: fields[1] == "P"}, nil
}

// SetProject assigns id to dir with inheritance.
func (c *Client) SetProject(ctx context.Context, dir string, id uint32) error {
	_, err := SetProjectCmd(dir, id).Run(ctx, c.runner)
	return err
}

// ============================================================================
// Project quotas
// ============================================================================

// defaultQuotaMarker appears in lfs quota output when no limit was ever set.
const defaultQuotaMarker = "is using default"

// Usage is the current consumption and limits of a project, as printed by
// lfs quota -h. Values keep the lfs suffixes and exceeded markers.
type Usage struct {
	ByteUsage  string `json:"byte_usage" yaml:"byte_usage"`
	ByteQuota  string `json:"byte_quota" yaml:"byte_quota"`
	InodeUsage string `json:"inode_usage" yaml:"inode_usage"`
	InodeQuota string `json:"inode_quota" yaml:"inode_quota"`
}

// Quota returns the limits as a quota pair.
func (u Usage) Quota() quota.Quota {
	return quota.Quota{Bytes: u.ByteQuota, Inodes: u.InodeQuota}
}

// noQuota is the usage reported for projects without limits.
var noQuota = Usage{ByteUsage: "0", ByteQuota: "0", InodeUsage: "0", InodeQuota: "0"}

// SetProjectQuotaCmd sets equal soft and hard limits for project id on the
// filesystem containing dir.
func SetProjectQuotaCmd(dir string, id uint32, q quota.Quota) command.Cmd {
	return command.New(Program, SetQuotaArgs(dir, id, q)...)
}

// SetQuotaArgs returns the lfs arguments used by SetProjectQuotaCmd.
func SetQuotaArgs(dir string, id uint32, q quota.Quota) []string {
	return []string{
		"setquota", "-p", strconv.FormatUint(uint64(id), 10),
		"--block-softlimit", q.Bytes,
		"--block-hardlimit", q.Bytes,
		"--inode-softlimit", q.Inodes,
		"--inode-hardlimit", q.Inodes,
		dir,
	}
}

// ProjectQuota returns usage and limits of project id.
func (c *Client) ProjectQuota(ctx context.Context, dir string, id uint32) (Usage, error) {
	out, err := c.runner.Run(ctx, Program, "quota", "-q", "-h", "-p", strconv.FormatUint(uint64(id), 10), dir)
	if err != nil {
		return noQuota, err
	}
	u, err := parseQuota(out, dir)
	if err != nil {
		return noQuota, err
	}
	logger.DebugCtx(ctx, "project quota", logger.Path(dir), logger.ProjectID(id),
		logger.ByteQuota(u.ByteQuota), logger.InodeQuota(u.InodeQuota))
	return u, nil
}

// parseQuota reads the last line of lfs quota -q output. The path may be
// printed on its own line or in front of the numbers, so it is removed
// first. Columns are: used, quota, limit, grace, files, quota, limit, grace.
func parseQuota(out, dir string) (Usage, error) {
	if strings.Contains(out, defaultQuotaMarker) {
		return noQuota, nil
	}

	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(out, dir, "")), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 6 {
		return noQuota, fmt.Errorf("unexpected lfs quota output for %q: %q", dir, strings.TrimSpace(out))
	}
	return Usage{
		ByteUsage:  fields[0],
		ByteQuota:  fields[1],
		InodeUsage: fields[4],
		InodeQuota: fields[5],
	}, nil
}

// SetProjectQuota sets the limits of project id.
func (c *Client) SetProjectQuota(ctx context.Context, dir string, id uint32, q quota.Quota) error {
	if err := q.Check(); err != nil {
		return err
	}
	_, err := SetProjectQuotaCmd(dir, id, q).Run(ctx, c.runner)
	return err
}
