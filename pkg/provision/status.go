package provision

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/clusterstor-tools/clusterstor/pkg/intent"
	"github.com/clusterstor-tools/clusterstor/pkg/posix"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// Aspects of a directory reported by Status.
const (
	AspectExists      = "exists"
	AspectDirStripe   = "dirstripe"
	AspectStriping    = "striping"
	AspectProjectID   = "project_id"
	AspectOwner       = "owner"
	AspectGroup       = "group"
	AspectPermissions = "permissions"
	AspectQuota       = "quota"
	AspectUsage       = "usage"
)

// Check is one verified aspect of a directory.
type Check struct {
	Aspect string `json:"aspect" yaml:"aspect"`
	Want   string `json:"want,omitempty" yaml:"want,omitempty"`
	Got    string `json:"got" yaml:"got"`
	OK     bool   `json:"ok" yaml:"ok"`
}

// Report is the verified state of one directory.
type Report struct {
	Kind   intent.Kind `json:"kind" yaml:"kind"`
	Name   string      `json:"name" yaml:"name"`
	Path   string      `json:"path" yaml:"path"`
	Checks []Check     `json:"checks" yaml:"checks"`
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Reports renders as one table row per check.
type Reports []Report

// Headers implements output.TableRenderer.
func (rs Reports) Headers() []string {
	return []string{"PATH", "ASPECT", "WANT", "GOT", "OK"}
}

// Rows implements output.TableRenderer.
func (rs Reports) Rows() [][]string {
	var rows [][]string
	for _, r := range rs {
		for _, c := range r.Checks {
			ok := "yes"
			if !c.OK {
				ok = "NO"
			}
			rows = append(rows, []string{r.Path, c.Aspect, c.Want, c.Got, ok})
		}
	}
	return rows
}

func errCheck(aspect, want string, err error) Check {
	return Check{Aspect: aspect, Want: want, Got: "error: " + err.Error()}
}

// Status verifies every aspect of d without changing anything or asking
// questions. Failed lookups are reported in the checks; only a cancelled
// context is returned as an error.
func (p *Provisioner) Status(ctx context.Context, d intent.DirIntent) (Report, error) {
	r := Report{Kind: d.Kind, Name: d.Name, Path: d.Path}

	exists, err := posix.CheckDir(d.Path)
	if err != nil {
		r.Checks = append(r.Checks, errCheck(AspectExists, "yes", err))
		return r, nil
	}
	if !exists {
		r.Checks = append(r.Checks, Check{Aspect: AspectExists, Want: "yes", Got: "no"})
		return r, nil
	}
	r.Checks = append(r.Checks, Check{Aspect: AspectExists, Want: "yes", Got: "yes", OK: true})

	if d.Striped() {
		want := strconv.Itoa(d.DirStripeCount)
		if n, err := p.lfs.DirStripeCount(ctx, d.Path); err != nil {
			r.Checks = append(r.Checks, errCheck(AspectDirStripe, want, err))
		} else {
			r.Checks = append(r.Checks, Check{Aspect: AspectDirStripe, Want: want, Got: strconv.Itoa(n), OK: n == d.DirStripeCount})
		}
	}

	if s, err := p.lfs.Striping(ctx, d.Path); err != nil {
		r.Checks = append(r.Checks, errCheck(AspectStriping, "reference", err))
	} else {
		ok := strings.TrimSpace(s) == strings.TrimSpace(d.StripeReference)
		got := "matches reference"
		if !ok {
			got = "differs from reference"
		}
		r.Checks = append(r.Checks, Check{Aspect: AspectStriping, Want: "reference", Got: got, OK: ok})
	}

	if !d.Leaf() {
		return r, ctx.Err()
	}

	st, statErr := posix.Stat(d.Path)
	r.Checks = append(r.Checks, p.projectCheck(ctx, d))
	if d.Owner != "" {
		r.Checks = append(r.Checks, p.idCheck(ctx, AspectOwner, d.Owner, st.UID, statErr, p.ids.UserID))
	}
	r.Checks = append(r.Checks, p.idCheck(ctx, AspectGroup, d.Group, st.GID, statErr, p.ids.GroupID))
	if statErr != nil {
		r.Checks = append(r.Checks, errCheck(AspectPermissions, d.Permissions, statErr))
	} else {
		r.Checks = append(r.Checks, Check{Aspect: AspectPermissions, Want: d.Permissions, Got: st.Permissions(), OK: st.Permissions() == d.Permissions})
	}
	r.Checks = append(r.Checks, p.quotaChecks(ctx, d)...)

	return r, ctx.Err()
}

func (p *Provisioner) projectCheck(ctx context.Context, d intent.DirIntent) Check {
	id, err := p.ids.GroupID(ctx, d.Group)
	if err != nil {
		return errCheck(AspectProjectID, d.Group, err)
	}
	want := fmt.Sprintf("%d inherited", id)
	if !p.opts.StrictProjectIDs {
		want = ">0 inherited"
	}

	info, err := p.lfs.Project(ctx, d.Path)
	if err != nil {
		return errCheck(AspectProjectID, want, err)
	}
	got := strconv.FormatInt(info.ID, 10)
	if info.Inherit {
		got += " inherited"
	}

	ok := info.ID == int64(id) && info.Inherit
	if !p.opts.StrictProjectIDs {
		ok = info.ID > 0 && info.Inherit
	}
	return Check{Aspect: AspectProjectID, Want: want, Got: got, OK: ok}
}

func (p *Provisioner) idCheck(ctx context.Context, aspect, name string, current uint32, statErr error,
	lookup func(context.Context, string) (uint32, error)) Check {
	if statErr != nil {
		return errCheck(aspect, name, statErr)
	}
	id, err := lookup(ctx, name)
	if err != nil {
		return errCheck(aspect, name, err)
	}
	return Check{
		Aspect: aspect,
		Want:   fmt.Sprintf("%s (%d)", name, id),
		Got:    strconv.FormatUint(uint64(current), 10),
		OK:     current == id,
	}
}

func (p *Provisioner) quotaChecks(ctx context.Context, d intent.DirIntent) []Check {
	want := fmt.Sprintf("%s / %s", quota.Humanize(d.Quota.Bytes), quota.HumanizeCount(d.Quota.Inodes))

	id, err := p.ids.GroupID(ctx, d.Group)
	if err != nil {
		return []Check{errCheck(AspectQuota, want, err)}
	}
	usage, err := p.lfs.ProjectQuota(ctx, d.Path, id)
	if err != nil {
		return []Check{errCheck(AspectQuota, want, err)}
	}

	got := usage.Quota()
	return []Check{
		{
			Aspect: AspectQuota,
			Want:   want,
			Got:    fmt.Sprintf("%s / %s", quota.Humanize(got.Bytes), quota.HumanizeCount(got.Inodes)),
			OK:     got.Equal(d.Quota),
		},
		{
			Aspect: AspectUsage,
			Got:    usageString(usage.ByteUsage, usage.InodeUsage),
			OK:     true,
		},
	}
}

// usageString renders consumption, where zero means nothing used.
func usageString(bytes, inodes string) string {
	b, err := quota.Parse(bytes)
	if err != nil {
		return bytes + " / " + inodes
	}
	i, err := quota.Parse(inodes)
	if err != nil {
		return bytes + " / " + inodes
	}
	return fmt.Sprintf("%s / %s files", humanize.IBytes(b), humanize.Comma(int64(i)))
}
