package provision

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterstor-tools/clusterstor/pkg/intent"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

const reference = "lcm_layout_gen: 0\nlcm_entry_count: 2"

func TestStriping(t *testing.T) {
	ctx := context.Background()

	t.Run("CompareMatches", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs getstripe -d --yaml "+path, "\n"+reference+"\n", nil)

		ok, err := f.p.CompareStriping(ctx, path, reference+"\n\n")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, f.ask.Pauses)
	})

	t.Run("CompareMismatch", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs getstripe -d --yaml "+path, "lcm_entry_count: 1", nil)

		ok, err := f.p.CompareStriping(ctx, path, reference)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, f.ask.Pauses)
		assert.Contains(t, f.out.String(), "WARNING: Striping mismatch")
	})

	t.Run("Set", func(t *testing.T) {
		f := newFixture(t, Options{}, true)
		path := newDir(t, true)

		ok, err := f.p.SetStriping(ctx, path, "-E 64K -L mdt -E -1 -c 1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"lfs setstripe -E 64K -L mdt -E -1 -c 1 " + path}, f.rec.Lines())
	})

	t.Run("DeclinedShowsCurrent", func(t *testing.T) {
		f := newFixture(t, Options{}, false, true)
		path := newDir(t, true)
		f.rec.On("lfs getstripe -d --yaml "+path, "lcm_entry_count: 1", nil)

		ok, err := f.p.SetStriping(ctx, path, "-c 1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{"lfs getstripe -d --yaml " + path}, f.rec.Lines())
		assert.Contains(t, f.out.String(), "WARNING: Striping might not be set correctly")
		assert.Contains(t, f.out.String(), "lcm_entry_count: 1")
		assert.Equal(t, 1, f.ask.Pauses)
	})
}

func TestProjectID(t *testing.T) {
	ctx := context.Background()

	t.Run("VerifyLoose", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs project -d "+path, "  77 P "+path, nil)

		ok, err := f.p.VerifyProjectID(ctx, path)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("VerifyStrict", func(t *testing.T) {
		f := newFixture(t, Options{StrictProjectIDs: true})
		path := newDir(t, true) // base name "lab" has GID 3001
		f.rec.On("lfs project -d "+path, "  77 P "+path, nil)

		ok, err := f.p.VerifyProjectID(ctx, path)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, f.out.String(), "WARNING: Project ID mismatch")
		assert.Equal(t, 1, f.ask.Pauses)

		f.rec.On("lfs project -d "+path, "3001 P "+path, nil)
		ok, err = f.p.VerifyProjectID(ctx, path)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("VerifyNoInheritance", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs project -d "+path, "3001 - "+path, nil)

		ok, err := f.p.VerifyProjectID(ctx, path)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Set", func(t *testing.T) {
		f := newFixture(t, Options{}, true)
		path := newDir(t, true)

		ok, err := f.p.SetProjectID(ctx, path, "lab")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"lfs project -p 3001 -s " + path}, f.rec.Lines())
		assert.Contains(t, f.ask.Asked[0], "to '3001'")
	})

	t.Run("SetUnknownNameDryRun", func(t *testing.T) {
		f := newFixture(t, Options{DryRun: true}, true)
		path := newDir(t, true)

		ok, err := f.p.SetProjectID(ctx, path, "nobody")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, f.rec.Lines())
	})

	t.Run("DeclinedShowsCurrent", func(t *testing.T) {
		f := newFixture(t, Options{}, false, true)
		path := newDir(t, true)
		f.rec.On("lfs project -d "+path, "0 - "+path, nil)

		ok, err := f.p.SetProjectID(ctx, path, "lab")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, f.out.String(), "Project ID for folder '"+path+"': '0'")
		assert.Contains(t, f.out.String(), "Inheritance enabled: false")
	})
}

func TestQuota(t *testing.T) {
	ctx := context.Background()
	want := quota.Quota{Bytes: "10T", Inodes: "1M"}

	t.Run("VerifyMatches", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs quota -q -h -p 3001 "+path, path+"\n 4k 10T 10T - 1 1024k 1024k -\n", nil)

		ok, err := f.p.VerifyQuota(ctx, path, "lab", want)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("VerifyDefaultQuota", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs quota -q -h -p 3001 "+path, "Project 3001 is using default block quota setting", nil)

		ok, err := f.p.VerifyQuota(ctx, path, "lab", want)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = f.p.VerifyQuota(ctx, path, "lab", quota.Default)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("VerifyReadError", func(t *testing.T) {
		path := newDir(t, true)

		f := newFixture(t, Options{})
		f.rec.On("lfs quota -q -h -p 3001 "+path, "", errors.New("quotas disabled"))
		_, err := f.p.VerifyQuota(ctx, path, "lab", want)
		assert.Error(t, err)

		f = newFixture(t, Options{DryRun: true})
		f.rec.On("lfs quota -q -h -p 3001 "+path, "", errors.New("quotas disabled"))
		ok, err := f.p.VerifyQuota(ctx, path, "lab", want)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Set", func(t *testing.T) {
		f := newFixture(t, Options{}, true)
		path := newDir(t, true)

		ok, err := f.p.SetQuota(ctx, path, "lab", want)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{
			"lfs setquota -p 3001 --block-softlimit 10T --block-hardlimit 10T --inode-softlimit 1M --inode-hardlimit 1M " + path,
		}, f.rec.Lines())
	})

	t.Run("SetInvalid", func(t *testing.T) {
		bad := quota.Quota{Bytes: "10X", Inodes: "1M"}

		f := newFixture(t, Options{}, true)
		_, err := f.p.SetQuota(ctx, newDir(t, true), "lab", bad)
		assert.ErrorIs(t, err, quota.ErrInvalidQuota)

		f = newFixture(t, Options{DryRun: true}, true)
		ok, err := f.p.SetQuota(ctx, newDir(t, true), "lab", bad)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, f.rec.Lines())
	})
}

func projectIntent(path string) intent.DirIntent {
	return intent.DirIntent{
		Kind:             intent.KindProject,
		Name:             "lab",
		Path:             path,
		StripeParameters: "-c 1",
		StripeReference:  reference,
		Permissions:      "2770",
		Group:            "lab",
		Quota:            quota.Quota{Bytes: "10T", Inodes: "1M"},
	}
}

func isMutating(line string) bool {
	for _, prefix := range []string{"lfs setstripe", "lfs setdirstripe", "lfs project -p", "lfs setquota", "chown", "chgrp", "chmod"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func TestProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("NewDirectory", func(t *testing.T) {
		f := newFixture(t, Options{AssumeYes: true})
		path := newDir(t, false)

		require.NoError(t, f.p.ProjectDir(ctx, projectIntent(path)))
		assert.DirExists(t, path)
		assert.Equal(t, []string{
			"lfs setstripe -c 1 " + path,
			"lfs project -p 3001 -s " + path,
			"chgrp lab " + path,
			"chmod 2770 " + path,
			"lfs setquota -p 3001 --block-softlimit 10T --block-hardlimit 10T --inode-softlimit 1M --inode-hardlimit 1M " + path,
		}, f.rec.Lines())
		assert.Empty(t, f.ask.Asked)
		assert.Contains(t, f.out.String(), "Working with project: 'lab'")
	})

	t.Run("DryRunChangesNothing", func(t *testing.T) {
		f := newFixture(t, Options{DryRun: true}, true)
		path := newDir(t, false)

		require.NoError(t, f.p.ProjectDir(ctx, projectIntent(path)))
		assert.NoDirExists(t, path)
		for _, line := range f.rec.Lines() {
			assert.False(t, isMutating(line), line)
		}
		assert.Equal(t, []string{
			"mkdir:planned",
			"setstripe:planned",
			"project:planned",
			"chgrp:planned",
			"chmod:planned",
			"setquota:planned",
		}, f.outcomes(t))
	})

	t.Run("ExistingWithoutRedo", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)

		require.NoError(t, f.p.ProjectDir(ctx, projectIntent(path)))
		assert.Empty(t, f.rec.Lines())
		assert.Empty(t, f.ask.Asked)
	})

	t.Run("ExistingRedoQuota", func(t *testing.T) {
		f := newFixture(t, Options{Redo: Redo{Quotas: true}}, true)
		path := newDir(t, true)
		f.rec.On("lfs quota -q -h -p 3001 "+path, path+"\n 4k 5T 5T - 1 1M 1M -\n", nil)

		require.NoError(t, f.p.ProjectDir(ctx, projectIntent(path)))
		assert.Equal(t, []string{
			"lfs quota -q -h -p 3001 " + path,
			"lfs setquota -p 3001 --block-softlimit 10T --block-hardlimit 10T --inode-softlimit 1M --inode-hardlimit 1M " + path,
		}, f.rec.Lines())
	})

	t.Run("ExistingRedoOwnerships", func(t *testing.T) {
		f := newFixture(t, Options{Redo: Redo{Ownerships: true}}, true, true)
		path := newDir(t, true)
		require.NoError(t, os.Chmod(path, 0o700))

		d := projectIntent(path)
		d.Group = "other"
		require.NoError(t, f.p.ProjectDir(ctx, d))
		assert.Equal(t, []string{"chgrp other " + path, "chmod 2770 " + path}, f.rec.Lines())
	})

	t.Run("AbortStopsRun", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.ask.Err = errors.New("interrupted")

		err := f.p.All(ctx, []intent.DirIntent{projectIntent(newDir(t, false)), projectIntent(newDir(t, false))})
		assert.EqualError(t, err, "interrupted")
		assert.Len(t, f.ask.Asked, 1)
	})
}

func TestStripedDirectories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{AssumeYes: true})
	path := newDir(t, false)

	d := intent.DirIntent{
		Kind:             intent.KindDepartment,
		Name:             "lab",
		Path:             path,
		StripeParameters: "-c 1",
		DirStripeCount:   2,
	}
	require.NoError(t, f.p.Provision(ctx, d))
	assert.Equal(t, []string{
		"lfs setdirstripe -c 2 -i -1 " + path,
		"lfs setstripe -c 1 " + path,
	}, f.rec.Lines())

	d.Kind = "bogus"
	assert.Error(t, f.p.Provision(ctx, d))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing", func(t *testing.T) {
		f := newFixture(t, Options{})
		r, err := f.p.Status(ctx, projectIntent(newDir(t, false)))
		require.NoError(t, err)
		assert.False(t, r.OK())
		assert.Equal(t, []Check{{Aspect: AspectExists, Want: "yes", Got: "no"}}, r.Checks)
	})

	t.Run("Project", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		require.NoError(t, os.Chmod(path, os.ModeSetgid|0o770))
		f.rec.On("lfs getstripe -d --yaml "+path, reference, nil)
		f.rec.On("lfs project -d "+path, "3001 P "+path, nil)
		f.rec.On("lfs quota -q -h -p 3001 "+path, path+"\n 4k 10T 10T - 1 1M 1M -\n", nil)

		r, err := f.p.Status(ctx, projectIntent(path))
		require.NoError(t, err)

		byAspect := map[string]Check{}
		for _, c := range r.Checks {
			byAspect[c.Aspect] = c
		}
		assert.True(t, byAspect[AspectExists].OK)
		assert.True(t, byAspect[AspectStriping].OK)
		assert.True(t, byAspect[AspectProjectID].OK)
		assert.Equal(t, "3001 inherited", byAspect[AspectProjectID].Got)
		assert.True(t, byAspect[AspectPermissions].OK)
		assert.True(t, byAspect[AspectQuota].OK)
		assert.Equal(t, "10 TiB / 1,048,576", byAspect[AspectQuota].Want)
		assert.Equal(t, "4.0 KiB / 1 files", byAspect[AspectUsage].Got)
		assert.NotContains(t, byAspect, AspectOwner)
		// The temp dir group is not 3001
		assert.False(t, byAspect[AspectGroup].OK)
		assert.False(t, r.OK())

		rows := Reports{r}.Rows()
		assert.Len(t, rows, len(r.Checks))
		assert.Equal(t, []string{path, AspectExists, "yes", "yes", "yes"}, rows[0])
	})

	t.Run("ProjectIDModes", func(t *testing.T) {
		path := newDir(t, true)
		projectID := func(opts Options) Check {
			f := newFixture(t, opts)
			f.rec.On("lfs project -d "+path, "42 P "+path, nil)
			r, err := f.p.Status(ctx, projectIntent(path))
			require.NoError(t, err)
			for _, c := range r.Checks {
				if c.Aspect == AspectProjectID {
					return c
				}
			}
			t.Fatalf("no %s check", AspectProjectID)
			return Check{}
		}

		loose := projectID(Options{})
		assert.True(t, loose.OK)
		assert.Equal(t, ">0 inherited", loose.Want)
		assert.Equal(t, "42 inherited", loose.Got)

		strict := projectID(Options{StrictProjectIDs: true})
		assert.False(t, strict.OK)
		assert.Equal(t, "3001 inherited", strict.Want)
	})

	t.Run("ReadErrorsAreReported", func(t *testing.T) {
		f := newFixture(t, Options{})
		path := newDir(t, true)
		f.rec.On("lfs getstripe -d --yaml "+path, "", errors.New("not lustre"))

		r, err := f.p.Status(ctx, intent.DirIntent{Kind: intent.KindWorkRoot, Path: path, DirStripeCount: 2})
		require.NoError(t, err)
		require.Len(t, r.Checks, 3)
		assert.Equal(t, AspectDirStripe, r.Checks[1].Aspect)
		assert.Equal(t, "error: not lustre", r.Checks[2].Got)
	})
}
