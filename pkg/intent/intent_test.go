package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterstor-tools/clusterstor/pkg/config"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

type fakeDirectory struct {
	members map[string][]string
	ids     map[string]uint32
}

func (f fakeDirectory) GroupID(_ context.Context, name string) (uint32, error) {
	id, ok := f.ids[name]
	if !ok {
		return 0, errors.New("unknown user or group")
	}
	return id, nil
}

func (f fakeDirectory) GroupMembers(_ context.Context, name string) ([]string, error) {
	m, ok := f.members[name]
	if !ok {
		return nil, errors.New("unknown user or group")
	}
	return m, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Defaults: config.Defaults{
			Mountpoint:       "/scratch",
			UsersGroup:       "users",
			WorkDirName:      "work",
			DirStripeCount:   4,
			StripeParameters: "-c 1",
			DefaultQuotas: config.DefaultQuotas{
				Projects: quota.Quota{Bytes: "10T", Inodes: "1M"},
				Workdir:  quota.Quota{Bytes: "1T", Inodes: "200k"},
			},
		},
		ProjectDirs: []config.Department{
			{Name: "physics", Projects: []config.Project{
				{Name: "lab-b", Quota: quota.Override{Bytes: "20T"}},
				{Name: "lab_a"},
			}},
			{Name: "chem", Projects: []config.Project{{Name: "catalysis"}}},
			{Name: "empty"},
		},
		WorkDirs:        map[string]quota.Override{"alice": {Inodes: "500k"}},
		StripeReference: "lcm_entry_count: 2\n",
	}
}

func TestDepartments(t *testing.T) {
	b := NewBuilder(testConfig(), nil)

	depts := b.Departments(Filter{})
	require.Len(t, depts, 3)
	assert.Equal(t, DirIntent{
		Kind:             KindDepartment,
		Name:             "physics",
		Path:             "/scratch/physics",
		Mountpoint:       "/scratch",
		Department:       "physics",
		StripeParameters: "-c 1",
		StripeReference:  "lcm_entry_count: 2\n",
		DirStripeCount:   4,
	}, depts[0])
	assert.True(t, depts[0].Striped())
	assert.False(t, depts[0].Leaf())

	depts = b.Departments(Filter{Department: "chem"})
	require.Len(t, depts, 1)
	assert.Equal(t, "/scratch/chem", depts[0].Path)

	depts = b.Departments(Filter{Project: "catalysis"})
	require.Len(t, depts, 1)
	assert.Equal(t, "chem", depts[0].Name)

	assert.Empty(t, b.Departments(Filter{Department: "physics", Project: "catalysis"}))
	assert.Empty(t, b.Departments(Filter{Project: "nope"}))
}

func TestProjects(t *testing.T) {
	b := NewBuilder(testConfig(), nil)

	projects, err := b.Projects(Filter{})
	require.NoError(t, err)
	require.Len(t, projects, 3)

	p := projects[0]
	assert.Equal(t, KindProject, p.Kind)
	assert.Equal(t, "/scratch/physics/lab-b", p.Path)
	assert.Equal(t, "physics", p.Department)
	assert.Equal(t, "2770", p.Permissions)
	assert.Equal(t, "lab-b", p.Group)
	assert.Empty(t, p.Owner)
	assert.Equal(t, quota.Quota{Bytes: "20T", Inodes: "1M"}, p.Quota)
	assert.False(t, p.Striped())
	assert.True(t, p.Leaf())

	assert.Equal(t, quota.Quota{Bytes: "10T", Inodes: "1M"}, projects[1].Quota)
	assert.Equal(t, "/scratch/chem/catalysis", projects[2].Path)

	t.Run("Filtered", func(t *testing.T) {
		got, err := b.Projects(Filter{Department: "physics", Project: "lab_a"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "/scratch/physics/lab_a", got[0].Path)

		got, err = b.Projects(Filter{Project: "catalysis"})
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("NoMatch", func(t *testing.T) {
		_, err := b.Projects(Filter{Department: "biology"})
		assert.ErrorContains(t, err, "no project matches")
	})

	t.Run("InvalidMergedQuota", func(t *testing.T) {
		cfg := testConfig()
		cfg.Defaults.DefaultQuotas.Projects = quota.Quota{Bytes: "10T"}
		_, err := NewBuilder(cfg, nil).Projects(Filter{Department: "chem"})
		assert.ErrorIs(t, err, quota.ErrInvalidQuota)
	})
}

func TestWorkDirs(t *testing.T) {
	ctx := context.Background()
	dir := fakeDirectory{
		members: map[string][]string{"users": {"alice", "bob"}},
		ids:     map[string]uint32{"alice": 1500},
	}
	b := NewBuilder(testConfig(), dir)

	root := b.WorkRoot()
	assert.Equal(t, KindWorkRoot, root.Kind)
	assert.Equal(t, "/scratch/work", root.Path)
	assert.Equal(t, 4, root.DirStripeCount)

	dirs, err := b.WorkDirs(ctx)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "/scratch/work/alice", dirs[0].Path)
	assert.Equal(t, "2700", dirs[0].Permissions)
	assert.Equal(t, "alice", dirs[0].Owner)
	assert.Equal(t, "alice", dirs[0].Group)
	assert.Equal(t, quota.Quota{Bytes: "1T", Inodes: "500k"}, dirs[0].Quota)
	assert.Equal(t, quota.Quota{Bytes: "1T", Inodes: "200k"}, dirs[1].Quota)
	assert.Zero(t, dirs[0].DirStripeCount)

	t.Run("SingleUser", func(t *testing.T) {
		d, err := b.WorkDir(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, dirs[0], d)

		_, err = b.WorkDir(ctx, "mallory")
		assert.ErrorContains(t, err, `user "mallory"`)
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		cfg := testConfig()
		cfg.Defaults.UsersGroup = "nobody-here"
		_, err := NewBuilder(cfg, dir).WorkDirs(ctx)
		assert.ErrorContains(t, err, "failed to list members")
	})
}
