package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuota_Absolute(t *testing.T) {
	t.Run("NormalisesBothValues", func(t *testing.T) {
		q := Quota{Bytes: "1G", Inodes: "200k"}

		abs, err := q.Absolute()
		require.NoError(t, err)
		assert.Equal(t, Quota{Bytes: "1073741824", Inodes: "204800"}, abs)
	})

	t.Run("Idempotent", func(t *testing.T) {
		for _, q := range []Quota{
			{Bytes: "10T", Inodes: "1M"},
			{Bytes: "0", Inodes: "0"},
			{Bytes: "1.5k*", Inodes: "12"},
		} {
			once, err := q.Absolute()
			require.NoError(t, err)
			twice, err := once.Absolute()
			require.NoError(t, err)
			assert.Equal(t, once, twice, "quota %v", q)
		}
	})

	t.Run("RejectsInvalidValue", func(t *testing.T) {
		_, err := Quota{Bytes: "1G", Inodes: "lots"}.Absolute()
		assert.ErrorIs(t, err, ErrInvalidQuota)
		assert.Contains(t, err.Error(), KeyInodes)
	})
}

func TestQuota_Equal(t *testing.T) {
	assert.True(t, Quota{Bytes: "1G", Inodes: "1k"}.Equal(Quota{Bytes: "1073741824", Inodes: "1024"}))
	assert.True(t, Quota{Bytes: "10T", Inodes: "0"}.Equal(Quota{Bytes: "10T*", Inodes: "0"}))
	assert.False(t, Quota{Bytes: "1G", Inodes: "1k"}.Equal(Quota{Bytes: "2G", Inodes: "1k"}))
	assert.False(t, Quota{Bytes: "bad", Inodes: "0"}.Equal(Quota{Bytes: "bad", Inodes: "0"}))
}

func TestQuota_Check(t *testing.T) {
	assert.NoError(t, Default.Check())
	assert.ErrorIs(t, Quota{Bytes: "", Inodes: "0"}.Check(), ErrInvalidQuota)
	assert.ErrorIs(t, Quota{Bytes: "0", Inodes: "1Ki"}.Check(), ErrInvalidQuota)

	// Everything Check accepts must also convert.
	for _, q := range []Quota{{Bytes: "1.2.3", Inodes: "0"}, {Bytes: "0", Inodes: "."}} {
		assert.ErrorIs(t, q.Check(), ErrInvalidQuota)
		_, err := q.Absolute()
		assert.ErrorIs(t, err, ErrInvalidQuota)
	}
}

func TestMerge(t *testing.T) {
	defaults := Quota{Bytes: "1T", Inodes: "200k"}

	assert.Equal(t, defaults, Merge(Override{}, defaults))
	assert.Equal(t, Quota{Bytes: "5T", Inodes: "200k"}, Merge(Override{Bytes: "5T"}, defaults))
	assert.Equal(t, Quota{Bytes: "1T", Inodes: "0"}, Merge(Override{Inodes: "0"}, defaults))
	assert.Equal(t, Quota{Bytes: "2T", Inodes: "1M"}, Merge(Override{Bytes: "2T", Inodes: "1M"}, defaults))
}

func TestFromMap(t *testing.T) {
	t.Run("AcceptsStringsAndNumbers", func(t *testing.T) {
		q, err := FromMap(map[string]any{KeyBytes: "10T", KeyInodes: 0})
		require.NoError(t, err)
		assert.Equal(t, Quota{Bytes: "10T", Inodes: "0"}, q)
	})

	t.Run("RequiresBothKeys", func(t *testing.T) {
		_, err := FromMap(map[string]any{KeyBytes: "10T"})
		assert.ErrorIs(t, err, ErrInvalidQuota)
		assert.Contains(t, err.Error(), KeyInodes)

		_, err = FromMap(nil)
		assert.ErrorIs(t, err, ErrInvalidQuota)
	})

	t.Run("RejectsExtraneousKeys", func(t *testing.T) {
		_, err := FromMap(map[string]any{KeyBytes: "1", KeyInodes: "1", "file_quota": "1", "a": 1})
		require.ErrorIs(t, err, ErrInvalidQuota)
		assert.Contains(t, err.Error(), "a, file_quota")
	})

	t.Run("RejectsInvalidValues", func(t *testing.T) {
		_, err := FromMap(map[string]any{KeyBytes: "1TB", KeyInodes: "1"})
		assert.ErrorIs(t, err, ErrInvalidQuota)
	})
}

func TestOverrideFromMap(t *testing.T) {
	o, err := OverrideFromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, Override{}, o)

	o, err = OverrideFromMap(map[string]any{KeyInodes: 500000})
	require.NoError(t, err)
	assert.Equal(t, Override{Inodes: "500000"}, o)

	o, err = OverrideFromMap(map[string]any{KeyBytes: 1.5})
	require.NoError(t, err)
	assert.Equal(t, Override{Bytes: "1.5"}, o)

	_, err = OverrideFromMap(map[string]any{KeyBytes: nil})
	assert.ErrorIs(t, err, ErrInvalidQuota)

	_, err = OverrideFromMap(map[string]any{"bytes": "1G"})
	assert.ErrorIs(t, err, ErrInvalidQuota)
}
