package quota

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keys of a quota mapping in the site configuration.
const (
	KeyBytes  = "byte_quota"
	KeyInodes = "inode_quota"
)

// Quota is a byte and inode limit pair, each a quota value string.
type Quota struct {
	Bytes  string `mapstructure:"byte_quota" yaml:"byte_quota" json:"byte_quota" jsonschema:"pattern=^[0-9.]+[kMGTPE]?$"`
	Inodes string `mapstructure:"inode_quota" yaml:"inode_quota" json:"inode_quota" jsonschema:"pattern=^[0-9.]+[kMGTPE]?$"`
}

// Default is the quota lfs reports for a project without limits.
var Default = Quota{Bytes: Unlimited, Inodes: Unlimited}

// Check validates both values of the pair.
func (q Quota) Check() error {
	if !Valid(q.Bytes) {
		return fmt.Errorf("%w: %s %q", ErrInvalidQuota, KeyBytes, q.Bytes)
	}
	if !Valid(q.Inodes) {
		return fmt.Errorf("%w: %s %q", ErrInvalidQuota, KeyInodes, q.Inodes)
	}
	return nil
}

// Absolute returns the pair with both values converted to plain integers.
func (q Quota) Absolute() (Quota, error) {
	b, err := Normalize(q.Bytes)
	if err != nil {
		return Quota{}, fmt.Errorf("%s: %w", KeyBytes, err)
	}
	i, err := Normalize(q.Inodes)
	if err != nil {
		return Quota{}, fmt.Errorf("%s: %w", KeyInodes, err)
	}
	return Quota{Bytes: b, Inodes: i}, nil
}

// Equal compares two pairs after normalisation. Invalid pairs are never equal.
func (q Quota) Equal(other Quota) bool {
	a, err := q.Absolute()
	if err != nil {
		return false
	}
	b, err := other.Absolute()
	if err != nil {
		return false
	}
	return a == b
}

// Map returns the pair as a configuration mapping.
func (q Quota) Map() map[string]string {
	return map[string]string{KeyBytes: q.Bytes, KeyInodes: q.Inodes}
}

func (q Quota) String() string {
	return fmt.Sprintf("%s=%s %s=%s", KeyBytes, q.Bytes, KeyInodes, q.Inodes)
}

// Override is a partial quota; empty fields inherit from the defaults.
type Override struct {
	Bytes  string `yaml:"byte_quota,omitempty" json:"byte_quota,omitempty"`
	Inodes string `yaml:"inode_quota,omitempty" json:"inode_quota,omitempty"`
}

// Merge applies an override on top of defaults.
func Merge(o Override, defaults Quota) Quota {
	q := defaults
	if o.Bytes != "" {
		q.Bytes = o.Bytes
	}
	if o.Inodes != "" {
		q.Inodes = o.Inodes
	}
	return q
}

// FromMap builds a complete quota from a mapping. Both keys are required and
// no other key is accepted. Values may be strings or numbers.
func FromMap(m map[string]any) (Quota, error) {
	o, err := OverrideFromMap(m)
	if err != nil {
		return Quota{}, err
	}
	if o.Bytes == "" {
		return Quota{}, fmt.Errorf("%w: %s is missing", ErrInvalidQuota, KeyBytes)
	}
	if o.Inodes == "" {
		return Quota{}, fmt.Errorf("%w: %s is missing", ErrInvalidQuota, KeyInodes)
	}
	q := Quota{Bytes: o.Bytes, Inodes: o.Inodes}
	return q, q.Check()
}

// OverrideFromMap builds an override from a mapping with a subset of the quota
// keys. A nil mapping is an empty override.
func OverrideFromMap(m map[string]any) (Override, error) {
	var o Override
	var extra []string
	for k, v := range m {
		s, err := stringify(v)
		if err != nil {
			return Override{}, fmt.Errorf("%w: %s: %v", ErrInvalidQuota, k, err)
		}
		switch k {
		case KeyBytes:
			o.Bytes = s
		case KeyInodes:
			o.Inodes = s
		default:
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return Override{}, fmt.Errorf("%w: extraneous keys %s", ErrInvalidQuota, strings.Join(extra, ", "))
	}
	if o.Bytes != "" && !Valid(o.Bytes) {
		return Override{}, fmt.Errorf("%w: %s %q", ErrInvalidQuota, KeyBytes, o.Bytes)
	}
	if o.Inodes != "" && !Valid(o.Inodes) {
		return Override{}, fmt.Errorf("%w: %s %q", ErrInvalidQuota, KeyInodes, o.Inodes)
	}
	return o, nil
}

// stringify renders YAML scalars the way they are written in the document.
func stringify(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return fmt.Sprintf("%d", t), nil
	case int64:
		return fmt.Sprintf("%d", t), nil
	case uint64:
		return fmt.Sprintf("%d", t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("empty value")
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}
