// Package quota parses and normalises Lustre project quota values.
//
// A quota value is a decimal number with an optional binary unit suffix and an
// optional trailing asterisk, the way `lfs quota -h` prints it:
//
//	0        unlimited
//	1024     plain count
//	1.5k     1536
//	10T      10 * 1024^4
//	2.1G*    limit exceeded marker, ignored for comparison
//
// Suffixes are case-sensitive and follow lfs: k, M, G, T, P, E.
package quota

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
)

// ErrInvalidQuota is returned for strings that are not quota values.
var ErrInvalidQuota = errors.New("invalid quota value")

// valuePattern matches a quota value: number, unit suffix, exceeded marker.
var valuePattern = regexp.MustCompile(`^(?P<value>[\d.]+)(?P<suffix>[kMGTPE]?)(?P<asterisk>\*?)$`)

// suffixMultipliers maps lfs unit suffixes to their multipliers.
var suffixMultipliers = map[string]float64{
	"":  1,
	"k": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
	"P": 1 << 50,
	"E": 1 << 60,
}

// Unlimited is the quota value lfs uses for "no limit".
const Unlimited = "0"

// Valid reports whether s is a quota value that Parse accepts.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse converts a quota value into an absolute number.
// The fractional part left after applying the multiplier is truncated.
func Parse(s string) (uint64, error) {
	m := valuePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuota, s)
	}

	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuota, s)
	}

	abs := num * suffixMultipliers[m[2]]
	if abs >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidQuota, s)
	}
	return uint64(abs), nil
}

// Normalize returns the absolute form of a quota value as a decimal string.
func Normalize(s string) (string, error) {
	n, err := Parse(s)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(n, 10), nil
}

// Humanize renders a quota value with IEC units, "unlimited" for zero.
// Invalid values are returned unchanged.
func Humanize(s string) string {
	n, err := Parse(s)
	if err != nil {
		return s
	}
	if n == 0 {
		return "unlimited"
	}
	return humanize.IBytes(n)
}

// HumanizeCount renders an inode quota with SI grouping, "unlimited" for zero.
func HumanizeCount(s string) string {
	n, err := Parse(s)
	if err != nil {
		return s
	}
	if n == 0 {
		return "unlimited"
	}
	if n > math.MaxInt64 {
		return s
	}
	return humanize.Comma(int64(n))
}
