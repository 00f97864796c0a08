package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that runs can be
// grepped and aggregated.
const (
	// ========================================================================
	// Run
	// ========================================================================
	KeyRunID     = "run_id"    // Unique ID of a provisioning run
	KeyOperation = "operation" // Subcommand: projects, workdirs, workdir, ...
	KeyDryRun    = "dry_run"   // Changes are printed, not applied
	KeyTarget    = "target"    // Directory currently being provisioned

	// ========================================================================
	// Directories
	// ========================================================================
	KeyPath       = "path"       // Full directory path
	KeyName       = "name"       // Department, project or user name
	KeyKind       = "kind"       // project, workdir, department, workroot
	KeyDepartment = "department" // Owning department
	KeyMode       = "mode"       // Permission bits in octal

	// ========================================================================
	// Actions
	// ========================================================================
	KeyAction  = "action"  // Provisioning step: mkdir, setquota, chown, ...
	KeyOutcome = "outcome" // applied, skipped, declined, failed, planned
	KeyCommand = "command" // Rendered external command line

	// ========================================================================
	// Identities
	// ========================================================================
	KeyUser  = "user"  // Owning user
	KeyGroup = "group" // Owning group
	KeyUID   = "uid"   // Numeric user ID
	KeyGID   = "gid"   // Numeric group ID

	// ========================================================================
	// Lustre
	// ========================================================================
	KeyProjectID   = "project_id"   // Lustre project ID
	KeyStripeCount = "stripe_count" // Directory stripe count
	KeyByteQuota   = "byte_quota"   // Byte limit as configured
	KeyInodeQuota  = "inode_quota"  // Inode limit as configured

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyExitCode   = "exit_code"   // External command exit code
	KeyConfig     = "config"      // Config file in use
	KeyCount      = "count"       // Number of items handled
)

// ============================================================================
// Run
// ============================================================================

// RunID creates a run ID attribute
func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// Operation creates an operation attribute
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DryRun creates a dry-run attribute
func DryRun(on bool) slog.Attr {
	return slog.Bool(KeyDryRun, on)
}

// ============================================================================
// Directories
// ============================================================================

// Path creates a path attribute
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Name creates a name attribute
func Name(n string) slog.Attr {
	return slog.String(KeyName, n)
}

// Kind creates a directory kind attribute
func Kind(k string) slog.Attr {
	return slog.String(KeyKind, k)
}

// Department creates a department attribute
func Department(d string) slog.Attr {
	return slog.String(KeyDepartment, d)
}

// Mode creates a mode attribute formatted as octal
func Mode(m uint32) slog.Attr {
	return slog.String(KeyMode, fmt.Sprintf("%04o", m))
}

// ============================================================================
// Actions
// ============================================================================

// Action creates an action attribute
func Action(a string) slog.Attr {
	return slog.String(KeyAction, a)
}

// Outcome creates an outcome attribute
func Outcome(o string) slog.Attr {
	return slog.String(KeyOutcome, o)
}

// Command creates a command line attribute
func Command(line string) slog.Attr {
	return slog.String(KeyCommand, line)
}

// ============================================================================
// Identities
// ============================================================================

// User creates a user attribute
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// Group creates a group attribute
func Group(name string) slog.Attr {
	return slog.String(KeyGroup, name)
}

// UID creates a user ID attribute
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// GID creates a group ID attribute
func GID(gid uint32) slog.Attr {
	return slog.Any(KeyGID, gid)
}

// ============================================================================
// Lustre
// ============================================================================

// ProjectID creates a project ID attribute
func ProjectID(id uint32) slog.Attr {
	return slog.Any(KeyProjectID, id)
}

// StripeCount creates a stripe count attribute
func StripeCount(n int) slog.Attr {
	return slog.Int(KeyStripeCount, n)
}

// ByteQuota creates a byte quota attribute
func ByteQuota(q string) slog.Attr {
	return slog.String(KeyByteQuota, q)
}

// InodeQuota creates an inode quota attribute
func InodeQuota(q string) slog.Attr {
	return slog.String(KeyInodeQuota, q)
}

// ============================================================================
// Operation Metadata
// ============================================================================

// DurationMs creates a duration attribute in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err creates an error attribute (handles nil errors gracefully)
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ExitCode creates an exit code attribute
func ExitCode(code int) slog.Attr {
	return slog.Int(KeyExitCode, code)
}

// ConfigFile creates a config file attribute
func ConfigFile(path string) slog.Attr {
	return slog.String(KeyConfig, path)
}

// Count creates a count attribute
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}
