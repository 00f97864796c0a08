package posix

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clusterstor-tools/clusterstor/internal/command"
	"github.com/clusterstor-tools/clusterstor/internal/logger"
)

// ErrUnknownPrincipal is returned when getent knows neither a group nor a
// user by the given name.
var ErrUnknownPrincipal = errors.New("unknown user or group")

// DefaultCacheSize bounds the number of memoised getent lookups.
const DefaultCacheSize = 65536

// Resolver looks up users and groups with getent. Successful lookups are
// memoised for the lifetime of the Resolver.
type Resolver struct {
	runner command.Runner
	cache  *lru.Cache[string, []string]
}

// NewResolver returns a Resolver running getent through r.
func NewResolver(r command.Runner, size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create getent cache: %w", err)
	}
	return &Resolver{runner: r, cache: cache}, nil
}

// entry returns the colon separated fields of `getent db name`.
func (r *Resolver) entry(ctx context.Context, db, name string) ([]string, error) {
	key := db + ":" + name
	if fields, ok := r.cache.Get(key); ok {
		return fields, nil
	}

	out, err := r.runner.Run(ctx, "getent", db, name)
	if err != nil {
		return nil, err
	}
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Split(line, ":")
	if len(fields) < 3 {
		return nil, fmt.Errorf("unexpected getent %s output for %q: %q", db, name, line)
	}

	r.cache.Add(key, fields)
	return fields, nil
}

func parseID(fields []string, db, name string) (uint32, error) {
	id, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id in getent %s entry for %q: %w", db, name, err)
	}
	return uint32(id), nil
}

// GroupID returns the GID of group name. When no such group exists the UID
// of the user with that name is returned instead.
func (r *Resolver) GroupID(ctx context.Context, name string) (uint32, error) {
	fields, err := r.entry(ctx, "group", name)
	if err == nil {
		return parseID(fields, "group", name)
	}
	logger.DebugCtx(ctx, "getent group failed, trying passwd", logger.Name(name), logger.Err(err))

	fields, err = r.entry(ctx, "passwd", name)
	if err != nil {
		return 0, fmt.Errorf("%w %q: getent group and getent passwd failed: %v", ErrUnknownPrincipal, name, err)
	}
	return parseID(fields, "passwd", name)
}

// UserID returns the UID of user name.
func (r *Resolver) UserID(ctx context.Context, name string) (uint32, error) {
	fields, err := r.entry(ctx, "passwd", name)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrUnknownPrincipal, name, err)
	}
	return parseID(fields, "passwd", name)
}

// GroupMembers returns the supplementary members of group name in getent
// order. Users whose primary group is name are not included.
func (r *Resolver) GroupMembers(ctx context.Context, name string) ([]string, error) {
	fields, err := r.entry(ctx, "group", name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownPrincipal, name, err)
	}
	if len(fields) < 4 || strings.TrimSpace(fields[3]) == "" {
		return nil, nil
	}

	var members []string
	for _, m := range strings.Split(strings.TrimSpace(fields[3]), ",") {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	return members, nil
}
