package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/lustre"
)

// striping returns the default layout of path. Read errors are tolerated
// in dry-run mode and yield an empty layout.
func (p *Provisioner) striping(ctx context.Context, path string) (string, error) {
	s, err := p.lfs.Striping(ctx, path)
	if err != nil {
		return "", p.tolerate(ctx, err, path)
	}
	return s, nil
}

// CompareStriping reports whether the layout of path matches reference.
// On mismatch the operator is warned and asked to acknowledge.
func (p *Provisioner) CompareStriping(ctx context.Context, path, reference string) (bool, error) {
	current, err := p.striping(ctx, path)
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(current) == strings.TrimSpace(reference) {
		logger.DebugCtx(ctx, "striping matches the reference striping", logger.Path(path))
		p.skip(ActionSetStripe)
		return true, nil
	}

	p.warn(ctx, "Striping mismatch", "striping does not match the reference striping", logger.Path(path))
	return false, p.pause()
}

// SetStriping applies params as the default layout of path. When declined,
// the operator may inspect the current layout.
func (p *Provisioner) SetStriping(ctx context.Context, path, params string) (bool, error) {
	cmd, err := lustre.SetStripingCmd(path, params)
	if err != nil {
		return false, err
	}

	ok, err := p.apply(ctx, p.commandChange(ActionSetStripe, path,
		fmt.Sprintf("Setting striping for directory '%s'", path), cmd))
	if err != nil || ok {
		return ok, err
	}

	p.warn(ctx, "Striping might not be set correctly", "striping declined", logger.Path(path))
	view, err := p.confirm.Confirm(fmt.Sprintf("Do you want to view the striping information for folder '%s'", path), true)
	if err != nil || !view {
		return false, err
	}
	current, err := p.striping(ctx, path)
	if err != nil {
		return false, err
	}
	p.out.Printf("Striping for folder %s\n\n%s\n\n", path, current)
	return false, p.pause()
}
