package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/fakegridgo/internal/ctxlog"
)

// ValidateRegistry checks that every batch or distinct-values form belongs
// to a capability with a single-value form.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for name, c := range r.capabilities {
		if c.Single != nil {
			continue
		}
		if c.Batch != nil {
			errs = append(errs, fmt.Sprintf("capability '%s': batch form registered without a single-value form", name))
		}
		if c.Unique != nil {
			errs = append(errs, fmt.Sprintf("capability '%s': distinct-values form registered without a single-value form", name))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "capabilities", len(r.Names()))
	return nil
}
