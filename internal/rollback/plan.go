/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PlanEntry describes what a restore would do to one service.
type PlanEntry struct {
	// Service is the service name.
	Service string

	// CurrentImage is the image reference running now, or "unknown" when
	// the service could not be inspected.
	CurrentImage string

	// TargetImage is the image reference captured in the rollback point.
	TargetImage string

	// ImageChanged reports whether current and target differ.
	ImageChanged bool
}

// Plan is the execution plan for a restore: which services are touched, in
// what start order, which config files come back and whether volumes are
// restored. A dry-run rollback computes and reports the plan without
// performing any mutating action.
type Plan struct {
	PointID     string
	Description string
	CreatedAt   time.Time
	Entries     []PlanEntry
	ConfigFiles []string
	Volumes     []string
	StartOrder  []string
}

// String renders the plan in the human-readable form printed by dry runs and
// shown before interactive confirmation.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rollback plan for %s (%q, created %s)\n",
		p.PointID, p.Description, p.CreatedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "Services (%d):\n", len(p.Entries))
	for _, e := range p.Entries {
		marker := "unchanged"
		if e.ImageChanged {
			marker = fmt.Sprintf("%s -> %s", e.CurrentImage, e.TargetImage)
		}
		fmt.Fprintf(&b, "  %-20s %s\n", e.Service, marker)
	}

	if len(p.ConfigFiles) > 0 {
		files := append([]string(nil), p.ConfigFiles...)
		sort.Strings(files)
		fmt.Fprintf(&b, "Config files restored (%d):\n", len(files))
		for _, f := range files {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}

	if len(p.Volumes) > 0 {
		fmt.Fprintf(&b, "Volumes restored DESTRUCTIVELY (%d): %s\n",
			len(p.Volumes), strings.Join(p.Volumes, ", "))
	} else {
		b.WriteString("No volume restore (not captured with this point)\n")
	}

	fmt.Fprintf(&b, "Start order: %s\n", strings.Join(p.StartOrder, ", "))
	return b.String()
}

// Destructive reports whether executing the plan would destroy current
// volume data.
func (p *Plan) Destructive() bool {
	return len(p.Volumes) > 0
}
