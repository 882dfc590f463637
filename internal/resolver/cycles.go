package resolver

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dag"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

const (
	guidanceTableData = "there are circular foreign-key constraints among these tables; " +
		"restore with --disable-triggers, or use a full dump instead of a data-only dump"
	guidanceGeneric = "check the listed objects for mutual references"
)

// reportCycles turns the sorter's cycle records into reports, drops every
// broken edge from the unit it belonged to and logs what happened.
func reportCycles(dctx *dumpctx.Context, cycles []dag.Cycle) []CycleReport {
	units := dctx.Units
	reports := make([]CycleReport, 0, len(cycles))

	for _, c := range cycles {
		rep := CycleReport{IDs: c.Nodes, Repaired: c.Repaired}
		allData := true
		for _, id := range c.Nodes {
			u, ok := units.FindByID(id)
			if !ok {
				continue
			}
			rep.Units = append(rep.Units, describe(dctx, u))
			if u.Kind != catalog.KindTableData {
				allData = false
			}
		}

		if c.Repaired {
			reports = append(reports, rep)
			continue
		}

		rep.Broken = &BrokenEdge{Dependent: c.Broken.Dependent, Dependency: c.Broken.Dependency}
		if u, ok := units.FindByID(c.Broken.Dependent); ok {
			units.RemoveDependency(u, c.Broken.Dependency)
		}
		rep.Guidance = guidanceGeneric
		if allData {
			rep.Guidance = guidanceTableData
		}

		dctx.Logger.Warn("could not resolve dependency loop among these items",
			slog.Any("units", rep.Units),
			slog.Int("dependent", int(c.Broken.Dependent)),
			slog.Int("dependency", int(c.Broken.Dependency)))
		dctx.Logger.Warn(rep.Guidance)
		reports = append(reports, rep)
	}
	return reports
}

// describe renders a unit the way cycle reports list it.
func describe(dctx *dumpctx.Context, u *catalog.Unit) string {
	return fmt.Sprintf("%s %s (ID %d)", u.Kind, dctx.Units.QualifiedName(u), u.ID)
}
