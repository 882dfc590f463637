package extension

import (
	"log/slog"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/dumpctx"
)

// ProcessConfigTables gives every extension configuration table a data unit.
// The table's own definition stays suppressed by membership, but its rows
// are user data and are dumped with the extension's filter condition. The
// carve-out holds even when the extension itself is not emitted; only the
// explicit exclusion switches and schema-only runs suppress it.
func ProcessConfigTables(dctx *dumpctx.Context) []*catalog.Unit {
	if dctx.Options.SchemaOnly {
		return nil
	}

	units := dctx.Units
	var created []*catalog.Unit
	for _, ext := range units.All() {
		if ext.Kind != catalog.KindExtension || ext.Extension == nil {
			continue
		}
		info := ext.Extension
		for i, key := range info.ConfigTableKeys {
			tbl, ok := units.FindBySourceKey(key)
			if !ok || tbl.Table == nil {
				dctx.Logger.Debug("skipping unknown extension configuration table",
					slog.String("extension", ext.Name), slog.String("key", key.String()))
				continue
			}
			tbl.Table.Interesting = true

			schema := units.SchemaName(tbl)
			if catalog.MatchesAny(dctx.Options.ExcludeTables, schema, tbl.Name) ||
				catalog.MatchesAny(dctx.Options.ExcludeSchemas, "", schema) {
				continue
			}

			data, ok := units.FindByID(tbl.Table.DataUnit)
			if !ok {
				data = catalog.NewTableDataUnit(tbl)
				units.Register(data)
				tbl.Table.DataUnit = data.ID
				created = append(created, data)
			}
			data.WillEmit = true
			data.TableData.ConfigTable = true
			if i < len(info.ConfigConditions) && info.ConfigConditions[i] != "" {
				data.TableData.Filter = info.ConfigConditions[i]
			}
		}
	}

	dctx.Logger.Debug("processed extension configuration tables", "data_units", len(created))
	return created
}
