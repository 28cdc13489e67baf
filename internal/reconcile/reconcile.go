package reconcile

import (
	"sort"

	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// Reconcile applies every provisional to real pair reported in res. Top-level
// collections are flat; nested ones are keyed by the parent id, which may be
// provisional or real. An empty parent key falls back to the command scope.
func Reconcile(rw *Rewriter, res *remote.Result, scope remote.Scope) {
	if res == nil {
		return
	}
	flat(rw, schema.EntitySchema, res.Schemas)
	flat(rw, schema.EntityTable, res.Tables)

	nested(rw, schema.EntityColumn, schema.EntityTable, res.Columns, scope.TableID)
	nested(rw, schema.EntityIndex, schema.EntityTable, res.Indexes, scope.TableID)
	nested(rw, schema.EntityConstraint, schema.EntityTable, res.Constraints, scope.TableID)
	nested(rw, schema.EntityRelationship, schema.EntityTable, res.Relationships, scope.TableID)
	nested(rw, schema.EntityIndexColumn, schema.EntityIndex, res.IndexColumns, scope.IndexID)
	nested(rw, schema.EntityConstraintColumn, schema.EntityConstraint, res.ConstraintColumns, scope.ConstraintID)
	nested(rw, schema.EntityRelationshipColumn, schema.EntityRelationship, res.RelationshipColumns, scope.RelationshipID)
}

func flat(rw *Rewriter, typ schema.EntityType, pairs map[string]string) {
	for _, prov := range sortedKeys(pairs) {
		rw.Remap(typ, prov, pairs[prov])
	}
}

func nested(rw *Rewriter, typ, parentType schema.EntityType, byParent remote.Nested, fallback string) {
	for _, parent := range sortedKeys(byParent) {
		for _, prov := range sortedKeys(byParent[parent]) {
			rw.Remap(typ, prov, byParent[parent][prov])
		}

		key := parent
		if key == "" {
			key = fallback
		}
		if key == "" {
			continue
		}
		if !rw.Primary().Contains(parentType, rw.Resolve(key)) {
			rw.log.Warnw("Reported parent not found in synced model",
				"type", typ, "parentType", parentType, "parent", key)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
