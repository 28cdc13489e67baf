// Package reconcile folds identifiers assigned by the authority back into the
// client models and the session mapping table.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/schema"
)

// Rewriter applies identifier rewrites to a set of models for one response.
// The first model is the primary (synced) one and is used for lookups; the
// rest receive the same rewrites.
type Rewriter struct {
	ids    *idmap.Table
	log    *zap.SugaredLogger
	models []*schema.Database
	round  idmap.Map
	real   map[string]bool
	prior  *schema.Database
}

// NewRewriter creates a rewriter over primary and any further models
func NewRewriter(ids *idmap.Table, log *zap.SugaredLogger, primary *schema.Database, others ...*schema.Database) *Rewriter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	models := []*schema.Database{primary}
	for _, m := range others {
		if m != nil {
			models = append(models, m)
		}
	}
	return &Rewriter{
		ids:    ids,
		log:    log,
		models: models,
		round:  make(idmap.Map),
		real:   make(map[string]bool),
	}
}

// Settle records the model as it was before the command being confirmed.
// Entities it holds are already durable and are never treated as placeholders.
func (rw *Rewriter) Settle(prior *schema.Database) {
	rw.prior = prior
}

// Placeholder reports whether id is still an unconfirmed local entity: it was
// not in the settled model and has not been given a real id this round
func (rw *Rewriter) Placeholder(typ schema.EntityType, id string) bool {
	if rw.real[id] {
		return false
	}
	return rw.prior == nil || !rw.prior.Contains(typ, id)
}

// Remap replaces oldID with newID, and every reference to it, in each model
// and records the pair. It reports whether any model or the table changed.
func (rw *Rewriter) Remap(typ schema.EntityType, oldID, newID string) bool {
	if oldID == "" || newID == "" || oldID == newID {
		return false
	}
	changed := false
	for _, m := range rw.models {
		if m.RemapID(typ, oldID, newID) {
			changed = true
		}
	}
	rw.round[oldID] = newID
	rw.real[newID] = true
	if _, ok := rw.ids.Add(oldID, newID, typ); ok {
		changed = true
	}
	if changed {
		rw.log.Debugw("Remapped identifier", "type", typ, "from", oldID, "to", newID)
	}
	return changed
}

// Resolve translates id through this round's pairs and then the session table
func (rw *Rewriter) Resolve(id string) string {
	if real, ok := rw.round[id]; ok {
		return real
	}
	return rw.ids.Resolve(id)
}

// Primary returns the model used for lookups
func (rw *Rewriter) Primary() *schema.Database {
	return rw.models[0]
}

// Insert runs fn against every model. A failure on the primary model is
// returned; failures on the others only mean that model no longer holds the
// parent and are logged.
func (rw *Rewriter) Insert(fn func(db *schema.Database) error) error {
	if err := fn(rw.models[0]); err != nil {
		return err
	}
	for _, m := range rw.models[1:] {
		if err := fn(m); err != nil {
			rw.log.Debugw("Skipped insert into secondary model", "error", err)
		}
	}
	return nil
}
