package schema

// RemapID rewrites the identifier of one entity and every back-reference to it.
// It returns true if anything changed. Identifiers are globally unique, so the
// whole tree is scanned for back-references rather than a single parent.
func (d *Database) RemapID(typ EntityType, oldID, newID string) bool {
	if oldID == newID || oldID == "" {
		return false
	}
	changed := false
	set := func(field *string) {
		if *field == oldID {
			*field = newID
			changed = true
		}
	}

	for _, s := range d.Schemas {
		if typ == EntitySchema {
			set(&s.ID)
		}
		for _, t := range s.Tables {
			switch typ {
			case EntityTable:
				set(&t.ID)
				for _, r := range t.Relationships {
					set(&r.SourceTableID)
					set(&r.TargetTableID)
				}
			case EntityColumn:
				for _, c := range t.Columns {
					set(&c.ID)
				}
				for _, idx := range t.Indexes {
					for _, ic := range idx.Columns {
						set(&ic.ColumnID)
					}
				}
				for _, c := range t.Constraints {
					for _, cc := range c.Columns {
						set(&cc.ColumnID)
					}
				}
				for _, r := range t.Relationships {
					for _, rc := range r.Columns {
						set(&rc.FKColumnID)
						set(&rc.RefColumnID)
					}
				}
			case EntityIndex:
				for _, idx := range t.Indexes {
					set(&idx.ID)
				}
			case EntityIndexColumn:
				for _, idx := range t.Indexes {
					for _, ic := range idx.Columns {
						set(&ic.ID)
					}
				}
			case EntityConstraint:
				for _, c := range t.Constraints {
					set(&c.ID)
				}
			case EntityConstraintColumn:
				for _, c := range t.Constraints {
					for _, cc := range c.Columns {
						set(&cc.ID)
					}
				}
			case EntityRelationship:
				for _, r := range t.Relationships {
					set(&r.ID)
				}
			case EntityRelationshipColumn:
				for _, r := range t.Relationships {
					for _, rc := range r.Columns {
						set(&rc.ID)
					}
				}
			}
		}
	}
	return changed
}
