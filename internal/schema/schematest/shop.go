// Package schematest provides model fixtures shared by tests.
package schematest

import (
	"strconv"

	"github.com/tordrt/schemasync/internal/schema"
)

// Shop returns schema public with users(id, email) and orders(id, user_id),
// a primary key on each table, an index on orders.user_id and the
// non-identifying relationship fk_orders_users. Ids are readable strings.
func Shop() *schema.Database {
	db := &schema.Database{ID: "db", Name: "shop"}
	db.AddSchema(&schema.Schema{ID: "s1", Name: "public"})
	must(db.AddTable("s1", &schema.Table{ID: "users", Name: "users"}))
	must(db.AddTable("s1", &schema.Table{ID: "orders", Name: "orders", SeqNo: 1}))

	must(db.AddColumn("users", &schema.Column{ID: "users.id", Name: "id", DataType: "bigint"}))
	must(db.AddColumn("users", &schema.Column{ID: "users.email", Name: "email", DataType: "text", SeqNo: 1}))
	must(db.AddColumn("orders", &schema.Column{ID: "orders.id", Name: "id", DataType: "bigint"}))
	must(db.AddColumn("orders", &schema.Column{ID: "orders.user_id", Name: "user_id", DataType: "bigint", SeqNo: 1}))

	must(db.AddConstraint("users", &schema.Constraint{
		ID: "pk_users", Name: "pk_users", Kind: schema.PrimaryKey,
		Columns: []*schema.ConstraintColumn{{ID: "pk_users.0", ColumnID: "users.id"}},
	}))
	must(db.AddConstraint("orders", &schema.Constraint{
		ID: "pk_orders", Name: "pk_orders", Kind: schema.PrimaryKey,
		Columns: []*schema.ConstraintColumn{{ID: "pk_orders.0", ColumnID: "orders.id"}},
	}))
	must(db.AddIndex("orders", &schema.Index{
		ID: "idx_user", Name: "idx_orders_user",
		Columns: []*schema.IndexColumn{{ID: "idx_user.0", ColumnID: "orders.user_id", Sort: schema.Asc}},
	}))
	must(db.AddRelationship("orders", &schema.Relationship{
		ID: "fk_orders_users", Name: "fk_orders_users",
		Kind: schema.NonIdentifying, Cardinality: schema.OneToMany,
		TargetTableID: "users",
		Columns:       []*schema.RelationshipColumn{{ID: "fk.0", FKColumnID: "orders.user_id", RefColumnID: "users.id"}},
	}))
	return db
}

// Chain returns schema public with three tables keyed through identifying
// relationships: a(id, code) keyed on id, b(id, a_id) keyed on both and
// referencing a, and c(id, b_id, b_a_id) keyed on all three and referencing b.
func Chain() *schema.Database {
	db := &schema.Database{ID: "db", Name: "chain"}
	db.AddSchema(&schema.Schema{ID: "s1", Name: "public"})
	table := func(name string, seqNo int, cols ...string) {
		must(db.AddTable("s1", &schema.Table{ID: name, Name: name, SeqNo: seqNo}))
		pk := &schema.Constraint{ID: "pk_" + name, Name: "pk_" + name, Kind: schema.PrimaryKey}
		for i, col := range cols {
			id := name + "." + col
			must(db.AddColumn(name, &schema.Column{ID: id, Name: col, DataType: "bigint", SeqNo: i}))
			pk.Columns = append(pk.Columns, &schema.ConstraintColumn{ID: pk.ID + "." + strconv.Itoa(i), ColumnID: id, SeqNo: i})
		}
		must(db.AddConstraint(name, pk))
	}
	table("a", 0, "id")
	table("b", 1, "id", "a_id")
	table("c", 2, "id", "b_id", "b_a_id")
	must(db.AddColumn("a", &schema.Column{ID: "a.code", Name: "code", DataType: "text", SeqNo: 1}))

	must(db.AddRelationship("b", &schema.Relationship{
		ID: "fk_b_a", Name: "fk_b_a", Kind: schema.Identifying, Cardinality: schema.OneToMany,
		TargetTableID: "a",
		Columns:       []*schema.RelationshipColumn{{ID: "fk_b_a.0", FKColumnID: "b.a_id", RefColumnID: "a.id"}},
	}))
	must(db.AddRelationship("c", &schema.Relationship{
		ID: "fk_c_b", Name: "fk_c_b", Kind: schema.Identifying, Cardinality: schema.OneToMany,
		TargetTableID: "b",
		Columns: []*schema.RelationshipColumn{
			{ID: "fk_c_b.0", FKColumnID: "c.b_id", RefColumnID: "b.id"},
			{ID: "fk_c_b.1", FKColumnID: "c.b_a_id", RefColumnID: "b.a_id", SeqNo: 1},
		},
	}))
	return db
}

// Seq returns an id generator yielding prefix1, prefix2, ...
func Seq(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
