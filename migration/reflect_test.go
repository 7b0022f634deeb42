package migration

import "testing"

func TestTopoRankOrdersParentsBeforeChildren(t *testing.T) {
	// orders depends on customers; order_items depends on orders.
	// customers has no dependency.
	deps := map[string]map[string]bool{
		"orders":      {"customers": true},
		"order_items": {"orders": true},
	}
	rank := topoRank([]string{"order_items", "orders", "customers"}, deps)

	if rank["customers"] >= rank["orders"] {
		t.Errorf("expected customers to rank before orders: %v", rank)
	}
	if rank["orders"] >= rank["order_items"] {
		t.Errorf("expected orders to rank before order_items: %v", rank)
	}
}

func TestTopoRankBreaksCycles(t *testing.T) {
	// a <-> b form a cycle; topoRank must still place both rather than loop
	// forever.
	deps := map[string]map[string]bool{
		"a": {"b": true},
		"b": {"a": true},
	}
	rank := topoRank([]string{"a", "b"}, deps)
	if len(rank) != 2 {
		t.Fatalf("expected both tables ranked despite the cycle, got %v", rank)
	}
}

func TestTopoRankSelfReferenceDoesNotBlockPlacement(t *testing.T) {
	// assemble() never records a self-referencing dependency (see its
	// `r.RefTable != r.TableName` guard), but topoRank on its own must
	// still terminate if handed one.
	deps := map[string]map[string]bool{
		"categories": {"categories": true},
	}
	rank := topoRank([]string{"categories"}, deps)
	if len(rank) != 1 {
		t.Fatalf("expected the self-referencing table to be placed, got %v", rank)
	}
}

func TestAssembleBuildsColumnsAndRank(t *testing.T) {
	tableNames := []string{"orders", "customers"}
	cols := []columnRow{
		{TableName: "customers", ColumnName: "id", DataType: "INTEGER", Nullable: false},
		{TableName: "orders", ColumnName: "id", DataType: "INTEGER", Nullable: false},
		{TableName: "orders", ColumnName: "customer_id", DataType: "INTEGER", Nullable: false},
	}
	pks := []pkRow{
		{TableName: "customers", ColumnName: "id"},
		{TableName: "orders", ColumnName: "id"},
	}
	fks := []fkRow{
		{TableName: "orders", ColumnName: "customer_id", RefTable: "customers", RefColumn: "id"},
	}

	tables := assemble("public", tableNames, cols, pks, fks)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}

	var orders, customers *Table
	for i := range tables {
		switch tables[i].Name {
		case "orders":
			orders = &tables[i]
		case "customers":
			customers = &tables[i]
		}
	}
	if orders == nil || customers == nil {
		t.Fatalf("expected both orders and customers in the assembled set: %v", tables)
	}
	if customers.Rank >= orders.Rank {
		t.Errorf("expected customers (parent) to rank before orders (child): customers=%d orders=%d",
			customers.Rank, orders.Rank)
	}

	var customerID *Column
	for i := range orders.Columns {
		if orders.Columns[i].Name == "customer_id" {
			customerID = &orders.Columns[i]
		}
	}
	if customerID == nil || customerID.ForeignKey == nil {
		t.Fatalf("expected orders.customer_id to carry a foreign key")
	}
	if customerID.ForeignKey.Table != "customers" || customerID.ForeignKey.Column != "id" {
		t.Errorf("got foreign key %+v", customerID.ForeignKey)
	}
}
