package sqlite

import (
	"context"
	"os"
	"testing"

	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
)

func newTestAdaptor(t *testing.T) *Adaptor {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "celesta_sqlite_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	a, err := Open(tmpFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestCreateTable_ColumnsPKAndIndex(t *testing.T) {
	a := newTestAdaptor(t)
	ctx := context.Background()

	tx, err := a.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	defer tx.Rollback()

	orders := schema.NewTable("orders", true)
	id := schema.NewIntegerColumn("id", false, true, "")
	total := schema.NewFloatingColumn("total", false, "0")
	if err := orders.AddColumn(id); err != nil {
		t.Fatalf("AddColumn id: %v", err)
	}
	if err := orders.AddColumn(total); err != nil {
		t.Fatalf("AddColumn total: %v", err)
	}
	if err := orders.AddPKColumn("id"); err != nil {
		t.Fatalf("AddPKColumn: %v", err)
	}
	if err := orders.FinalizePK(); err != nil {
		t.Fatalf("FinalizePK: %v", err)
	}
	grain := schema.NewGrain("shop", "", nil, true)
	if err := grain.AddTable(orders); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	if err := a.CreateSchemaIfNotExists(ctx, tx, "shop"); err != nil {
		t.Fatalf("CreateSchemaIfNotExists: %v", err)
	}
	if err := a.CreateTable(ctx, tx, orders); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	exists, err := a.TableExists(ctx, tx, "shop", "orders")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !exists {
		t.Fatal("expected orders table to exist after CreateTable")
	}

	cols, err := a.GetColumns(ctx, tx, "shop", "orders")
	if err != nil {
		t.Fatalf("GetColumns: %v", err)
	}
	for _, want := range []string{"id", "total"} {
		if !cols[want] {
			t.Errorf("expected column %s to be present, got %v", want, cols)
		}
	}

	pk, ok, err := a.GetPKInfo(ctx, tx, "shop", "orders")
	if err != nil {
		t.Fatalf("GetPKInfo: %v", err)
	}
	if !ok || len(pk.Columns) != 1 || pk.Columns[0] != "id" {
		t.Errorf("expected PK on [id], got %+v (ok=%v)", pk, ok)
	}

	idx := schema.NewIndex("idx_orders_total", orders, []string{"total"})
	if err := a.CreateIndex(ctx, tx, idx); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	indices, err := a.GetIndices(ctx, tx, "shop")
	if err != nil {
		t.Fatalf("GetIndices: %v", err)
	}
	got, ok := indices["idx_orders_total"]
	if !ok {
		t.Fatalf("expected idx_orders_total in %+v", indices)
	}
	if len(got.Columns) != 1 || got.Columns[0] != "total" {
		t.Errorf("unexpected index columns: %+v", got)
	}
}

func TestSequence_CreateAndAlter(t *testing.T) {
	a := newTestAdaptor(t)
	ctx := context.Background()

	tx, err := a.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	defer tx.Rollback()

	seq := schema.NewSequence("order_ids", 1, 1, 1, 9223372036854775807, false)
	if err := a.CreateSequence(ctx, tx, "shop", seq); err != nil {
		t.Fatalf("CreateSequence: %v", err)
	}

	exists, err := a.SequenceExists(ctx, tx, "shop", "order_ids")
	if err != nil {
		t.Fatalf("SequenceExists: %v", err)
	}
	if !exists {
		t.Fatal("expected sequence to exist after CreateSequence")
	}

	seq.Increment = 5
	seq.Cycle = true
	if err := a.AlterSequence(ctx, tx, "shop", seq); err != nil {
		t.Fatalf("AlterSequence: %v", err)
	}

	info, err := a.GetSequenceInfo(ctx, tx, "shop", "order_ids")
	if err != nil {
		t.Fatalf("GetSequenceInfo: %v", err)
	}
	if info.Increment != 5 || !info.Cycle {
		t.Errorf("expected altered sequence (increment=5, cycle=true), got %+v", info)
	}
}

func TestSysObjectsAndGrainsCursor_RoundTrip(t *testing.T) {
	a := newTestAdaptor(t)
	ctx := context.Background()

	tx, err := a.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	defer tx.Rollback()

	if err := a.CreateSysObjects(ctx, tx, "celesta"); err != nil {
		t.Fatalf("CreateSysObjects: %v", err)
	}

	cur, err := a.OpenGrainsCursor(ctx, tx, "celesta")
	if err != nil {
		t.Fatalf("OpenGrainsCursor: %v", err)
	}

	cur.Set(syscat.GrainsRow{
		ID:           "shop",
		Version:      "version 1.0",
		Length:       42,
		Checksum:     0xDEADBEEF,
		State:        syscat.StateReady,
		LastModified: 100,
		Message:      "",
	})
	if err := cur.Insert(ctx); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := cur.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ok, err := cur.NextInSet(ctx)
	if err != nil {
		t.Fatalf("NextInSet: %v", err)
	}
	if !ok {
		t.Fatal("expected one row after Insert")
	}
	row := cur.Get()
	if row.ID != "shop" || row.Checksum != 0xDEADBEEF || row.State != syscat.StateReady {
		t.Errorf("unexpected row after round-trip: %+v", row)
	}

	row.State = syscat.StateUpgrading
	cur.Set(row)
	if err := cur.Update(ctx); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := cur.Init(ctx); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	if _, err := cur.NextInSet(ctx); err != nil {
		t.Fatalf("re-NextInSet: %v", err)
	}
	if cur.Get().State != syscat.StateUpgrading {
		t.Errorf("expected state to persist as UPGRADING, got %s", cur.Get().State)
	}
}
