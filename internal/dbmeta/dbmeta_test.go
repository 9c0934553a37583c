package dbmeta

import (
	"strings"
	"testing"

	"github.com/celesta-db/celesta/internal/schema"
)

type identityNormalizer struct{}

func (identityNormalizer) NormalizeDefault(s string) string { return strings.TrimSpace(s) }

func TestDbColumnInfo_Reflects_Match(t *testing.T) {
	col := schema.NewIntegerColumn("id", false, true, "0")
	info := DbColumnInfo{Name: "id", Kind: schema.KindInteger, Nullable: false, Identity: true, DefaultText: "0"}
	if !info.Reflects(col, identityNormalizer{}) {
		t.Error("expected matching column info to reflect the model")
	}
}

func TestDbColumnInfo_Reflects_NullabilityDrift(t *testing.T) {
	col := schema.NewIntegerColumn("id", false, false, "")
	info := DbColumnInfo{Name: "id", Kind: schema.KindInteger, Nullable: true}
	if info.Reflects(col, identityNormalizer{}) {
		t.Error("expected nullability drift to break reflects")
	}
}

func TestDbColumnInfo_Reflects_IsReflexive(t *testing.T) {
	info := DbColumnInfo{Name: "amount", Kind: schema.KindFloating, Nullable: true, DefaultText: "0.0"}
	col := schema.NewFloatingColumn("amount", true, "0.0")
	got1 := info.Reflects(col, identityNormalizer{})
	got2 := info.Reflects(col, identityNormalizer{})
	if got1 != got2 {
		t.Error("Reflects should be deterministic/reflexive across repeated calls")
	}
	if !got1 {
		t.Error("expected equal-valued column to reflect")
	}
}

func TestDbPkInfo_Reflects(t *testing.T) {
	tbl := schema.NewTable("orders", true)
	tbl.AddColumn(schema.NewIntegerColumn("id", false, true, ""))
	tbl.AddPKColumn("id")
	tbl.FinalizePK()

	match := DbPkInfo{Name: "pk_orders", Columns: []string{"id"}}
	if !match.Reflects(tbl) {
		t.Error("expected matching PK to reflect")
	}

	mismatch := DbPkInfo{Name: "pk_orders", Columns: []string{"other"}}
	if mismatch.Reflects(tbl) {
		t.Error("expected mismatched PK to not reflect")
	}
}

func TestDbIndexInfo_Reflects(t *testing.T) {
	tbl := schema.NewTable("orders", true)
	idx := schema.NewIndex("idx_orders_status", tbl, []string{"status"})

	match := DbIndexInfo{Name: "idx_orders_status", TableName: "orders", Columns: []string{"status"}}
	if !match.Reflects(idx) {
		t.Error("expected matching index to reflect")
	}

	mismatch := DbIndexInfo{Name: "idx_orders_status", TableName: "orders", Columns: []string{"status", "extra"}}
	if mismatch.Reflects(idx) {
		t.Error("expected column-count drift to break reflects")
	}
}

func TestDbSequenceInfo_Reflects(t *testing.T) {
	seq := schema.NewSequence("seq1", 1, 1, 1, 1000, false)
	match := DbSequenceInfo{Start: 1, Increment: 1, Min: 1, Max: 1000, Cycle: false}
	if !match.Reflects(seq) {
		t.Error("expected matching sequence to reflect")
	}
	mismatch := DbSequenceInfo{Start: 2, Increment: 1, Min: 1, Max: 1000, Cycle: false}
	if mismatch.Reflects(seq) {
		t.Error("expected start drift to break reflects")
	}
}
