package mysql

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/celesta-db/celesta/internal/schema"
)

// newTestAdaptor wraps a sqlmock connection the way the real driver
// wraps a TCP connection to a MySQL server: there is no way to run a
// real MySQL instance in this test suite, so column/PK/FK/index
// introspection is verified against the exact SQL the adaptor issues
// rather than against live server state.
func newTestAdaptor(t *testing.T) (*Adaptor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Adaptor{db: db}, mock
}

func TestNormalizeDefault_StripsSingleQuoting(t *testing.T) {
	a := &Adaptor{}
	cases := map[string]string{
		"'active'": "active",
		"0":        "0",
		"''":       "",
	}
	for in, want := range cases {
		if got := a.NormalizeDefault(in); got != want {
			t.Errorf("NormalizeDefault(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateSchemaIfNotExists(t *testing.T) {
	a, mock := newTestAdaptor(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS `shop`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := a.CreateSchemaIfNotExists(ctx, tx, "shop"); err != nil {
		t.Fatalf("CreateSchemaIfNotExists: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTableExists(t *testing.T) {
	a, mock := newTestAdaptor(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA=? AND TABLE_NAME=?")).
		WithArgs("shop", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	exists, err := a.TableExists(ctx, tx, "shop", "customers")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !exists {
		t.Error("expected TableExists to report true")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateTable_EmitsInlinePKAndEngine(t *testing.T) {
	a, mock := newTestAdaptor(t)
	ctx := context.Background()

	customers := schema.NewTable("customers", true)
	if err := customers.AddColumn(schema.NewIntegerColumn("id", false, true, "")); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := customers.AddPKColumn("id"); err != nil {
		t.Fatalf("AddPKColumn: %v", err)
	}
	if err := customers.FinalizePK(); err != nil {
		t.Fatalf("FinalizePK: %v", err)
	}
	grain := schema.NewGrain("shop", "", nil, true)
	if err := grain.AddTable(customers); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ENGINE=InnoDB")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := a.CreateTable(ctx, tx, customers); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetPKInfo_OrdersByOrdinalPosition(t *testing.T) {
	a, mock := newTestAdaptor(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE.*ORDER BY ORDINAL_POSITION").
		WithArgs("shop", "order_lines").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).
			AddRow("order_id").
			AddRow("line_no"))
	mock.ExpectCommit()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	pk, ok, err := a.GetPKInfo(ctx, tx, "shop", "order_lines")
	if err != nil {
		t.Fatalf("GetPKInfo: %v", err)
	}
	if !ok {
		t.Fatal("expected a composite PK to be found")
	}
	if len(pk.Columns) != 2 || pk.Columns[0] != "order_id" || pk.Columns[1] != "line_no" {
		t.Errorf("unexpected PK columns: %+v", pk.Columns)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
