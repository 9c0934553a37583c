package updater

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/celesta-db/celesta/internal/adaptor/sqlite"
	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
	"github.com/celesta-db/celesta/internal/version"
)

func mustParseVersion(t *testing.T, s string) *version.VersionString {
	t.Helper()
	v, err := version.Parse(s)
	if err != nil {
		t.Fatalf("version.Parse(%q): %v", s, err)
	}
	return v
}

func TestNeedToUpgrade(t *testing.T) {
	g := schema.NewGrain("shop", "abc", mustParseVersion(t, "version 2.0"), true)

	upgrade, err := needToUpgrade(g, syscat.GrainsRow{}, false)
	if err != nil || !upgrade {
		t.Fatalf("first deployment: expected (true, nil), got (%v, %v)", upgrade, err)
	}

	_, err = needToUpgrade(g, syscat.GrainsRow{State: syscat.StateError, Message: "boom"}, true)
	if err == nil {
		t.Fatal("expected an error for a grain stuck in ERROR")
	}

	upgrade, err = needToUpgrade(g, syscat.GrainsRow{Version: "version 1.0", Length: g.Length, Checksum: g.Checksum, State: syscat.StateReady}, true)
	if err != nil || !upgrade {
		t.Fatalf("higher model version: expected (true, nil), got (%v, %v)", upgrade, err)
	}

	upgrade, err = needToUpgrade(g, syscat.GrainsRow{Version: "version 3.0", Length: g.Length, Checksum: g.Checksum, State: syscat.StateReady}, true)
	if err == nil || upgrade {
		t.Fatalf("lower model version: expected a downgrade error, got (%v, %v)", upgrade, err)
	}

	upgrade, err = needToUpgrade(g, syscat.GrainsRow{Version: "version 2.0", Length: g.Length, Checksum: g.Checksum, State: syscat.StateReady}, true)
	if err != nil || upgrade {
		t.Fatalf("unchanged same-version grain: expected (false, nil), got (%v, %v)", upgrade, err)
	}

	upgrade, err = needToUpgrade(g, syscat.GrainsRow{Version: "version 2.0", Length: g.Length + 1, Checksum: g.Checksum, State: syscat.StateReady}, true)
	if err != nil || !upgrade {
		t.Fatalf("same version but drifted source: expected (true, nil), got (%v, %v)", upgrade, err)
	}

	upgrade, err = needToUpgrade(g, syscat.GrainsRow{Version: "version 2.0", Length: g.Length, Checksum: g.Checksum, State: syscat.StateUpgrading}, true)
	if err != nil || !upgrade {
		t.Fatalf("interrupted previous run: expected (true, nil), got (%v, %v)", upgrade, err)
	}

	locked := schema.NewGrain("shop", "abc", mustParseVersion(t, "version 99.0"), true)
	upgrade, err = needToUpgrade(locked, syscat.GrainsRow{Version: "version 1.0", Length: locked.Length + 1, Checksum: locked.Checksum + 1, State: syscat.StateLock}, true)
	if err != nil || upgrade {
		t.Fatalf("LOCKed grain: expected (false, nil) regardless of version/checksum drift, got (%v, %v)", upgrade, err)
	}
}

func newTestUpdater(t *testing.T) *Updater {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "celesta_updater_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	a, err := sqlite.Open(tmpFile.Name())
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	log := logrus.New()
	log.SetOutput(os.Stderr)
	return New(a.DB(), a, "celesta", log)
}

func buildOneTableScore(t *testing.T, ver string) *schema.Score {
	t.Helper()
	grain := schema.NewGrain("shop", "-- customers table", mustParseVersion(t, ver), true)
	customers := schema.NewTable("customers", true)
	if err := customers.AddColumn(schema.NewIntegerColumn("id", false, true, "")); err != nil {
		t.Fatalf("AddColumn id: %v", err)
	}
	if err := customers.AddColumn(schema.NewStringColumn("name", false, 255, "")); err != nil {
		t.Fatalf("AddColumn name: %v", err)
	}
	if err := customers.AddPKColumn("id"); err != nil {
		t.Fatalf("AddPKColumn: %v", err)
	}
	if err := customers.FinalizePK(); err != nil {
		t.Fatalf("FinalizePK: %v", err)
	}
	if err := grain.AddTable(customers); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	score := schema.NewScore()
	if err := score.AddGrain(grain); err != nil {
		t.Fatalf("AddGrain: %v", err)
	}
	sysGrain := schema.NewGrain("celesta", "", mustParseVersion(t, "version 1.0"), true)
	if err := score.AddGrain(sysGrain); err != nil {
		t.Fatalf("AddGrain celesta: %v", err)
	}
	if err := score.SetSystemGrain("celesta"); err != nil {
		t.Fatalf("SetSystemGrain: %v", err)
	}
	if err := score.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return score
}

func TestUpdateDb_FirstRunCreatesTableAndMarksReady(t *testing.T) {
	u := newTestUpdater(t)
	ctx := context.Background()

	if err := u.UpdateSystemSchema(ctx, false); err != nil {
		t.Fatalf("UpdateSystemSchema: %v", err)
	}

	score := buildOneTableScore(t, "version 1.0")
	if err := u.UpdateDb(ctx, score); err != nil {
		t.Fatalf("UpdateDb: %v", err)
	}

	exists, err := u.ad.TableExists(ctx, mustTx(t, u), "shop", "customers")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !exists {
		t.Fatal("expected customers table to have been created")
	}

	row, ok, err := u.readGrainStatus(ctx, "shop")
	if err != nil {
		t.Fatalf("readGrainStatus: %v", err)
	}
	if !ok {
		t.Fatal("expected a celesta.grains row for shop")
	}
	if row.State != syscat.StateReady {
		t.Errorf("expected shop to be READY after a clean upgrade, got %s", row.State)
	}
}

func TestUpdateDb_RerunWithUnchangedScoreIsANoOp(t *testing.T) {
	u := newTestUpdater(t)
	ctx := context.Background()

	if err := u.UpdateSystemSchema(ctx, false); err != nil {
		t.Fatalf("UpdateSystemSchema: %v", err)
	}

	score := buildOneTableScore(t, "version 1.0")
	if err := u.UpdateDb(ctx, score); err != nil {
		t.Fatalf("first UpdateDb: %v", err)
	}
	firstRow, _, err := u.readGrainStatus(ctx, "shop")
	if err != nil {
		t.Fatalf("readGrainStatus after first run: %v", err)
	}

	if err := u.UpdateDb(ctx, buildOneTableScore(t, "version 1.0")); err != nil {
		t.Fatalf("second UpdateDb: %v", err)
	}
	secondRow, _, err := u.readGrainStatus(ctx, "shop")
	if err != nil {
		t.Fatalf("readGrainStatus after second run: %v", err)
	}

	if secondRow.LastModified != firstRow.LastModified {
		t.Error("expected a no-drift rerun to leave the grain row untouched")
	}
}

func TestUpdateDb_DowngradeIsRejectedAndRecordedAsFailure(t *testing.T) {
	u := newTestUpdater(t)
	ctx := context.Background()

	if err := u.UpdateSystemSchema(ctx, false); err != nil {
		t.Fatalf("UpdateSystemSchema: %v", err)
	}
	if err := u.UpdateDb(ctx, buildOneTableScore(t, "version 2.0")); err != nil {
		t.Fatalf("first UpdateDb: %v", err)
	}

	err := u.UpdateDb(ctx, buildOneTableScore(t, "version 1.0"))
	if err == nil {
		t.Fatal("expected UpdateDb to report a failed grain for a version downgrade")
	}
}

func TestUpdateSystemSchema_NonEmptyDbRequiresForce(t *testing.T) {
	u := newTestUpdater(t)
	ctx := context.Background()

	if _, err := u.db.ExecContext(ctx, "CREATE TABLE preexisting (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("seed preexisting table: %v", err)
	}

	err := u.UpdateSystemSchema(ctx, false)
	if err == nil {
		t.Fatal("expected UpdateSystemSchema to refuse a non-empty, unversioned database")
	}
	if code := cerr.GetCode(err); code != cerr.CodeNonEmptyDB {
		t.Fatalf("expected code %s, got %s (%v)", cerr.CodeNonEmptyDB, code, err)
	}

	if err := u.UpdateSystemSchema(ctx, true); err != nil {
		t.Fatalf("UpdateSystemSchema with forceDDInitialize: %v", err)
	}
}

func TestUpdateDb_VersionedTableGetsRecversionTriggerAndColumn(t *testing.T) {
	u := newTestUpdater(t)
	ctx := context.Background()

	if err := u.UpdateSystemSchema(ctx, false); err != nil {
		t.Fatalf("UpdateSystemSchema: %v", err)
	}

	grain := schema.NewGrain("shop", "-- versioned customers table", mustParseVersion(t, "version 1.0"), true)
	customers := schema.NewTable("customers", true)
	customers.Versioned = true
	if err := customers.AddColumn(schema.NewIntegerColumn("id", false, true, "")); err != nil {
		t.Fatalf("AddColumn id: %v", err)
	}
	if err := customers.AddColumn(schema.NewStringColumn("name", false, 255, "")); err != nil {
		t.Fatalf("AddColumn name: %v", err)
	}
	if err := customers.AddPKColumn("id"); err != nil {
		t.Fatalf("AddPKColumn: %v", err)
	}
	if err := customers.FinalizePK(); err != nil {
		t.Fatalf("FinalizePK: %v", err)
	}
	if err := grain.AddTable(customers); err != nil {
		t.Fatalf("AddTable: %v", err)
	}
	score := schema.NewScore()
	if err := score.AddGrain(grain); err != nil {
		t.Fatalf("AddGrain: %v", err)
	}
	sysGrain := schema.NewGrain("celesta", "", mustParseVersion(t, "version 1.0"), true)
	if err := score.AddGrain(sysGrain); err != nil {
		t.Fatalf("AddGrain celesta: %v", err)
	}
	if err := score.SetSystemGrain("celesta"); err != nil {
		t.Fatalf("SetSystemGrain: %v", err)
	}
	if err := score.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := u.UpdateDb(ctx, score); err != nil {
		t.Fatalf("UpdateDb: %v", err)
	}

	if _, err := u.db.ExecContext(ctx, `INSERT INTO "shop_customers" (id, name) VALUES (1, 'Ann')`); err != nil {
		t.Fatalf("insert seed row: %v", err)
	}

	var recversion int
	if err := u.db.QueryRowContext(ctx, `SELECT recversion FROM "shop_customers" WHERE id = 1`).Scan(&recversion); err != nil {
		t.Fatalf("expected a recversion column to have been created: %v", err)
	}
	if recversion != 0 {
		t.Fatalf("expected initial recversion to be 0, got %d", recversion)
	}

	if _, err := u.db.ExecContext(ctx, `UPDATE "shop_customers" SET name = 'Ann B.' WHERE id = 1`); err != nil {
		t.Fatalf("update seed row: %v", err)
	}
	if err := u.db.QueryRowContext(ctx, `SELECT recversion FROM "shop_customers" WHERE id = 1`).Scan(&recversion); err != nil {
		t.Fatalf("re-read recversion: %v", err)
	}
	if recversion != 1 {
		t.Fatalf("expected the versioning trigger to bump recversion to 1, got %d", recversion)
	}
}

func TestUpdateDb_FailedUpgradePreservesPriorGrainsRow(t *testing.T) {
	u := newTestUpdater(t)
	ctx := context.Background()

	if err := u.UpdateSystemSchema(ctx, false); err != nil {
		t.Fatalf("UpdateSystemSchema: %v", err)
	}
	if err := u.UpdateDb(ctx, buildOneTableScore(t, "version 1.0")); err != nil {
		t.Fatalf("first UpdateDb: %v", err)
	}
	goodRow, ok, err := u.readGrainStatus(ctx, "shop")
	if err != nil || !ok {
		t.Fatalf("readGrainStatus after first run: ok=%v err=%v", ok, err)
	}

	grain := schema.NewGrain("shop", "-- customers table with a broken column", mustParseVersion(t, "version 1.0"), true)
	customers := schema.NewTable("customers", true)
	if err := customers.AddColumn(schema.NewIntegerColumn("id", false, true, "")); err != nil {
		t.Fatalf("AddColumn id: %v", err)
	}
	if err := customers.AddColumn(schema.NewStringColumn("name", false, 255, "")); err != nil {
		t.Fatalf("AddColumn name: %v", err)
	}
	// NOT NULL with no default: sqlite rejects ALTER TABLE ADD COLUMN on
	// an existing table with this shape, so runGrainDDL is guaranteed
	// to fail here.
	if err := customers.AddColumn(schema.NewIntegerColumn("flag", false, false, "")); err != nil {
		t.Fatalf("AddColumn flag: %v", err)
	}
	if err := customers.AddPKColumn("id"); err != nil {
		t.Fatalf("AddPKColumn: %v", err)
	}
	if err := customers.FinalizePK(); err != nil {
		t.Fatalf("FinalizePK: %v", err)
	}
	if err := grain.AddTable(customers); err != nil {
		t.Fatalf("AddTable: %v", err)
	}
	score := schema.NewScore()
	if err := score.AddGrain(grain); err != nil {
		t.Fatalf("AddGrain: %v", err)
	}
	sysGrain := schema.NewGrain("celesta", "", mustParseVersion(t, "version 1.0"), true)
	if err := score.AddGrain(sysGrain); err != nil {
		t.Fatalf("AddGrain celesta: %v", err)
	}
	if err := score.SetSystemGrain("celesta"); err != nil {
		t.Fatalf("SetSystemGrain: %v", err)
	}
	if err := score.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := u.UpdateDb(ctx, score); err == nil {
		t.Fatal("expected the broken column to fail the upgrade")
	}

	failedRow, ok, err := u.readGrainStatus(ctx, "shop")
	if err != nil || !ok {
		t.Fatalf("readGrainStatus after failed run: ok=%v err=%v", ok, err)
	}
	if failedRow.State != syscat.StateError {
		t.Fatalf("expected shop to be in ERROR state, got %s", failedRow.State)
	}
	if failedRow.Version != goodRow.Version || failedRow.Length != goodRow.Length || failedRow.Checksum != goodRow.Checksum {
		t.Errorf("expected the ERROR row to keep the last successful version/length/checksum (%s/%d/%d), got %s/%d/%d",
			goodRow.Version, goodRow.Length, goodRow.Checksum, failedRow.Version, failedRow.Length, failedRow.Checksum)
	}
}

func mustTx(t *testing.T, u *Updater) *sql.Tx {
	t.Helper()
	tx, err := u.db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}
