package updater

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/dbmeta"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
)

// runGrainDDL performs the fixed multi-phase DDL sequence for one
// grain, inside a single transaction so a mid-phase failure leaves the
// database exactly as it was before the run started.
func (u *Updater) runGrainDDL(ctx context.Context, g *schema.Grain) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: begin transaction", g.Name), err)
	}
	defer tx.Rollback()

	if err := u.ad.CreateSchemaIfNotExists(ctx, tx, g.Name); err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: create schema", g.Name), err)
	}

	liveViews, err := u.ad.GetViewList(ctx, tx, g.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: list views", g.Name), err)
	}
	// Views are cheap to redefine, so they're dropped unconditionally
	// and recreated below rather than diffed.
	for _, name := range liveViews {
		if err := u.ad.DropView(ctx, tx, g.Name, name); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: drop view %s", g.Name, name), err)
		}
	}
	for name := range g.ParameterizedViews() {
		if err := u.ad.DropParameterizedView(ctx, tx, g.Name, name); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: drop parameterized view %s", g.Name, name), err)
		}
	}

	altered, err := u.alteredColumns(ctx, tx, g)
	if err != nil {
		return err
	}

	liveIndices, err := u.ad.GetIndices(ctx, tx, g.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: list indices", g.Name), err)
	}
	modelIndices := g.Indices()
	droppedIndices := make(map[string]bool, len(liveIndices))
	for name, live := range liveIndices {
		model, inModel := modelIndices[name]
		var reason string
		switch {
		case !inModel:
			reason = "orphaned"
		case !live.Reflects(model):
			reason = "stale"
		case indexTouchesAlteredColumn(live, altered):
			reason = "ahead of column alter"
		default:
			continue
		}
		if err := u.ad.DropIndex(ctx, tx, g.Name, name); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: drop %s index %s", g.Name, reason, name), err)
		}
		droppedIndices[name] = true
	}

	liveFKs, err := u.ad.GetFKInfo(ctx, tx, g.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: list foreign keys", g.Name), err)
	}
	modelFKByKey := modelForeignKeyByKey(g)
	liveFKSet := make(map[string]bool, len(liveFKs))
	for _, live := range liveFKs {
		key := fkKey(live.TableName, live.Columns)
		modelFK, inModel := modelFKByKey[key]
		if inModel && live.Reflects(modelFK) {
			liveFKSet[key] = true
			continue
		}
		if err := u.ad.DropFK(ctx, tx, g.Name, live.TableName, live.Name); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: drop stale FK %s", g.Name, live.Name), err)
		}
	}

	for _, s := range g.Sequences() {
		if err := u.upgradeSequence(ctx, tx, g, s); err != nil {
			return err
		}
	}

	for _, t := range g.Tables() {
		if err := u.upgradeTable(ctx, tx, t); err != nil {
			return err
		}
	}

	for name, idx := range g.Indices() {
		if _, stillLive := liveIndices[name]; stillLive && !droppedIndices[name] {
			continue
		}
		if err := u.ad.CreateIndex(ctx, tx, idx); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: create index %s", g.Name, name), err)
		}
	}

	for _, t := range g.Tables() {
		for _, fk := range t.ForeignKeys() {
			if !liveFKSet[fkKey(t.Name, fk.Columns())] {
				if err := u.ad.CreateFK(ctx, tx, fk); err != nil {
					return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: create FK on %s", g.Name, t.Name), err)
				}
			}
		}
	}

	for _, v := range g.Views() {
		if err := u.ad.CreateView(ctx, tx, v); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: create view %s", g.Name, v.Name), err)
		}
	}
	for _, v := range g.ParameterizedViews() {
		if err := u.ad.CreateParameterizedView(ctx, tx, v); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: create parameterized view %s", g.Name, v.Name), err)
		}
	}

	if err := u.upgradeMaterializedViews(ctx, tx, g); err != nil {
		return err
	}

	for _, t := range g.Tables() {
		if err := u.ad.UpdateVersioningTrigger(ctx, tx, t); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: update versioning trigger on %s", g.Name, t.Name), err)
		}
	}

	if err := u.processGrainMeta(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: commit", g.Name), err)
	}
	return nil
}

func fkKey(tableName string, columns []string) string {
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	return tableName + "(" + strings.Join(sorted, ",") + ")"
}

func modelForeignKeyByKey(g *schema.Grain) map[string]*schema.ForeignKey {
	byKey := make(map[string]*schema.ForeignKey)
	for _, t := range g.Tables() {
		for _, fk := range t.ForeignKeys() {
			byKey[fkKey(t.Name, fk.Columns())] = fk
		}
	}
	return byKey
}

// alteredColumns returns, per table name, the set of column names
// whose live shape has drifted from the model and will be altered
// later in this run. Computed ahead of the index-drop phase so an
// index covering a column about to change can be dropped before the
// alter rather than left referencing a column mid-change.
func (u *Updater) alteredColumns(ctx context.Context, tx *sql.Tx, g *schema.Grain) (map[string]map[string]bool, error) {
	altered := make(map[string]map[string]bool)
	for _, t := range g.Tables() {
		exists, err := u.ad.TableExists(ctx, tx, t.GrainName(), t.Name)
		if err != nil {
			return nil, cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: check existence", t.Name), err)
		}
		if !exists {
			continue
		}
		liveCols, err := u.ad.GetColumns(ctx, tx, t.GrainName(), t.Name)
		if err != nil {
			return nil, cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: list columns", t.Name), err)
		}
		for _, c := range t.Columns() {
			if !liveCols[c.Name] {
				continue
			}
			info, err := u.ad.GetColumnInfo(ctx, tx, t.GrainName(), t.Name, c.Name)
			if err != nil {
				return nil, cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: read column %s", t.Name, c.Name), err)
			}
			if !info.Reflects(c, u.ad) {
				if altered[t.Name] == nil {
					altered[t.Name] = make(map[string]bool)
				}
				altered[t.Name][c.Name] = true
			}
		}
	}
	return altered, nil
}

// indexTouchesAlteredColumn reports whether idx covers any column that
// alteredColumns has flagged as about to change on idx's table.
func indexTouchesAlteredColumn(idx dbmeta.DbIndexInfo, altered map[string]map[string]bool) bool {
	cols := altered[idx.TableName]
	if cols == nil {
		return false
	}
	for _, c := range idx.Columns {
		if cols[c] {
			return true
		}
	}
	return false
}

// upgradeSequence creates or realigns one sequence's live parameters.
func (u *Updater) upgradeSequence(ctx context.Context, tx *sql.Tx, g *schema.Grain, s *schema.Sequence) error {
	exists, err := u.ad.SequenceExists(ctx, tx, g.Name, s.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: check sequence %s", g.Name, s.Name), err)
	}
	if !exists {
		if err := u.ad.CreateSequence(ctx, tx, g.Name, s); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: create sequence %s", g.Name, s.Name), err)
		}
		return nil
	}
	live, err := u.ad.GetSequenceInfo(ctx, tx, g.Name, s.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: read sequence %s", g.Name, s.Name), err)
	}
	if !live.Reflects(s) {
		if err := u.ad.AlterSequence(ctx, tx, g.Name, s); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: alter sequence %s", g.Name, s.Name), err)
		}
	}
	return nil
}

// upgradeTable creates t if it does not exist yet, otherwise diffs its
// live columns and primary key against the model and issues only the
// DDL the dbmeta.Reflects oracle says is needed.
func (u *Updater) upgradeTable(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	exists, err := u.ad.TableExists(ctx, tx, t.GrainName(), t.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: check existence", t.Name), err)
	}
	if !exists {
		if err := u.ad.CreateTable(ctx, tx, t); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: create", t.Name), err)
		}
		if t.Versioned {
			if err := u.ensureRecversionColumn(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	}

	liveCols, err := u.ad.GetColumns(ctx, tx, t.GrainName(), t.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: list columns", t.Name), err)
	}
	for _, c := range t.Columns() {
		if !liveCols[c.Name] {
			if err := u.ad.CreateColumn(ctx, tx, t.GrainName(), t.Name, c); err != nil {
				return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: create column %s", t.Name, c.Name), err)
			}
			continue
		}
		info, err := u.ad.GetColumnInfo(ctx, tx, t.GrainName(), t.Name, c.Name)
		if err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: read column %s", t.Name, c.Name), err)
		}
		if !info.Reflects(c, u.ad) {
			if err := u.ad.UpdateColumn(ctx, tx, t.GrainName(), t.Name, c, info); err != nil {
				return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: update column %s", t.Name, c.Name), err)
			}
		}
	}

	if t.Versioned {
		if err := u.ensureRecversionColumn(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := u.upgradeTablePK(ctx, tx, t); err != nil {
		return err
	}
	if err := u.ad.ManageAutoIncrement(ctx, tx, t); err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: manage auto-increment", t.Name), err)
	}
	return nil
}

// ensureRecversionColumn creates the recversion column a versioned
// table's optimistic-concurrency trigger relies on, if it is not
// already present.
func (u *Updater) ensureRecversionColumn(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	liveCols, err := u.ad.GetColumns(ctx, tx, t.GrainName(), t.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: list columns for recversion sync", t.Name), err)
	}
	if liveCols["recversion"] {
		return nil
	}
	col := schema.NewIntegerColumn("recversion", false, false, "0")
	if err := u.ad.CreateColumn(ctx, tx, t.GrainName(), t.Name, col); err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: create recversion column", t.Name), err)
	}
	return nil
}

func (u *Updater) upgradeTablePK(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	live, exists, err := u.ad.GetPKInfo(ctx, tx, t.GrainName(), t.Name)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: read primary key", t.Name), err)
	}
	if !exists {
		if err := u.ad.CreatePK(ctx, tx, t); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: create primary key", t.Name), err)
		}
		return nil
	}
	if !live.Reflects(t) {
		if err := u.ad.DropPK(ctx, tx, t.GrainName(), t.Name, live.Name); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: drop stale primary key", t.Name), err)
		}
		if err := u.ad.CreatePK(ctx, tx, t); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: recreate primary key", t.Name), err)
		}
	}
	return nil
}

// upgradeMaterializedViews ensures every materialized view's backing
// table exists and its refresh triggers embed the current checksum
// marker, dropping, recreating and repopulating the table only when it
// is absent or its marker is missing or stale.
func (u *Updater) upgradeMaterializedViews(ctx context.Context, tx *sql.Tx, g *schema.Grain) error {
	byRefTable := make(map[*schema.Table][]*schema.MaterializedView)
	for _, mv := range g.MaterializedViews() {
		byRefTable[mv.RefTable] = append(byRefTable[mv.RefTable], mv)

		exists, err := u.ad.TableExists(ctx, tx, mv.GrainName(), mv.Name)
		if err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("materialized view %s: check table", mv.Name), err)
		}
		if exists {
			body, ok, err := u.ad.GetTriggerBody(ctx, tx, mv.RefTable.GrainName(), mv.RefTable.Name, "mv_ins")
			if err != nil {
				return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("materialized view %s: read trigger", mv.Name), err)
			}
			if !ok || !strings.Contains(body, mv.TriggerMarker()) {
				if err := u.ad.DropTable(ctx, tx, mv.GrainName(), mv.Name); err != nil {
					return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("materialized view %s: drop stale table", mv.Name), err)
				}
				exists = false
			}
		}
		if !exists {
			if err := u.ad.CreateTable(ctx, tx, &mv.Table); err != nil {
				return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("materialized view %s: create table", mv.Name), err)
			}
			if err := u.ad.InitDataForMaterializedView(ctx, tx, mv); err != nil {
				return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("materialized view %s: initialize data", mv.Name), err)
			}
		}
	}

	for refTable, mvs := range byRefTable {
		body, ok, err := u.ad.GetTriggerBody(ctx, tx, refTable.GrainName(), refTable.Name, "mv_ins")
		if err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: read MV trigger", refTable.Name), err)
		}
		if ok && allMarkersPresent(body, mvs) {
			continue
		}
		if err := u.ad.DropTableTriggersForMaterializedViews(ctx, tx, refTable); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: drop MV triggers", refTable.Name), err)
		}
		if err := u.ad.CreateTableTriggersForMaterializedViews(ctx, tx, refTable, mvs); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("table %s: create MV triggers", refTable.Name), err)
		}
	}
	return nil
}

func allMarkersPresent(triggerBody string, mvs []*schema.MaterializedView) bool {
	for _, mv := range mvs {
		if !strings.Contains(triggerBody, mv.TriggerMarker()) {
			return false
		}
	}
	return true
}

// processGrainMeta reconciles celesta.tables with the model's current
// table and materialized-view set, marking tables no longer declared
// as orphaned rather than dropping them outright.
func (u *Updater) processGrainMeta(ctx context.Context, tx *sql.Tx, g *schema.Grain) error {
	cur, err := u.ad.OpenTablesCursor(ctx, tx, u.sys)
	if err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: open tables cursor", g.Name), err)
	}
	if err := cur.Init(ctx); err != nil {
		return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: init tables cursor", g.Name), err)
	}

	declared := declaredTableNames(g)
	existing := make(map[string]bool)
	for {
		ok, err := cur.NextInSet(ctx)
		if err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: scan tables cursor", g.Name), err)
		}
		if !ok {
			break
		}
		row := cur.Get()
		if row.GrainID != g.Name {
			continue
		}
		existing[row.TableName] = true
		_, stillDeclared := declared[row.TableName]
		wantOrphaned := !stillDeclared
		if row.Orphaned != wantOrphaned {
			row.Orphaned = wantOrphaned
			cur.Set(row)
			if err := cur.Update(ctx); err != nil {
				return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: update tables row %s", g.Name, row.TableName), err)
			}
		}
	}

	for name, tableType := range declared {
		if existing[name] {
			continue
		}
		cur.Set(dbTablesRow(g.Name, name, tableType))
		if err := cur.Insert(ctx); err != nil {
			return cerr.UpgradeWrap(cerr.CodeDDLFailed, fmt.Sprintf("grain %s: insert tables row %s", g.Name, name), err)
		}
	}
	return nil
}

func declaredTableNames(g *schema.Grain) map[string]string {
	names := make(map[string]string)
	for _, t := range g.Tables() {
		names[t.Name] = "TABLE"
	}
	for _, mv := range g.MaterializedViews() {
		names[mv.Name] = "MATERIALIZED_VIEW"
	}
	return names
}

func dbTablesRow(grainName, tableName, tableType string) syscat.TablesRow {
	return syscat.TablesRow{GrainID: grainName, TableName: tableName, TableType: tableType, Orphaned: false}
}
