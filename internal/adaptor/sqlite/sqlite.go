// Package sqlite implements the adaptor.Adaptor capability set against
// SQLite, using database/sql with the mattn/go-sqlite3 driver. Because
// SQLite has no schema namespaces, grains are mapped to a table-name
// prefix (grainName + "_" + tableName), matching the "schema emulated
// by prefix" convention SQLite-backed tools in the pack use.
//
// Grounded on arkiliandb-Arkilian/internal/manifest/catalog.go for the
// database/sql usage style (single-writer *sql.DB, context-aware
// Exec/Query, "package: action: %w" error wrapping) and
// .../manifest/schema.go for the DDL-constant-building convention.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/celesta-db/celesta/internal/dbmeta"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
)

// Adaptor implements adaptor.Adaptor against a SQLite database.
type Adaptor struct {
	db *sql.DB
}

// Open opens a SQLite database at path in WAL mode with a bounded
// busy timeout and foreign keys enforced.
func Open(path string) (*Adaptor, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite adaptor: failed to open database: %w", err)
	}
	return &Adaptor{db: db}, nil
}

// DB exposes the underlying handle so callers can open transactions
// per grain upgrade.
func (a *Adaptor) DB() *sql.DB { return a.db }

// Close closes the database connection.
func (a *Adaptor) Close() error { return a.db.Close() }

func qualifiedName(grainName, tableName string) string {
	return grainName + "_" + tableName
}

// NormalizeDefault canonicalizes a default-value literal for
// comparison across model and live-database renderings. SQLite
// round-trips numeric and quoted-string defaults verbatim, so the
// only normalization needed is whitespace trimming.
func (a *Adaptor) NormalizeDefault(literal string) string {
	return strings.TrimSpace(literal)
}

func columnSQLType(c *schema.Column) string {
	switch c.Kind {
	case schema.KindInteger:
		return "INTEGER"
	case schema.KindFloating:
		return "REAL"
	case schema.KindString:
		return "TEXT"
	case schema.KindBinary:
		return "BLOB"
	case schema.KindBoolean:
		return "INTEGER"
	case schema.KindDateTime:
		return "TEXT"
	default:
		return "TEXT"
	}
}

func columnDDL(c *schema.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q %s", c.Name, columnSQLType(c))
	if c.Kind == schema.KindInteger && c.Identity {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		fmt.Fprintf(&b, " DEFAULT %s", c.Default)
	}
	if c.Kind == schema.KindBoolean {
		fmt.Fprintf(&b, " CHECK (%q IN (0, 1))", c.Name)
	}
	return b.String()
}

// TableExists reports whether the physical table backing
// (grainName, tableName) exists.
func (a *Adaptor) TableExists(ctx context.Context, tx *sql.Tx, grainName, tableName string) (bool, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		qualifiedName(grainName, tableName)).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite adaptor: TableExists: %w", err)
	}
	return true, nil
}

// UserTablesExist reports whether any non-system table exists, used
// by the updater's NON_EMPTY_DB guard.
func (a *Adaptor) UserTablesExist(ctx context.Context, tx *sql.Tx) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE 'celesta_%'").
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite adaptor: UserTablesExist: %w", err)
	}
	return count > 0, nil
}

// CreateSchemaIfNotExists is a no-op on SQLite: schemas are emulated
// by table-name prefix, so there is no namespace object to create.
func (a *Adaptor) CreateSchemaIfNotExists(ctx context.Context, tx *sql.Tx, grainName string) error {
	return nil
}

// CreateTable issues CREATE TABLE for t, including its PK inline.
func (a *Adaptor) CreateTable(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	cols := make([]string, 0, len(t.Columns())+1)
	hasIdentityPK := false
	for _, c := range t.Columns() {
		cols = append(cols, columnDDL(c))
		if c.Kind == schema.KindInteger && c.Identity {
			hasIdentityPK = true
		}
	}
	if !hasIdentityPK && len(t.PKColumns()) > 0 {
		quoted := make([]string, len(t.PKColumns()))
		for i, c := range t.PKColumns() {
			quoted[i] = fmt.Sprintf("%q", c)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", qualifiedName(t.GrainName(), t.Name), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateTable %s: %w", t.Name, err)
	}
	return nil
}

// DropTable drops the physical table backing (grainName, tableName).
func (a *Adaptor) DropTable(ctx context.Context, tx *sql.Tx, grainName, tableName string) error {
	ddl := fmt.Sprintf("DROP TABLE IF EXISTS %q", qualifiedName(grainName, tableName))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: DropTable %s: %w", tableName, err)
	}
	return nil
}

// GetColumns returns the set of live column names for a table.
func (a *Adaptor) GetColumns(ctx context.Context, tx *sql.Tx, grainName, tableName string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", qualifiedName(grainName, tableName)))
	if err != nil {
		return nil, fmt.Errorf("sqlite adaptor: GetColumns %s: %w", tableName, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("sqlite adaptor: GetColumns %s: scan: %w", tableName, err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

// CreateColumn adds a new column to an existing table.
func (a *Adaptor) CreateColumn(ctx context.Context, tx *sql.Tx, grainName, tableName string, c *schema.Column) error {
	ddl := fmt.Sprintf("ALTER TABLE %q ADD COLUMN %s", qualifiedName(grainName, tableName), columnDDL(c))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateColumn %s.%s: %w", tableName, c.Name, err)
	}
	return nil
}

// UpdateColumn alters an existing column's type/nullability/default.
// SQLite does not support ALTER COLUMN directly, so this drops the
// column and adds it again with the model's definition; the column's
// existing values are not carried over, and the table is not rebuilt.
func (a *Adaptor) UpdateColumn(ctx context.Context, tx *sql.Tx, grainName, tableName string, c *schema.Column, dbInfo dbmeta.DbColumnInfo) error {
	dropDDL := fmt.Sprintf("ALTER TABLE %q DROP COLUMN %q", qualifiedName(grainName, tableName), c.Name)
	if _, err := tx.ExecContext(ctx, dropDDL); err != nil {
		return fmt.Errorf("sqlite adaptor: UpdateColumn %s.%s: drop: %w", tableName, c.Name, err)
	}
	return a.CreateColumn(ctx, tx, grainName, tableName, c)
}

// GetColumnInfo introspects a single column's live shape.
func (a *Adaptor) GetColumnInfo(ctx context.Context, tx *sql.Tx, grainName, tableName, columnName string) (dbmeta.DbColumnInfo, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", qualifiedName(grainName, tableName)))
	if err != nil {
		return dbmeta.DbColumnInfo{}, fmt.Errorf("sqlite adaptor: GetColumnInfo %s.%s: %w", tableName, columnName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return dbmeta.DbColumnInfo{}, fmt.Errorf("sqlite adaptor: GetColumnInfo %s.%s: scan: %w", tableName, columnName, err)
		}
		if name != columnName {
			continue
		}
		return dbmeta.DbColumnInfo{
			Name:        name,
			Kind:        sqlTypeToKind(ctype),
			Nullable:    notnull == 0,
			Identity:    pk == 1 && strings.EqualFold(ctype, "INTEGER"),
			DefaultText: dflt.String,
		}, nil
	}
	return dbmeta.DbColumnInfo{}, fmt.Errorf("sqlite adaptor: GetColumnInfo %s.%s: column not found", tableName, columnName)
}

func sqlTypeToKind(sqlType string) schema.ColumnKind {
	switch strings.ToUpper(sqlType) {
	case "INTEGER":
		return schema.KindInteger
	case "REAL":
		return schema.KindFloating
	case "BLOB":
		return schema.KindBinary
	default:
		return schema.KindString
	}
}

// ManageAutoIncrement is a no-op on SQLite: AUTOINCREMENT is declared
// inline with the column and cannot be altered independently.
func (a *Adaptor) ManageAutoIncrement(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	return nil
}

// GetPKInfo introspects a table's live primary key columns.
func (a *Adaptor) GetPKInfo(ctx context.Context, tx *sql.Tx, grainName, tableName string) (dbmeta.DbPkInfo, bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", qualifiedName(grainName, tableName)))
	if err != nil {
		return dbmeta.DbPkInfo{}, false, fmt.Errorf("sqlite adaptor: GetPKInfo %s: %w", tableName, err)
	}
	defer rows.Close()

	type pkCol struct {
		name string
		seq  int
	}
	var cols []pkCol
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return dbmeta.DbPkInfo{}, false, fmt.Errorf("sqlite adaptor: GetPKInfo %s: scan: %w", tableName, err)
		}
		if pk > 0 {
			cols = append(cols, pkCol{name: name, seq: pk})
		}
	}
	if len(cols) == 0 {
		return dbmeta.DbPkInfo{}, false, nil
	}
	names := make([]string, len(cols))
	for _, c := range cols {
		names[c.seq-1] = c.name
	}
	return dbmeta.DbPkInfo{Name: qualifiedName(grainName, tableName) + "_pk", Columns: names}, true, nil
}

// CreatePK is a no-op on SQLite beyond table creation: the primary
// key is always declared inline in CREATE TABLE. A primary key that is
// missing or changed on an existing table is not added or rebuilt.
func (a *Adaptor) CreatePK(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	return nil
}

// DropPK is likewise a no-op: dropping a SQLite PK requires rebuilding
// the table, and the live primary key is left in place.
func (a *Adaptor) DropPK(ctx context.Context, tx *sql.Tx, grainName, tableName, pkName string) error {
	return nil
}

// GetFKInfo introspects every foreign key declared on tables within
// grainName.
func (a *Adaptor) GetFKInfo(ctx context.Context, tx *sql.Tx, grainName string) ([]dbmeta.DbFkInfo, error) {
	tableRows, err := tx.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name LIKE ?", grainName+"_%")
	if err != nil {
		return nil, fmt.Errorf("sqlite adaptor: GetFKInfo: list tables: %w", err)
	}
	defer tableRows.Close()

	var tables []string
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite adaptor: GetFKInfo: scan table: %w", err)
		}
		tables = append(tables, name)
	}
	if err := tableRows.Err(); err != nil {
		return nil, err
	}

	var out []dbmeta.DbFkInfo
	for _, table := range tables {
		fkRows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
		if err != nil {
			return nil, fmt.Errorf("sqlite adaptor: GetFKInfo %s: %w", table, err)
		}
		byID := map[int]*dbmeta.DbFkInfo{}
		for fkRows.Next() {
			var id, seq int
			var refTable, from, to, onUpdate, onDelete, match string
			if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
				fkRows.Close()
				return nil, fmt.Errorf("sqlite adaptor: GetFKInfo %s: scan: %w", table, err)
			}
			info, ok := byID[id]
			if !ok {
				info = &dbmeta.DbFkInfo{Name: fmt.Sprintf("%s_fk%d", table, id), TableName: table, ReferencedTableName: refTable}
				byID[id] = info
			}
			info.Columns = append(info.Columns, from)
			info.ReferencedColumns = append(info.ReferencedColumns, to)
		}
		fkRows.Close()
		for _, info := range byID {
			info.ReferencedGrainName = grainName
			out = append(out, *info)
		}
	}
	return out, nil
}

// CreateFK is a no-op on SQLite, which only accepts FKs declared at
// table-creation time: no foreign key is added, and CreateTable does
// not declare foreign keys either.
func (a *Adaptor) CreateFK(ctx context.Context, tx *sql.Tx, fk *schema.ForeignKey) error {
	return nil
}

// DropFK is likewise a no-op on SQLite.
func (a *Adaptor) DropFK(ctx context.Context, tx *sql.Tx, grainName, tableName, fkName string) error {
	return nil
}

// GetIndices introspects every index declared on tables within
// grainName, keyed by index name.
func (a *Adaptor) GetIndices(ctx context.Context, tx *sql.Tx, grainName string) (map[string]dbmeta.DbIndexInfo, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT name, tbl_name FROM sqlite_master WHERE type='index' AND tbl_name LIKE ? AND name NOT LIKE 'sqlite_%'",
		grainName+"_%")
	if err != nil {
		return nil, fmt.Errorf("sqlite adaptor: GetIndices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]dbmeta.DbIndexInfo)
	for rows.Next() {
		var name, tblName string
		if err := rows.Scan(&name, &tblName); err != nil {
			return nil, fmt.Errorf("sqlite adaptor: GetIndices: scan: %w", err)
		}
		colRows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", name))
		if err != nil {
			return nil, fmt.Errorf("sqlite adaptor: GetIndices %s: %w", name, err)
		}
		var cols []string
		for colRows.Next() {
			var seqno, cid int
			var colName string
			if err := colRows.Scan(&seqno, &cid, &colName); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("sqlite adaptor: GetIndices %s: scan col: %w", name, err)
			}
			cols = append(cols, colName)
		}
		colRows.Close()
		out[name] = dbmeta.DbIndexInfo{Name: name, TableName: strings.TrimPrefix(tblName, grainName+"_"), Columns: cols}
	}
	return out, rows.Err()
}

// CreateIndex issues CREATE INDEX for idx.
func (a *Adaptor) CreateIndex(ctx context.Context, tx *sql.Tx, idx *schema.Index) error {
	quoted := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	ddl := fmt.Sprintf("CREATE INDEX %q ON %q (%s)",
		idx.Name, qualifiedName(idx.Table.GrainName(), idx.Table.Name), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateIndex %s: %w", idx.Name, err)
	}
	return nil
}

// DropIndex drops an index by name.
func (a *Adaptor) DropIndex(ctx context.Context, tx *sql.Tx, grainName, indexName string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP INDEX IF EXISTS %q", indexName)); err != nil {
		return fmt.Errorf("sqlite adaptor: DropIndex %s: %w", indexName, err)
	}
	return nil
}

func sequenceTableName(grainName string) string {
	return grainName + "_celesta_sequences"
}

func (a *Adaptor) ensureSequenceTable(ctx context.Context, tx *sql.Tx, grainName string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		name TEXT PRIMARY KEY,
		current INTEGER NOT NULL,
		increment INTEGER NOT NULL,
		min INTEGER NOT NULL,
		max INTEGER NOT NULL,
		cycle INTEGER NOT NULL
	)`, sequenceTableName(grainName))
	_, err := tx.ExecContext(ctx, ddl)
	return err
}

// SequenceExists reports whether a sequence row exists for seqName.
func (a *Adaptor) SequenceExists(ctx context.Context, tx *sql.Tx, grainName, seqName string) (bool, error) {
	if err := a.ensureSequenceTable(ctx, tx, grainName); err != nil {
		return false, fmt.Errorf("sqlite adaptor: SequenceExists: %w", err)
	}
	var name string
	err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT name FROM %q WHERE name=?", sequenceTableName(grainName)), seqName).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite adaptor: SequenceExists: %w", err)
	}
	return true, nil
}

// GetSequenceInfo introspects a sequence's live parameters.
func (a *Adaptor) GetSequenceInfo(ctx context.Context, tx *sql.Tx, grainName, seqName string) (dbmeta.DbSequenceInfo, error) {
	var info dbmeta.DbSequenceInfo
	var cycle int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT current, increment, min, max, cycle FROM %q WHERE name=?", sequenceTableName(grainName)), seqName).
		Scan(&info.Start, &info.Increment, &info.Min, &info.Max, &cycle)
	if err != nil {
		return info, fmt.Errorf("sqlite adaptor: GetSequenceInfo %s: %w", seqName, err)
	}
	info.Name = seqName
	info.Cycle = cycle != 0
	return info, nil
}

// CreateSequence inserts a new sequence row.
func (a *Adaptor) CreateSequence(ctx context.Context, tx *sql.Tx, grainName string, s *schema.Sequence) error {
	if err := a.ensureSequenceTable(ctx, tx, grainName); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateSequence: %w", err)
	}
	cycle := 0
	if s.Cycle {
		cycle = 1
	}
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %q (name, current, increment, min, max, cycle) VALUES (?, ?, ?, ?, ?, ?)", sequenceTableName(grainName)),
		s.Name, s.Start, s.Increment, s.Min, s.Max, cycle)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: CreateSequence %s: %w", s.Name, err)
	}
	return nil
}

// AlterSequence updates an existing sequence row's parameters.
func (a *Adaptor) AlterSequence(ctx context.Context, tx *sql.Tx, grainName string, s *schema.Sequence) error {
	cycle := 0
	if s.Cycle {
		cycle = 1
	}
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %q SET increment=?, min=?, max=?, cycle=? WHERE name=?", sequenceTableName(grainName)),
		s.Increment, s.Min, s.Max, cycle, s.Name)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: AlterSequence %s: %w", s.Name, err)
	}
	return nil
}

func viewName(grainName, name string) string { return grainName + "_v_" + name }

// GetViewList lists the live views belonging to grainName.
func (a *Adaptor) GetViewList(ctx context.Context, tx *sql.Tx, grainName string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='view' AND name LIKE ?", grainName+"_v_%")
	if err != nil {
		return nil, fmt.Errorf("sqlite adaptor: GetViewList: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimPrefix(name, grainName+"_v_"))
	}
	return out, rows.Err()
}

// CreateView creates a live SQL view from v's declared columns and
// predicate expression.
func (a *Adaptor) CreateView(ctx context.Context, tx *sql.Tx, v *schema.View) error {
	ddl := fmt.Sprintf("CREATE VIEW %q AS SELECT %s", viewName(v.GrainName(), v.Name), strings.Join(v.Columns, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateView %s: %w", v.Name, err)
	}
	return nil
}

// DropView drops a view by name.
func (a *Adaptor) DropView(ctx context.Context, tx *sql.Tx, grainName, name string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS %q", viewName(grainName, name))); err != nil {
		return fmt.Errorf("sqlite adaptor: DropView %s: %w", name, err)
	}
	return nil
}

// CreateParameterizedView creates a live view for a parameterized
// view definition. Parameters are bound at query time by the
// row-cursor generator, not by this DDL step.
func (a *Adaptor) CreateParameterizedView(ctx context.Context, tx *sql.Tx, v *schema.ParameterizedView) error {
	ddl := fmt.Sprintf("CREATE VIEW %q AS SELECT %s", viewName(v.GrainName(), v.Name), strings.Join(v.Columns, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateParameterizedView %s: %w", v.Name, err)
	}
	return nil
}

// DropParameterizedView drops a parameterized view by name.
func (a *Adaptor) DropParameterizedView(ctx context.Context, tx *sql.Tx, grainName, name string) error {
	return a.DropView(ctx, tx, grainName, name)
}

func triggerName(grainName, tableName, suffix string) string {
	return fmt.Sprintf("%s_%s_%s", grainName, tableName, suffix)
}

// GetTriggerBody returns the SQL body of a named trigger, used by the
// updater to inspect a materialized view's embedded checksum marker.
func (a *Adaptor) GetTriggerBody(ctx context.Context, tx *sql.Tx, grainName, tableName, suffix string) (string, bool, error) {
	var sqlText sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type='trigger' AND name=?",
		triggerName(grainName, tableName, suffix)).Scan(&sqlText)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite adaptor: GetTriggerBody %s: %w", tableName, err)
	}
	return sqlText.String, true, nil
}

// DropTableTriggersForMaterializedViews drops the POST_INSERT/UPDATE/
// DELETE triggers a table's materialized views generated.
func (a *Adaptor) DropTableTriggersForMaterializedViews(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	for _, suffix := range []string{"mv_ins", "mv_upd", "mv_del"} {
		name := triggerName(t.GrainName(), t.Name, suffix)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %q", name)); err != nil {
			return fmt.Errorf("sqlite adaptor: DropTableTriggersForMaterializedViews %s: %w", t.Name, err)
		}
	}
	return nil
}

// CreateTableTriggersForMaterializedViews creates the AFTER INSERT
// trigger on t, embedding the checksum marker of every materialized
// view sourced from t as a SQL comment so a later run can detect
// staleness. The trigger body does not change any view rows, and no
// UPDATE or DELETE triggers are created.
func (a *Adaptor) CreateTableTriggersForMaterializedViews(ctx context.Context, tx *sql.Tx, t *schema.Table, mvs []*schema.MaterializedView) error {
	if len(mvs) == 0 {
		return nil
	}
	var markers []string
	for _, mv := range mvs {
		markers = append(markers, "-- "+mv.TriggerMarker())
	}
	insName := triggerName(t.GrainName(), t.Name, "mv_ins")
	ddl := fmt.Sprintf("CREATE TRIGGER %q AFTER INSERT ON %q BEGIN\n%s\nSELECT 1;\nEND",
		insName, qualifiedName(t.GrainName(), t.Name), strings.Join(markers, "\n"))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateTableTriggersForMaterializedViews %s: %w", t.Name, err)
	}
	return nil
}

// UpdateVersioningTrigger refreshes the optimistic-concurrency trigger
// that bumps a versioned table's recversion column on UPDATE.
func (a *Adaptor) UpdateVersioningTrigger(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	name := triggerName(t.GrainName(), t.Name, "recversion")
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %q", name)); err != nil {
		return fmt.Errorf("sqlite adaptor: UpdateVersioningTrigger %s: drop: %w", t.Name, err)
	}
	if !t.Versioned {
		return nil
	}
	qname := qualifiedName(t.GrainName(), t.Name)
	ddl := fmt.Sprintf(
		"CREATE TRIGGER %q AFTER UPDATE ON %q BEGIN UPDATE %q SET recversion = OLD.recversion + 1 WHERE rowid = NEW.rowid; END",
		name, qname, qname)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: UpdateVersioningTrigger %s: %w", t.Name, err)
	}
	return nil
}

// InitDataForMaterializedView populates mv's table by selecting from
// its source table.
func (a *Adaptor) InitDataForMaterializedView(ctx context.Context, tx *sql.Tx, mv *schema.MaterializedView) error {
	cols := make([]string, 0, len(mv.RefTable.Columns()))
	for _, c := range mv.RefTable.Columns() {
		cols = append(cols, fmt.Sprintf("%q", c.Name))
	}
	ddl := fmt.Sprintf("INSERT INTO %q SELECT %s FROM %q",
		qualifiedName(mv.GrainName(), mv.Name), strings.Join(cols, ", "), qualifiedName(mv.RefTable.GrainName(), mv.RefTable.Name))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite adaptor: InitDataForMaterializedView %s: %w", mv.Name, err)
	}
	return nil
}

// CreateSysObjects creates the celesta.grains and celesta.tables
// system catalog tables.
func (a *Adaptor) CreateSysObjects(ctx context.Context, tx *sql.Tx, sysSchemaName string) error {
	grainsDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		length INTEGER NOT NULL,
		checksum INTEGER NOT NULL,
		state INTEGER NOT NULL CHECK (state IN (0,1,2,3,4)),
		lastmodified INTEGER NOT NULL,
		message TEXT NOT NULL
	)`, qualifiedName(sysSchemaName, "grains"))
	if _, err := tx.ExecContext(ctx, grainsDDL); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateSysObjects grains: %w", err)
	}

	tablesDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		grainid TEXT NOT NULL,
		tablename TEXT NOT NULL,
		tabletype TEXT NOT NULL,
		orphaned INTEGER NOT NULL CHECK (orphaned IN (0,1)),
		PRIMARY KEY (grainid, tablename)
	)`, qualifiedName(sysSchemaName, "tables"))
	if _, err := tx.ExecContext(ctx, tablesDDL); err != nil {
		return fmt.Errorf("sqlite adaptor: CreateSysObjects tables: %w", err)
	}
	return nil
}

// grainsCursor is the SQLite-backed syscat.GrainsCursor: it wraps a
// single *sql.Rows scan buffer plus a current row, matching the
// generated-cursor lifecycle of the original TablesCursor (parse into
// a buffer, Get/Set the buffer, NextInSet advances it).
type grainsCursor struct {
	tx        *sql.Tx
	tableName string
	ctx       CallContextHolder

	rows *sql.Rows
	cur  syscat.GrainsRow
}

// CallContextHolder carries the ambient (grain, connection) pair a
// cursor needs but treats as opaque, per syscat.CallContext.
type CallContextHolder struct {
	syscat.CallContext
}

func (c *grainsCursor) Init(ctx context.Context) error {
	rows, err := c.tx.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, version, length, checksum, state, lastmodified, message FROM %q", c.tableName))
	if err != nil {
		return fmt.Errorf("sqlite adaptor: grainsCursor.Init: %w", err)
	}
	c.rows = rows
	return nil
}

func (c *grainsCursor) Get() syscat.GrainsRow { return c.cur }
func (c *grainsCursor) Set(row syscat.GrainsRow) { c.cur = row }

func (c *grainsCursor) Insert(ctx context.Context) error {
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %q (id, version, length, checksum, state, lastmodified, message) VALUES (?, ?, ?, ?, ?, ?, ?)", c.tableName),
		c.cur.ID, c.cur.Version, c.cur.Length, c.cur.Checksum, int(c.cur.State), c.cur.LastModified, c.cur.Message)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: grainsCursor.Insert %s: %w", c.cur.ID, err)
	}
	return nil
}

func (c *grainsCursor) Update(ctx context.Context) error {
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %q SET version=?, length=?, checksum=?, state=?, lastmodified=?, message=? WHERE id=?", c.tableName),
		c.cur.Version, c.cur.Length, c.cur.Checksum, int(c.cur.State), c.cur.LastModified, c.cur.Message, c.cur.ID)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: grainsCursor.Update %s: %w", c.cur.ID, err)
	}
	return nil
}

func (c *grainsCursor) NextInSet(ctx context.Context) (bool, error) {
	if c.rows == nil {
		return false, nil
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		c.rows.Close()
		c.rows = nil
		return false, err
	}
	var state int
	if err := c.rows.Scan(&c.cur.ID, &c.cur.Version, &c.cur.Length, &c.cur.Checksum, &state, &c.cur.LastModified, &c.cur.Message); err != nil {
		return false, fmt.Errorf("sqlite adaptor: grainsCursor.NextInSet: scan: %w", err)
	}
	c.cur.State = syscat.GrainState(state)
	return true, nil
}

func (c *grainsCursor) CallContext() syscat.CallContext { return c.ctx.CallContext }

// OpenGrainsCursor opens a cursor over sysSchemaName's grains table.
func (a *Adaptor) OpenGrainsCursor(ctx context.Context, tx *sql.Tx, sysSchemaName string) (syscat.GrainsCursor, error) {
	return &grainsCursor{tx: tx, tableName: qualifiedName(sysSchemaName, "grains")}, nil
}

// tablesCursor is the SQLite-backed syscat.TablesCursor, grounded on
// the same generated-cursor shape as grainsCursor above.
type tablesCursor struct {
	tx        *sql.Tx
	tableName string
	ctx       CallContextHolder

	rows *sql.Rows
	cur  syscat.TablesRow
}

func (c *tablesCursor) Init(ctx context.Context) error {
	rows, err := c.tx.QueryContext(ctx, fmt.Sprintf(
		"SELECT grainid, tablename, tabletype, orphaned FROM %q", c.tableName))
	if err != nil {
		return fmt.Errorf("sqlite adaptor: tablesCursor.Init: %w", err)
	}
	c.rows = rows
	return nil
}

func (c *tablesCursor) Get() syscat.TablesRow { return c.cur }
func (c *tablesCursor) Set(row syscat.TablesRow) { c.cur = row }

func (c *tablesCursor) Insert(ctx context.Context) error {
	orphaned := 0
	if c.cur.Orphaned {
		orphaned = 1
	}
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %q (grainid, tablename, tabletype, orphaned) VALUES (?, ?, ?, ?)", c.tableName),
		c.cur.GrainID, c.cur.TableName, c.cur.TableType, orphaned)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: tablesCursor.Insert %s.%s: %w", c.cur.GrainID, c.cur.TableName, err)
	}
	return nil
}

func (c *tablesCursor) Update(ctx context.Context) error {
	orphaned := 0
	if c.cur.Orphaned {
		orphaned = 1
	}
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %q SET tabletype=?, orphaned=? WHERE grainid=? AND tablename=?", c.tableName),
		c.cur.TableType, orphaned, c.cur.GrainID, c.cur.TableName)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: tablesCursor.Update %s.%s: %w", c.cur.GrainID, c.cur.TableName, err)
	}
	return nil
}

func (c *tablesCursor) Delete(ctx context.Context) error {
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %q WHERE grainid=? AND tablename=?", c.tableName), c.cur.GrainID, c.cur.TableName)
	if err != nil {
		return fmt.Errorf("sqlite adaptor: tablesCursor.Delete %s.%s: %w", c.cur.GrainID, c.cur.TableName, err)
	}
	return nil
}

func (c *tablesCursor) NextInSet(ctx context.Context) (bool, error) {
	if c.rows == nil {
		return false, nil
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		c.rows.Close()
		c.rows = nil
		return false, err
	}
	var orphaned int
	if err := c.rows.Scan(&c.cur.GrainID, &c.cur.TableName, &c.cur.TableType, &orphaned); err != nil {
		return false, fmt.Errorf("sqlite adaptor: tablesCursor.NextInSet: scan: %w", err)
	}
	c.cur.Orphaned = orphaned != 0
	return true, nil
}

func (c *tablesCursor) CallContext() syscat.CallContext { return c.ctx.CallContext }

// OpenTablesCursor opens a cursor over sysSchemaName's tables table.
func (a *Adaptor) OpenTablesCursor(ctx context.Context, tx *sql.Tx, sysSchemaName string) (syscat.TablesCursor, error) {
	return &tablesCursor{tx: tx, tableName: qualifiedName(sysSchemaName, "tables")}, nil
}
