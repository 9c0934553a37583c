// Package mysql implements the adaptor.Adaptor capability set against
// MySQL/MariaDB, using database/sql with the go-sql-driver/mysql
// driver. Unlike adaptor/sqlite, grains map onto real schema
// namespaces (one MySQL database per grain) and most DDL (identity
// columns, foreign keys, triggers) is native rather than emulated.
//
// Grounded on arkiliandb-Arkilian/internal/manifest/catalog.go for the
// database/sql usage style and error-wrapping convention; MySQL system
// catalog access (information_schema) follows MySQL's own standard
// shape, there being no schema-diff library for MySQL in the pack.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spaolacci/murmur3"

	"github.com/celesta-db/celesta/internal/dbmeta"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
)

// mysqlMaxIdentifierLength is MySQL's limit on constraint/index names.
const mysqlMaxIdentifierLength = 64

// mysqlIdentifier shortens a synthesized name that would exceed
// MySQL's 64-byte identifier limit, replacing the overflow with an
// 8-hex-digit murmur3 hash of the full name so distinct long names
// stay distinct after truncation.
func mysqlIdentifier(name string) string {
	if len(name) <= mysqlMaxIdentifierLength {
		return name
	}
	suffix := fmt.Sprintf("_%08x", murmur3.Sum32([]byte(name)))
	keep := mysqlMaxIdentifierLength - len(suffix)
	return name[:keep] + suffix
}

// Adaptor implements adaptor.Adaptor against MySQL.
type Adaptor struct {
	db *sql.DB
}

// Open opens a MySQL database using dsn (a go-sql-driver/mysql DSN).
func Open(dsn string) (*Adaptor, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql adaptor: failed to open database: %w", err)
	}
	return &Adaptor{db: db}, nil
}

// DB exposes the underlying handle so callers can open transactions
// per grain upgrade.
func (a *Adaptor) DB() *sql.DB { return a.db }

// Close closes the database connection.
func (a *Adaptor) Close() error { return a.db.Close() }

// NormalizeDefault canonicalizes a default-value literal. MySQL wraps
// non-numeric defaults returned by information_schema in an extra
// layer of quoting that the model's literal never carries, so this
// strips a single layer of surrounding single quotes before comparing.
func (a *Adaptor) NormalizeDefault(literal string) string {
	trimmed := strings.TrimSpace(literal)
	if len(trimmed) >= 2 && trimmed[0] == '\'' && trimmed[len(trimmed)-1] == '\'' {
		return trimmed[1 : len(trimmed)-1]
	}
	return trimmed
}

func columnSQLType(c *schema.Column) string {
	switch c.Kind {
	case schema.KindInteger:
		return "BIGINT"
	case schema.KindFloating:
		return "DOUBLE"
	case schema.KindString:
		if c.MaxLength {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", c.Length)
	case schema.KindBinary:
		return "LONGBLOB"
	case schema.KindBoolean:
		return "TINYINT(1)"
	case schema.KindDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func columnDDL(c *schema.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s` %s", c.Name, columnSQLType(c))
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Identity {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.Default != "" {
		fmt.Fprintf(&b, " DEFAULT %s", c.Default)
	}
	return b.String()
}

// CreateSchemaIfNotExists creates a MySQL database (schema) for grainName.
func (a *Adaptor) CreateSchemaIfNotExists(ctx context.Context, tx *sql.Tx, grainName string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS `%s`", grainName)); err != nil {
		return fmt.Errorf("mysql adaptor: CreateSchemaIfNotExists %s: %w", grainName, err)
	}
	return nil
}

func qualified(grainName, name string) string { return fmt.Sprintf("`%s`.`%s`", grainName, name) }

// TableExists reports whether the physical table exists.
func (a *Adaptor) TableExists(ctx context.Context, tx *sql.Tx, grainName, tableName string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA=? AND TABLE_NAME=?",
		grainName, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("mysql adaptor: TableExists %s: %w", tableName, err)
	}
	return count > 0, nil
}

// UserTablesExist reports whether any non-system grain schema has
// tables, used by the updater's NON_EMPTY_DB guard.
func (a *Adaptor) UserTablesExist(ctx context.Context, tx *sql.Tx) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA NOT IN ('mysql','information_schema','performance_schema','sys')").
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("mysql adaptor: UserTablesExist: %w", err)
	}
	return count > 0, nil
}

// CreateTable issues CREATE TABLE for t, including its PK inline.
func (a *Adaptor) CreateTable(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	cols := make([]string, 0, len(t.Columns())+1)
	for _, c := range t.Columns() {
		cols = append(cols, columnDDL(c))
	}
	if len(t.PKColumns()) > 0 {
		quoted := make([]string, len(t.PKColumns()))
		for i, c := range t.PKColumns() {
			quoted[i] = fmt.Sprintf("`%s`", c)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s) ENGINE=InnoDB", qualified(t.GrainName(), t.Name), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateTable %s: %w", t.Name, err)
	}
	return nil
}

// DropTable drops the table.
func (a *Adaptor) DropTable(ctx context.Context, tx *sql.Tx, grainName, tableName string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified(grainName, tableName))); err != nil {
		return fmt.Errorf("mysql adaptor: DropTable %s: %w", tableName, err)
	}
	return nil
}

// GetColumns returns the set of live column names.
func (a *Adaptor) GetColumns(ctx context.Context, tx *sql.Tx, grainName, tableName string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA=? AND TABLE_NAME=?", grainName, tableName)
	if err != nil {
		return nil, fmt.Errorf("mysql adaptor: GetColumns %s: %w", tableName, err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// CreateColumn adds a column to an existing table.
func (a *Adaptor) CreateColumn(ctx context.Context, tx *sql.Tx, grainName, tableName string, c *schema.Column) error {
	ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", qualified(grainName, tableName), columnDDL(c))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateColumn %s.%s: %w", tableName, c.Name, err)
	}
	return nil
}

// UpdateColumn issues MODIFY COLUMN, MySQL's native ALTER-in-place.
func (a *Adaptor) UpdateColumn(ctx context.Context, tx *sql.Tx, grainName, tableName string, c *schema.Column, dbInfo dbmeta.DbColumnInfo) error {
	ddl := fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", qualified(grainName, tableName), columnDDL(c))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: UpdateColumn %s.%s: %w", tableName, c.Name, err)
	}
	return nil
}

// GetColumnInfo introspects a single column.
func (a *Adaptor) GetColumnInfo(ctx context.Context, tx *sql.Tx, grainName, tableName, columnName string) (dbmeta.DbColumnInfo, error) {
	var dataType, isNullable, extra string
	var columnDefault sql.NullString
	var charMaxLen sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT DATA_TYPE, IS_NULLABLE, EXTRA, COLUMN_DEFAULT, CHARACTER_MAXIMUM_LENGTH
		 FROM information_schema.COLUMNS WHERE TABLE_SCHEMA=? AND TABLE_NAME=? AND COLUMN_NAME=?`,
		grainName, tableName, columnName).Scan(&dataType, &isNullable, &extra, &columnDefault, &charMaxLen)
	if err != nil {
		return dbmeta.DbColumnInfo{}, fmt.Errorf("mysql adaptor: GetColumnInfo %s.%s: %w", tableName, columnName, err)
	}
	info := dbmeta.DbColumnInfo{
		Name:        columnName,
		Kind:        mysqlTypeToKind(dataType),
		Nullable:    isNullable == "YES",
		Identity:    strings.Contains(extra, "auto_increment"),
		DefaultText: columnDefault.String,
	}
	if info.Kind == schema.KindString {
		if charMaxLen.Valid {
			info.Length = int(charMaxLen.Int64)
		} else {
			info.MaxLength = true
		}
	}
	return info, nil
}

func mysqlTypeToKind(dataType string) schema.ColumnKind {
	switch strings.ToLower(dataType) {
	case "bigint", "int", "smallint", "tinyint":
		return schema.KindInteger
	case "double", "float", "decimal":
		return schema.KindFloating
	case "varchar", "text", "char", "longtext":
		return schema.KindString
	case "longblob", "blob", "varbinary":
		return schema.KindBinary
	case "datetime", "timestamp", "date":
		return schema.KindDateTime
	default:
		return schema.KindString
	}
}

// ManageAutoIncrement sets AUTO_INCREMENT=1 on identity tables, which
// MySQL raises to one past the current maximum id.
func (a *Adaptor) ManageAutoIncrement(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	for _, c := range t.Columns() {
		if c.Kind == schema.KindInteger && c.Identity {
			ddl := fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT=1", qualified(t.GrainName(), t.Name))
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("mysql adaptor: ManageAutoIncrement %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

// GetPKInfo introspects the live primary key.
func (a *Adaptor) GetPKInfo(ctx context.Context, tx *sql.Tx, grainName, tableName string) (dbmeta.DbPkInfo, bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE
		 WHERE TABLE_SCHEMA=? AND TABLE_NAME=? AND CONSTRAINT_NAME='PRIMARY' ORDER BY ORDINAL_POSITION`,
		grainName, tableName)
	if err != nil {
		return dbmeta.DbPkInfo{}, false, fmt.Errorf("mysql adaptor: GetPKInfo %s: %w", tableName, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return dbmeta.DbPkInfo{}, false, err
		}
		cols = append(cols, name)
	}
	if len(cols) == 0 {
		return dbmeta.DbPkInfo{}, false, nil
	}
	return dbmeta.DbPkInfo{Name: "PRIMARY", Columns: cols}, true, nil
}

// CreatePK adds a primary key constraint to an existing table.
func (a *Adaptor) CreatePK(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	quoted := make([]string, len(t.PKColumns()))
	for i, c := range t.PKColumns() {
		quoted[i] = fmt.Sprintf("`%s`", c)
	}
	ddl := fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", qualified(t.GrainName(), t.Name), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreatePK %s: %w", t.Name, err)
	}
	return nil
}

// DropPK drops the primary key constraint.
func (a *Adaptor) DropPK(ctx context.Context, tx *sql.Tx, grainName, tableName, pkName string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", qualified(grainName, tableName))); err != nil {
		return fmt.Errorf("mysql adaptor: DropPK %s: %w", tableName, err)
	}
	return nil
}

// GetFKInfo introspects every foreign key in grainName.
func (a *Adaptor) GetFKInfo(ctx context.Context, tx *sql.Tx, grainName string) ([]dbmeta.DbFkInfo, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT CONSTRAINT_NAME, TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		 FROM information_schema.KEY_COLUMN_USAGE
		 WHERE TABLE_SCHEMA=? AND REFERENCED_TABLE_NAME IS NOT NULL
		 ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`, grainName)
	if err != nil {
		return nil, fmt.Errorf("mysql adaptor: GetFKInfo: %w", err)
	}
	defer rows.Close()

	byName := map[string]*dbmeta.DbFkInfo{}
	var order []string
	for rows.Next() {
		var name, table, col, refSchema, refTable, refCol string
		if err := rows.Scan(&name, &table, &col, &refSchema, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("mysql adaptor: GetFKInfo: scan: %w", err)
		}
		info, ok := byName[name]
		if !ok {
			info = &dbmeta.DbFkInfo{Name: name, TableName: table, ReferencedGrainName: refSchema, ReferencedTableName: refTable}
			byName[name] = info
			order = append(order, name)
		}
		info.Columns = append(info.Columns, col)
		info.ReferencedColumns = append(info.ReferencedColumns, refCol)
	}
	out := make([]dbmeta.DbFkInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, rows.Err()
}

// CreateFK adds a native foreign key constraint.
func (a *Adaptor) CreateFK(ctx context.Context, tx *sql.Tx, fk *schema.ForeignKey) error {
	t := fk.ParentTable()
	localCols := make([]string, len(fk.Columns()))
	for i, c := range fk.Columns() {
		localCols[i] = fmt.Sprintf("`%s`", c)
	}
	refCols := make([]string, len(fk.ReferencedColumns()))
	for i, c := range fk.ReferencedColumns() {
		refCols[i] = fmt.Sprintf("`%s`", c)
	}
	name := mysqlIdentifier(fmt.Sprintf("fk_%s_%s", t.Name, strings.Join(fk.Columns(), "_")))
	ddl := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT `%s` FOREIGN KEY (%s) REFERENCES %s (%s)",
		qualified(t.GrainName(), t.Name), name, strings.Join(localCols, ", "),
		qualified(fk.ReferencedGrainName(), fk.ReferencedTableName()), strings.Join(refCols, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateFK %s: %w", name, err)
	}
	return nil
}

// DropFK drops a foreign key constraint by name.
func (a *Adaptor) DropFK(ctx context.Context, tx *sql.Tx, grainName, tableName, fkName string) error {
	ddl := fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY `%s`", qualified(grainName, tableName), fkName)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: DropFK %s: %w", fkName, err)
	}
	return nil
}

// GetIndices introspects every index in grainName.
func (a *Adaptor) GetIndices(ctx context.Context, tx *sql.Tx, grainName string) (map[string]dbmeta.DbIndexInfo, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT INDEX_NAME, TABLE_NAME, COLUMN_NAME FROM information_schema.STATISTICS
		 WHERE TABLE_SCHEMA=? AND INDEX_NAME != 'PRIMARY' ORDER BY INDEX_NAME, SEQ_IN_INDEX`, grainName)
	if err != nil {
		return nil, fmt.Errorf("mysql adaptor: GetIndices: %w", err)
	}
	defer rows.Close()
	out := make(map[string]dbmeta.DbIndexInfo)
	for rows.Next() {
		var name, table, col string
		if err := rows.Scan(&name, &table, &col); err != nil {
			return nil, err
		}
		info := out[name]
		info.Name = name
		info.TableName = table
		info.Columns = append(info.Columns, col)
		out[name] = info
	}
	return out, rows.Err()
}

// CreateIndex issues CREATE INDEX.
func (a *Adaptor) CreateIndex(ctx context.Context, tx *sql.Tx, idx *schema.Index) error {
	quoted := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		quoted[i] = fmt.Sprintf("`%s`", c)
	}
	ddl := fmt.Sprintf("CREATE INDEX `%s` ON %s (%s)", idx.Name, qualified(idx.Table.GrainName(), idx.Table.Name), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateIndex %s: %w", idx.Name, err)
	}
	return nil
}

// DropIndex drops an index by name; MySQL requires the owning table.
func (a *Adaptor) DropIndex(ctx context.Context, tx *sql.Tx, grainName, indexName string) error {
	var tableName string
	err := tx.QueryRowContext(ctx,
		"SELECT TABLE_NAME FROM information_schema.STATISTICS WHERE TABLE_SCHEMA=? AND INDEX_NAME=? LIMIT 1",
		grainName, indexName).Scan(&tableName)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mysql adaptor: DropIndex %s: locate table: %w", indexName, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP INDEX `%s` ON %s", indexName, qualified(grainName, tableName))); err != nil {
		return fmt.Errorf("mysql adaptor: DropIndex %s: %w", indexName, err)
	}
	return nil
}

func sequenceTableName(grainName string) string { return qualified(grainName, "celesta_sequences") }

func (a *Adaptor) ensureSequenceTable(ctx context.Context, tx *sql.Tx, grainName string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name VARCHAR(255) PRIMARY KEY,
		current BIGINT NOT NULL,
		increment BIGINT NOT NULL,
		minval BIGINT NOT NULL,
		maxval BIGINT NOT NULL,
		cycle TINYINT(1) NOT NULL
	) ENGINE=InnoDB`, sequenceTableName(grainName))
	_, err := tx.ExecContext(ctx, ddl)
	return err
}

// SequenceExists reports whether a sequence row exists.
func (a *Adaptor) SequenceExists(ctx context.Context, tx *sql.Tx, grainName, seqName string) (bool, error) {
	if err := a.ensureSequenceTable(ctx, tx, grainName); err != nil {
		return false, fmt.Errorf("mysql adaptor: SequenceExists: %w", err)
	}
	var name string
	err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT name FROM %s WHERE name=?", sequenceTableName(grainName)), seqName).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mysql adaptor: SequenceExists: %w", err)
	}
	return true, nil
}

// GetSequenceInfo introspects a sequence's live parameters.
func (a *Adaptor) GetSequenceInfo(ctx context.Context, tx *sql.Tx, grainName, seqName string) (dbmeta.DbSequenceInfo, error) {
	var info dbmeta.DbSequenceInfo
	var cycle int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT current, increment, minval, maxval, cycle FROM %s WHERE name=?", sequenceTableName(grainName)), seqName).
		Scan(&info.Start, &info.Increment, &info.Min, &info.Max, &cycle)
	if err != nil {
		return info, fmt.Errorf("mysql adaptor: GetSequenceInfo %s: %w", seqName, err)
	}
	info.Name = seqName
	info.Cycle = cycle != 0
	return info, nil
}

// CreateSequence inserts a new sequence row.
func (a *Adaptor) CreateSequence(ctx context.Context, tx *sql.Tx, grainName string, s *schema.Sequence) error {
	if err := a.ensureSequenceTable(ctx, tx, grainName); err != nil {
		return fmt.Errorf("mysql adaptor: CreateSequence: %w", err)
	}
	cycle := 0
	if s.Cycle {
		cycle = 1
	}
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (name, current, increment, minval, maxval, cycle) VALUES (?, ?, ?, ?, ?, ?)", sequenceTableName(grainName)),
		s.Name, s.Start, s.Increment, s.Min, s.Max, cycle)
	if err != nil {
		return fmt.Errorf("mysql adaptor: CreateSequence %s: %w", s.Name, err)
	}
	return nil
}

// AlterSequence updates an existing sequence row.
func (a *Adaptor) AlterSequence(ctx context.Context, tx *sql.Tx, grainName string, s *schema.Sequence) error {
	cycle := 0
	if s.Cycle {
		cycle = 1
	}
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET increment=?, minval=?, maxval=?, cycle=? WHERE name=?", sequenceTableName(grainName)),
		s.Increment, s.Min, s.Max, cycle, s.Name)
	if err != nil {
		return fmt.Errorf("mysql adaptor: AlterSequence %s: %w", s.Name, err)
	}
	return nil
}

// GetViewList lists live views in grainName.
func (a *Adaptor) GetViewList(ctx context.Context, tx *sql.Tx, grainName string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT TABLE_NAME FROM information_schema.VIEWS WHERE TABLE_SCHEMA=?", grainName)
	if err != nil {
		return nil, fmt.Errorf("mysql adaptor: GetViewList: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CreateView creates a live SQL view.
func (a *Adaptor) CreateView(ctx context.Context, tx *sql.Tx, v *schema.View) error {
	ddl := fmt.Sprintf("CREATE VIEW %s AS SELECT %s", qualified(v.GrainName(), v.Name), strings.Join(v.Columns, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateView %s: %w", v.Name, err)
	}
	return nil
}

// DropView drops a view.
func (a *Adaptor) DropView(ctx context.Context, tx *sql.Tx, grainName, name string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS %s", qualified(grainName, name))); err != nil {
		return fmt.Errorf("mysql adaptor: DropView %s: %w", name, err)
	}
	return nil
}

// CreateParameterizedView creates the underlying view for a
// parameterized view definition.
func (a *Adaptor) CreateParameterizedView(ctx context.Context, tx *sql.Tx, v *schema.ParameterizedView) error {
	ddl := fmt.Sprintf("CREATE VIEW %s AS SELECT %s", qualified(v.GrainName(), v.Name), strings.Join(v.Columns, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateParameterizedView %s: %w", v.Name, err)
	}
	return nil
}

// DropParameterizedView drops a parameterized view.
func (a *Adaptor) DropParameterizedView(ctx context.Context, tx *sql.Tx, grainName, name string) error {
	return a.DropView(ctx, tx, grainName, name)
}

func triggerName(tableName, suffix string) string { return fmt.Sprintf("%s_%s", tableName, suffix) }

// GetTriggerBody returns a trigger's SQL body, if any.
func (a *Adaptor) GetTriggerBody(ctx context.Context, tx *sql.Tx, grainName, tableName, suffix string) (string, bool, error) {
	var body string
	err := tx.QueryRowContext(ctx,
		"SELECT ACTION_STATEMENT FROM information_schema.TRIGGERS WHERE TRIGGER_SCHEMA=? AND TRIGGER_NAME=?",
		grainName, triggerName(tableName, suffix)).Scan(&body)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mysql adaptor: GetTriggerBody %s: %w", tableName, err)
	}
	return body, true, nil
}

// DropTableTriggersForMaterializedViews drops a table's MV refresh triggers.
func (a *Adaptor) DropTableTriggersForMaterializedViews(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	for _, suffix := range []string{"mv_ins", "mv_upd", "mv_del"} {
		name := triggerName(t.Name, suffix)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS `%s`.`%s`", t.GrainName(), name)); err != nil {
			return fmt.Errorf("mysql adaptor: DropTableTriggersForMaterializedViews %s: %w", t.Name, err)
		}
	}
	return nil
}

// CreateTableTriggersForMaterializedViews recreates the AFTER INSERT
// trigger on t, embedding each MV's checksum marker as a SQL comment
// so a later run can detect staleness.
func (a *Adaptor) CreateTableTriggersForMaterializedViews(ctx context.Context, tx *sql.Tx, t *schema.Table, mvs []*schema.MaterializedView) error {
	if len(mvs) == 0 {
		return nil
	}
	var markers []string
	for _, mv := range mvs {
		markers = append(markers, "-- "+mv.TriggerMarker())
	}
	name := triggerName(t.Name, "mv_ins")
	ddl := fmt.Sprintf("CREATE TRIGGER `%s`.`%s` AFTER INSERT ON %s FOR EACH ROW BEGIN\n%s\nEND",
		t.GrainName(), name, qualified(t.GrainName(), t.Name), strings.Join(markers, "\n"))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: CreateTableTriggersForMaterializedViews %s: %w", t.Name, err)
	}
	return nil
}

// UpdateVersioningTrigger refreshes the optimistic-concurrency trigger
// that bumps recversion on UPDATE for a versioned table.
func (a *Adaptor) UpdateVersioningTrigger(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	name := triggerName(t.Name, "recversion")
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS `%s`.`%s`", t.GrainName(), name)); err != nil {
		return fmt.Errorf("mysql adaptor: UpdateVersioningTrigger %s: drop: %w", t.Name, err)
	}
	if !t.Versioned {
		return nil
	}
	ddl := fmt.Sprintf(
		"CREATE TRIGGER `%s`.`%s` BEFORE UPDATE ON %s FOR EACH ROW SET NEW.recversion = OLD.recversion + 1",
		t.GrainName(), name, qualified(t.GrainName(), t.Name))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: UpdateVersioningTrigger %s: %w", t.Name, err)
	}
	return nil
}

// InitDataForMaterializedView populates mv's table from its source.
func (a *Adaptor) InitDataForMaterializedView(ctx context.Context, tx *sql.Tx, mv *schema.MaterializedView) error {
	cols := make([]string, 0, len(mv.RefTable.Columns()))
	for _, c := range mv.RefTable.Columns() {
		cols = append(cols, fmt.Sprintf("`%s`", c.Name))
	}
	ddl := fmt.Sprintf("INSERT INTO %s SELECT %s FROM %s",
		qualified(mv.GrainName(), mv.Name), strings.Join(cols, ", "), qualified(mv.RefTable.GrainName(), mv.RefTable.Name))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql adaptor: InitDataForMaterializedView %s: %w", mv.Name, err)
	}
	return nil
}

// CreateSysObjects creates the celesta.grains and celesta.tables
// system catalog tables inside the sysSchemaName schema.
func (a *Adaptor) CreateSysObjects(ctx context.Context, tx *sql.Tx, sysSchemaName string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS `%s`", sysSchemaName)); err != nil {
		return fmt.Errorf("mysql adaptor: CreateSysObjects schema: %w", err)
	}
	grainsDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		version VARCHAR(255) NOT NULL,
		length BIGINT NOT NULL,
		checksum BIGINT UNSIGNED NOT NULL,
		state TINYINT NOT NULL,
		lastmodified BIGINT NOT NULL,
		message TEXT NOT NULL
	) ENGINE=InnoDB`, qualified(sysSchemaName, "grains"))
	if _, err := tx.ExecContext(ctx, grainsDDL); err != nil {
		return fmt.Errorf("mysql adaptor: CreateSysObjects grains: %w", err)
	}
	tablesDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		grainid VARCHAR(255) NOT NULL,
		tablename VARCHAR(255) NOT NULL,
		tabletype VARCHAR(64) NOT NULL,
		orphaned TINYINT(1) NOT NULL,
		PRIMARY KEY (grainid, tablename)
	) ENGINE=InnoDB`, qualified(sysSchemaName, "tables"))
	if _, err := tx.ExecContext(ctx, tablesDDL); err != nil {
		return fmt.Errorf("mysql adaptor: CreateSysObjects tables: %w", err)
	}
	return nil
}

type grainsCursor struct {
	tx        *sql.Tx
	tableName string
	rows      *sql.Rows
	cur       syscat.GrainsRow
}

func (c *grainsCursor) Init(ctx context.Context) error {
	rows, err := c.tx.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, version, length, checksum, state, lastmodified, message FROM %s", c.tableName))
	if err != nil {
		return fmt.Errorf("mysql adaptor: grainsCursor.Init: %w", err)
	}
	c.rows = rows
	return nil
}

func (c *grainsCursor) Get() syscat.GrainsRow   { return c.cur }
func (c *grainsCursor) Set(row syscat.GrainsRow) { c.cur = row }

func (c *grainsCursor) Insert(ctx context.Context) error {
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, version, length, checksum, state, lastmodified, message) VALUES (?, ?, ?, ?, ?, ?, ?)", c.tableName),
		c.cur.ID, c.cur.Version, c.cur.Length, c.cur.Checksum, int(c.cur.State), c.cur.LastModified, c.cur.Message)
	if err != nil {
		return fmt.Errorf("mysql adaptor: grainsCursor.Insert %s: %w", c.cur.ID, err)
	}
	return nil
}

func (c *grainsCursor) Update(ctx context.Context) error {
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET version=?, length=?, checksum=?, state=?, lastmodified=?, message=? WHERE id=?", c.tableName),
		c.cur.Version, c.cur.Length, c.cur.Checksum, int(c.cur.State), c.cur.LastModified, c.cur.Message, c.cur.ID)
	if err != nil {
		return fmt.Errorf("mysql adaptor: grainsCursor.Update %s: %w", c.cur.ID, err)
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
		return false, fmt.Errorf("mysql adaptor: grainsCursor.NextInSet: scan: %w", err)
	}
	c.cur.State = syscat.GrainState(state)
	return true, nil
}

func (c *grainsCursor) CallContext() syscat.CallContext { return syscat.CallContext{} }

// OpenGrainsCursor opens a cursor over sysSchemaName's grains table.
func (a *Adaptor) OpenGrainsCursor(ctx context.Context, tx *sql.Tx, sysSchemaName string) (syscat.GrainsCursor, error) {
	return &grainsCursor{tx: tx, tableName: qualified(sysSchemaName, "grains")}, nil
}

type tablesCursor struct {
	tx        *sql.Tx
	tableName string
	rows      *sql.Rows
	cur       syscat.TablesRow
}

func (c *tablesCursor) Init(ctx context.Context) error {
	rows, err := c.tx.QueryContext(ctx, fmt.Sprintf("SELECT grainid, tablename, tabletype, orphaned FROM %s", c.tableName))
	if err != nil {
		return fmt.Errorf("mysql adaptor: tablesCursor.Init: %w", err)
	}
	c.rows = rows
	return nil
}

func (c *tablesCursor) Get() syscat.TablesRow   { return c.cur }
func (c *tablesCursor) Set(row syscat.TablesRow) { c.cur = row }

func (c *tablesCursor) Insert(ctx context.Context) error {
	orphaned := 0
	if c.cur.Orphaned {
		orphaned = 1
	}
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (grainid, tablename, tabletype, orphaned) VALUES (?, ?, ?, ?)", c.tableName),
		c.cur.GrainID, c.cur.TableName, c.cur.TableType, orphaned)
	if err != nil {
		return fmt.Errorf("mysql adaptor: tablesCursor.Insert %s.%s: %w", c.cur.GrainID, c.cur.TableName, err)
	}
	return nil
}

func (c *tablesCursor) Update(ctx context.Context) error {
	orphaned := 0
	if c.cur.Orphaned {
		orphaned = 1
	}
	_, err := c.tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET tabletype=?, orphaned=? WHERE grainid=? AND tablename=?", c.tableName),
		c.cur.TableType, orphaned, c.cur.GrainID, c.cur.TableName)
	if err != nil {
		return fmt.Errorf("mysql adaptor: tablesCursor.Update %s.%s: %w", c.cur.GrainID, c.cur.TableName, err)
	}
	return nil
}

func (c *tablesCursor) Delete(ctx context.Context) error {
	_, err := c.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE grainid=? AND tablename=?", c.tableName), c.cur.GrainID, c.cur.TableName)
	if err != nil {
		return fmt.Errorf("mysql adaptor: tablesCursor.Delete %s.%s: %w", c.cur.GrainID, c.cur.TableName, err)
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
		return false, fmt.Errorf("mysql adaptor: tablesCursor.NextInSet: scan: %w", err)
	}
	c.cur.Orphaned = orphaned != 0
	return true, nil
}

func (c *tablesCursor) CallContext() syscat.CallContext { return syscat.CallContext{} }

// OpenTablesCursor opens a cursor over sysSchemaName's tables table.
func (a *Adaptor) OpenTablesCursor(ctx context.Context, tx *sql.Tx, sysSchemaName string) (syscat.TablesCursor, error) {
	return &tablesCursor{tx: tx, tableName: qualified(sysSchemaName, "tables")}, nil
}
