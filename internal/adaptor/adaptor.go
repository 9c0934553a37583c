// Package adaptor declares the DB adaptor capability set the updater
// depends on. Core code never issues SQL directly: every DDL/DML
// operation the updater needs is a method on this interface,
// implemented per dialect by adaptor/sqlite and adaptor/mysql.
package adaptor

import (
	"context"
	"database/sql"

	"github.com/celesta-db/celesta/internal/dbmeta"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
)

// Adaptor is the full dialect-specific capability set the updater
// drives a database through. All methods take a *sql.Tx so callers
// control transaction boundaries, following a one-transaction-per-
// grain-upgrade discipline.
type Adaptor interface {
	dbmeta.Normalizer

	// Schema
	TableExists(ctx context.Context, tx *sql.Tx, grainName, tableName string) (bool, error)
	UserTablesExist(ctx context.Context, tx *sql.Tx) (bool, error)
	CreateSchemaIfNotExists(ctx context.Context, tx *sql.Tx, grainName string) error

	// Tables
	CreateTable(ctx context.Context, tx *sql.Tx, t *schema.Table) error
	DropTable(ctx context.Context, tx *sql.Tx, grainName, tableName string) error
	GetColumns(ctx context.Context, tx *sql.Tx, grainName, tableName string) (map[string]bool, error)
	CreateColumn(ctx context.Context, tx *sql.Tx, grainName, tableName string, c *schema.Column) error
	UpdateColumn(ctx context.Context, tx *sql.Tx, grainName, tableName string, c *schema.Column, dbInfo dbmeta.DbColumnInfo) error
	GetColumnInfo(ctx context.Context, tx *sql.Tx, grainName, tableName, columnName string) (dbmeta.DbColumnInfo, error)
	ManageAutoIncrement(ctx context.Context, tx *sql.Tx, t *schema.Table) error

	// Keys
	GetPKInfo(ctx context.Context, tx *sql.Tx, grainName, tableName string) (dbmeta.DbPkInfo, bool, error)
	CreatePK(ctx context.Context, tx *sql.Tx, t *schema.Table) error
	DropPK(ctx context.Context, tx *sql.Tx, grainName, tableName, pkName string) error
	GetFKInfo(ctx context.Context, tx *sql.Tx, grainName string) ([]dbmeta.DbFkInfo, error)
	CreateFK(ctx context.Context, tx *sql.Tx, fk *schema.ForeignKey) error
	DropFK(ctx context.Context, tx *sql.Tx, grainName, tableName, fkName string) error

	// Indices
	GetIndices(ctx context.Context, tx *sql.Tx, grainName string) (map[string]dbmeta.DbIndexInfo, error)
	CreateIndex(ctx context.Context, tx *sql.Tx, idx *schema.Index) error
	DropIndex(ctx context.Context, tx *sql.Tx, grainName, indexName string) error

	// Sequences
	SequenceExists(ctx context.Context, tx *sql.Tx, grainName, seqName string) (bool, error)
	GetSequenceInfo(ctx context.Context, tx *sql.Tx, grainName, seqName string) (dbmeta.DbSequenceInfo, error)
	CreateSequence(ctx context.Context, tx *sql.Tx, grainName string, s *schema.Sequence) error
	AlterSequence(ctx context.Context, tx *sql.Tx, grainName string, s *schema.Sequence) error

	// Views
	GetViewList(ctx context.Context, tx *sql.Tx, grainName string) ([]string, error)
	CreateView(ctx context.Context, tx *sql.Tx, v *schema.View) error
	DropView(ctx context.Context, tx *sql.Tx, grainName, viewName string) error
	CreateParameterizedView(ctx context.Context, tx *sql.Tx, v *schema.ParameterizedView) error
	DropParameterizedView(ctx context.Context, tx *sql.Tx, grainName, viewName string) error

	// Materialized views / triggers
	GetTriggerBody(ctx context.Context, tx *sql.Tx, grainName, tableName, triggerSuffix string) (string, bool, error)
	DropTableTriggersForMaterializedViews(ctx context.Context, tx *sql.Tx, t *schema.Table) error
	CreateTableTriggersForMaterializedViews(ctx context.Context, tx *sql.Tx, t *schema.Table, mvs []*schema.MaterializedView) error
	UpdateVersioningTrigger(ctx context.Context, tx *sql.Tx, t *schema.Table) error
	InitDataForMaterializedView(ctx context.Context, tx *sql.Tx, mv *schema.MaterializedView) error

	// System init
	CreateSysObjects(ctx context.Context, tx *sql.Tx, sysSchemaName string) error

	// System catalog cursors. Core code drives the upgrade state
	// machine entirely through these typed cursors; no SQL against
	// celesta.grains/celesta.tables appears outside the adaptor
	// package.
	OpenGrainsCursor(ctx context.Context, tx *sql.Tx, sysSchemaName string) (syscat.GrainsCursor, error)
	OpenTablesCursor(ctx context.Context, tx *sql.Tx, sysSchemaName string) (syscat.TablesCursor, error)
}
