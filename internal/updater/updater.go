// Package updater drives the per-grain upgrade state machine: for
// each grain in a finalized score, in dependency order, it decides
// whether the live database needs to change and, if so, runs a fixed
// sequence of DDL phases inside one transaction, then records the
// outcome in the system catalog (celesta.grains, celesta.tables) via
// a transaction of its own so the status survives even if the DDL
// transaction rolled back.
//
// Grounded on arkiliandb-Arkilian/internal/manifest/catalog.go's
// transaction discipline (BeginTx + defer Rollback + explicit Commit)
// and its "manifest: action: %w" error-wrapping convention.
package updater

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/celesta-db/celesta/internal/adaptor"
	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/syscat"
	"github.com/celesta-db/celesta/internal/version"
)

// Updater runs the upgrade state machine against one database through
// one Adaptor.
type Updater struct {
	db  *sql.DB
	ad  adaptor.Adaptor
	sys string // name of the system grain, holding celesta.grains/tables
	log *logrus.Logger
}

// New builds an Updater. sysGrainName names the system grain whose
// tables hold upgrade state; log defaults to logrus.StandardLogger()
// when nil.
func New(db *sql.DB, ad adaptor.Adaptor, sysGrainName string, log *logrus.Logger) *Updater {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Updater{db: db, ad: ad, sys: sysGrainName, log: log}
}

// UpdateSystemSchema creates the system grain's schema and the
// celesta.grains/celesta.tables catalog tables if they do not already
// exist. It must run once before UpdateDb.
//
// If the grains table is missing but the database already has other
// user tables, this refuses with CodeNonEmptyDB unless
// forceDDInitialize is true — an unversioned database with existing
// tables is either a mistake (pointed at the wrong DSN) or a database
// nobody has told celesta about yet, and either way it shouldn't be
// silently claimed.
func (u *Updater) UpdateSystemSchema(ctx context.Context, forceDDInitialize bool) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("updater: UpdateSystemSchema: begin: %w", err)
	}
	defer tx.Rollback()

	grainsExist, err := u.ad.TableExists(ctx, tx, u.sys, "grains")
	if err != nil {
		return fmt.Errorf("updater: UpdateSystemSchema: check grains table: %w", err)
	}
	if !grainsExist && !forceDDInitialize {
		userTables, err := u.ad.UserTablesExist(ctx, tx)
		if err != nil {
			return fmt.Errorf("updater: UpdateSystemSchema: check user tables: %w", err)
		}
		if userTables {
			return cerr.Upgrade(cerr.CodeNonEmptyDB,
				"database has existing user tables but no %s.grains catalog; pass forceDDInitialize to adopt it", u.sys)
		}
	}

	if err := u.ad.CreateSchemaIfNotExists(ctx, tx, u.sys); err != nil {
		return fmt.Errorf("updater: UpdateSystemSchema: %w", err)
	}
	if err := u.ad.CreateSysObjects(ctx, tx, u.sys); err != nil {
		return fmt.Errorf("updater: UpdateSystemSchema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("updater: UpdateSystemSchema: commit: %w", err)
	}
	return nil
}

// needToUpgrade decides, for one grain, whether its live catalog row
// permits and requires an upgrade run.
//
//   - no row yet: first deployment, always upgrade.
//   - row LOCKed: an operator has pinned this grain; skip it
//     unconditionally, regardless of how its version compares.
//   - row in ERROR: the previous run failed; refuse until an operator
//     clears it, since silently retrying could compound a bad state.
//   - row in RECOVER or UPGRADING (a previous run was interrupted):
//     upgrade, before any version comparison.
//   - version comparison against the stored version disagrees in both
//     directions across tags: VERSION_INCONSISTENT.
//   - the model version is strictly lower: VERSION_DOWNGRADE.
//   - the model version is strictly higher: upgrade.
//   - equal version: upgrade only if the source changed (length or
//     checksum drift).
func needToUpgrade(g *schema.Grain, row syscat.GrainsRow, rowExists bool) (bool, error) {
	if !rowExists {
		return true, nil
	}
	if row.State == syscat.StateLock {
		return false, nil
	}
	if row.State == syscat.StateError {
		return false, cerr.Upgrade(cerr.CodeUnexpectedState,
			"grain %s: previous upgrade left the grain in ERROR state: %s", g.Name, row.Message)
	}
	if row.State == syscat.StateRecover || row.State == syscat.StateUpgrading {
		return true, nil
	}

	storedVersion, err := version.Parse(row.Version)
	if err != nil {
		return false, cerr.Wrap(cerr.CategoryUpgrade, cerr.CodeUnexpectedState,
			fmt.Sprintf("grain %s: stored version %q is unparsable", g.Name, row.Version), err)
	}

	switch g.Version.Compare(storedVersion) {
	case version.Inconsistent:
		return false, cerr.Upgrade(cerr.CodeVersionInconsistent,
			"grain %s: model version %q is inconsistent with stored version %q", g.Name, g.Version.String(), row.Version)
	case version.Lower:
		return false, cerr.Upgrade(cerr.CodeVersionDowngrade,
			"grain %s: model version %q is lower than stored version %q", g.Name, g.Version.String(), row.Version)
	case version.Greater:
		return true, nil
	default: // Equals
		if row.Length != g.Length || row.Checksum != g.Checksum {
			return true, nil
		}
		return false, nil
	}
}

// UpdateDb runs the upgrade state machine over every grain in score,
// which must already be Score.Finalize()d, in ascending
// DependencyOrder. A single grain's failure is recorded against that
// grain's catalog row and does not prevent independent grains from
// being processed; UpdateDb returns a combined error naming every
// grain that failed.
func (u *Updater) UpdateDb(ctx context.Context, score *schema.Score) error {
	runID := uuid.New().String()
	log := u.log.WithField("run_id", runID)

	grains := append([]*schema.Grain(nil), score.Grains()...)
	sort.SliceStable(grains, func(i, j int) bool {
		return grains[i].DependencyOrder() < grains[j].DependencyOrder()
	})

	log.WithField("grains", len(grains)).Info("starting update run")

	var failed []string
	for _, g := range grains {
		if err := u.upgradeGrain(ctx, g); err != nil {
			log.WithFields(logrus.Fields{"grain": g.Name, "error": err}).Error("grain upgrade failed")
			failed = append(failed, fmt.Sprintf("%s: %v", g.Name, err))
		}
	}
	if len(failed) > 0 {
		return cerr.Upgrade(cerr.CodeDDLFailed, "updater: %d grain(s) failed to upgrade: %v", len(failed), failed)
	}
	log.Info("update run complete")
	return nil
}

// upgradeGrain implements one iteration of the per-grain state
// machine: read status, decide, mark UPGRADING, run DDL, mark
// READY/ERROR. The status writes use their own short transactions so
// they are visible independently of the DDL transaction's outcome.
func (u *Updater) upgradeGrain(ctx context.Context, g *schema.Grain) error {
	row, exists, err := u.readGrainStatus(ctx, g.Name)
	if err != nil {
		return fmt.Errorf("updater: grain %s: read status: %w", g.Name, err)
	}
	if exists && row.State != syscat.StateError && !syscat.AcceptableOnStartup(row.State) {
		return cerr.Upgrade(cerr.CodeUnexpectedState,
			"grain %s: stored state %s does not permit an upgrade run", g.Name, row.State)
	}

	upgrade, err := needToUpgrade(g, row, exists)
	if err != nil {
		return err
	}
	if !upgrade {
		u.log.WithField("grain", g.Name).Debug("grain already up to date")
		return nil
	}

	if err := u.writeGrainStatus(ctx, g.Name, syscat.StateUpgrading, g.Version.String(), g.Length, g.Checksum, "", exists); err != nil {
		return fmt.Errorf("updater: grain %s: mark UPGRADING: %w", g.Name, err)
	}

	ddlErr := u.runGrainDDL(ctx, g)
	if ddlErr != nil {
		msg := formatErrorMessage(g, ddlErr)
		// The DDL transaction rolled back, so celesta.grains must keep
		// reflecting the last successfully-applied version/length/checksum,
		// not the attempted ones; the attempted values only survive in msg.
		prevVersion, prevLength, prevChecksum := row.Version, row.Length, row.Checksum
		if err := u.writeGrainStatus(ctx, g.Name, syscat.StateError, prevVersion, prevLength, prevChecksum, msg, true); err != nil {
			return fmt.Errorf("updater: grain %s: mark ERROR: %w", g.Name, err)
		}
		return ddlErr
	}

	if err := u.writeGrainStatus(ctx, g.Name, syscat.StateReady, g.Version.String(), g.Length, g.Checksum, "", true); err != nil {
		return fmt.Errorf("updater: grain %s: mark READY: %w", g.Name, err)
	}
	return nil
}

// formatErrorMessage renders the "{version}/{length}/{08X}: {msg}"
// layout for a grain's stored error message, so an operator
// inspecting celesta.grains can identify which source revision
// produced the failure.
func formatErrorMessage(g *schema.Grain, err error) string {
	return fmt.Sprintf("%s/%d/%08X: %s", g.Version.String(), g.Length, g.Checksum, err.Error())
}

func (u *Updater) readGrainStatus(ctx context.Context, grainName string) (syscat.GrainsRow, bool, error) {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return syscat.GrainsRow{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cur, err := u.ad.OpenGrainsCursor(ctx, tx, u.sys)
	if err != nil {
		return syscat.GrainsRow{}, false, err
	}
	if err := cur.Init(ctx); err != nil {
		return syscat.GrainsRow{}, false, err
	}
	for {
		ok, err := cur.NextInSet(ctx)
		if err != nil {
			return syscat.GrainsRow{}, false, err
		}
		if !ok {
			return syscat.GrainsRow{}, false, nil
		}
		if row := cur.Get(); row.ID == grainName {
			return row, true, nil
		}
	}
}

func (u *Updater) writeGrainStatus(ctx context.Context, grainName string, state syscat.GrainState, ver string, length int, checksum uint32, message string, exists bool) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cur, err := u.ad.OpenGrainsCursor(ctx, tx, u.sys)
	if err != nil {
		return err
	}
	row := syscat.GrainsRow{
		ID:           grainName,
		Version:      ver,
		Length:       length,
		Checksum:     checksum,
		State:        state,
		LastModified: nowUnix(),
		Message:      message,
	}
	cur.Set(row)
	if exists {
		if err := cur.Update(ctx); err != nil {
			return err
		}
	} else {
		if err := cur.Insert(ctx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// nowUnix is a thin indirection over time.Now so it stays the single
// place a real clock touches this package.
func nowUnix() int64 { return time.Now().Unix() }
