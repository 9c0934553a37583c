// Package syscat defines the typed cursor contract the updater uses
// to read and write the two system catalog tables that live inside
// the system grain: celesta.grains, which records per-grain upgrade
// state, and celesta.tables, which tracks orphaned tables. The
// contract is deliberately narrow — get/set accessors plus
// init/insert/update/nextInSet/callContext — so any DB adaptor can
// supply a concrete cursor without the core depending on SQL directly.
package syscat

import "context"

// GrainState is the state code stored in celesta.grains.state.
type GrainState int

const (
	StateReady GrainState = iota
	StateUpgrading
	StateError
	StateRecover
	StateLock
)

func (s GrainState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateUpgrading:
		return "UPGRADING"
	case StateError:
		return "ERROR"
	case StateRecover:
		return "RECOVER"
	case StateLock:
		return "LOCK"
	default:
		return "UNKNOWN"
	}
}

// AcceptableOnStartup reports whether a grain's stored state permits
// it to participate in an upgrade run. READY and RECOVER are the
// normal steady states; LOCK is an operator-imposed hold that skips
// the grain without blocking the run; UPGRADING means a previous run
// was interrupted mid-transaction and a host that died mid-upgrade
// must be able to resume rather than get stuck. Any other state
// (in particular ERROR) requires operator intervention first.
func AcceptableOnStartup(s GrainState) bool {
	switch s {
	case StateReady, StateRecover, StateLock, StateUpgrading:
		return true
	default:
		return false
	}
}

// GrainsRow is one row of celesta.grains.
type GrainsRow struct {
	ID           string
	Version      string
	Length       int
	Checksum     uint32
	State        GrainState
	LastModified int64
	Message      string
}

// GrainsCursor is the typed accessor contract over celesta.grains.
// Implementations wrap a live database cursor/statement; core code
// never issues SQL directly against this table.
type GrainsCursor interface {
	Init(ctx context.Context) error

	Get() GrainsRow
	Set(row GrainsRow)

	Insert(ctx context.Context) error
	Update(ctx context.Context) error

	// NextInSet advances to the next row of the current result set,
	// returning false when exhausted.
	NextInSet(ctx context.Context) (bool, error)

	// CallContext exposes the ambient call context (grain being
	// processed, current connection) that generated row-cursor code
	// relies on; opaque to the core updater.
	CallContext() CallContext
}

// TablesRow is one row of celesta.tables.
type TablesRow struct {
	GrainID   string
	TableName string
	TableType string
	Orphaned  bool
}

// TablesCursor is the typed accessor contract over celesta.tables:
// grainid, tablename and an orphaned flag, plus a tabletype column
// since the updater's processGrainMeta hook needs to distinguish base
// tables from materialized views when marking orphans.
type TablesCursor interface {
	Init(ctx context.Context) error

	Get() TablesRow
	Set(row TablesRow)

	Insert(ctx context.Context) error
	Update(ctx context.Context) error
	Delete(ctx context.Context) error

	NextInSet(ctx context.Context) (bool, error)

	CallContext() CallContext
}

// CallContext is the ambient state a generated cursor needs but the
// core updater treats as opaque: which grain is being processed and
// which pooled connection backs the current transaction.
type CallContext struct {
	GrainName string
	ConnID    string
}
