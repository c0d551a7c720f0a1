// Package cases implements the case ingestion, deduplication and lifecycle
// engine, together with the extensible case-type registry that drives it.
//
// A case type registers an implementation of the CaseType interface. The
// engine is type-name-driven throughout: report ingestion resolves each
// named sub-report through the registry, and the per-type hooks decide
// whether an entry updates an existing case or creates a new one.
package cases

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"gorm.io/gorm"
)

// Column describes one display field of a case type.
type Column struct {
	Datum      string `json:"datum"`
	Title      string `json:"title"`
	Type       string `json:"type"` // "text" or "number", used for display
	Searchable bool   `json:"searchable"`
	Sortable   bool   `json:"sortable"`
	Help       string `json:"help,omitempty"`
}

// Description is display metadata for a case type: purely informational,
// used by the dashboard to render report tables.
type Description struct {
	Table  string   `json:"table"`
	Title  string   `json:"title"`
	Metric string   `json:"metric"`
	Cols   []Column `json:"cols"`
}

// Touched identifies a case created or updated by a report, with just
// enough detail to summarize the report afterwards.
type Touched struct {
	ID       int64
	Ticks    int
	Claimant *string
}

// Candidate is one parsed report entry of a specific case type, ready to be
// matched against existing cases or inserted as a new one.
type Candidate interface {
	// Account is the accounting group the entry concerns.
	Account() string
	// Summary is the entry's opaque summary blob, re-stringified, or nil.
	Summary() *string
	// DedupClause returns a WHERE-clause fragment over the type table
	// (aliased B) identifying a pre-existing "same" case, plus its
	// parameters. The engine has already constrained cluster and account.
	DedupClause() (string, []interface{})
	// ApplyUpdate writes the candidate's values over the matched row.
	// Returning false means the match is incompatible and the engine
	// treats the candidate as new.
	ApplyUpdate(tx *gorm.DB, existing map[string]interface{}) (bool, error)
	// InsertNew writes the new type-specific row sharing id with the
	// reportables row.
	InsertNew(tx *gorm.DB, id int64) error
}

// CaseType is the capability record a case type registers. Implementations
// must be safe for concurrent use; all state lives in the store.
type CaseType interface {
	// Name is the registry name, used as the sub-report key in reports.
	Name() string
	// Table is the storage name of the type-specific table.
	Table() string
	// Columns lists the type-specific table's columns, excluding id.
	Columns() []string
	// States lists valid values of the type's state datum, first value
	// initial; empty when the type has no state machine.
	States() []string
	// Describe returns the type-specific display metadata. The registry
	// combines it with the common column prefix and suffix.
	Describe() Description
	// ParseEntry validates one report entry against the type's required
	// fields and normalizes values.
	ParseEntry(entry map[string]interface{}) (Candidate, error)
	// Serialize adjusts a raw row before it is returned to callers, such
	// as decoding JSON-encoded columns.
	Serialize(row map[string]interface{}) map[string]interface{}
	// Contacts returns user ids analysts should consider contacting for
	// the case row, in suggestion order.
	Contacts(row map[string]interface{}) []string
	// SummarizeReport provides a one-line description of a report for the
	// notification dispatcher.
	SummarizeReport(touched []Touched) string
}

// Registry is the catalog of case types. It is written once at startup,
// before the listener binds, and read-only thereafter; the lock exists for
// test deregistration.
type Registry struct {
	mu    sync.RWMutex
	types map[string]CaseType
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]CaseType)}
}

// Register adds a case type under its name. Registering a second type under
// the same name fails with ErrRegistryConflict.
func (r *Registry) Register(ct CaseType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := ct.Name()
	if _, dup := r.types[name]; dup {
		return fmt.Errorf("%w: %s", ErrRegistryConflict, name)
	}
	r.types[name] = ct
	log.Printf("cases: registered case type %s", name)
	return nil
}

// Deregister removes a case type. Only used in tests; removing an
// unregistered name is not an error.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.types, name)
}

// Lookup returns the case type registered under name.
func (r *Registry) Lookup(name string) (CaseType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[name]
	return ct, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the full display schema for every registered type: the
// type's own columns wrapped in the prefix and suffix common to all types.
func (r *Registry) Describe() map[string]Description {
	out := make(map[string]Description)
	for _, name := range r.Names() {
		ct, _ := r.Lookup(name)
		out[name] = describeFull(ct)
	}
	return out
}

func describeFull(ct CaseType) Description {
	desc := ct.Describe()
	desc.Table = ct.Table()

	cols := make([]Column, 0, len(desc.Cols)+6)
	cols = append(cols,
		Column{Datum: "ticks", Title: "Times reported", Type: "number", Sortable: true},
		Column{Datum: "account", Title: "Account", Type: "text", Searchable: true, Sortable: true},
	)
	cols = append(cols, desc.Cols...)
	cols = append(cols,
		Column{Datum: "summary", Title: "Summary", Type: "text", Searchable: true},
		Column{Datum: "claimant", Title: "Analyst", Type: "text", Searchable: true, Sortable: true},
		Column{Datum: "ticket", Title: "Ticket", Type: "text", Searchable: true, Sortable: true},
		Column{Datum: "notes", Title: "Notes", Type: "text", Sortable: true},
	)
	desc.Cols = cols
	return desc
}

// RegisterBuiltins registers the shipped case types.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register(&BurstType{}); err != nil {
		return err
	}
	return r.Register(&OldJobType{})
}
