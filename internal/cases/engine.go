package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// reportableCols is the select list for the common half of a case. Columns
// are listed explicitly so the type table's id does not appear twice.
const reportableCols = "R.id AS id, R.ticks AS ticks, R.account AS account, " +
	"R.cluster AS cluster, R.epoch AS epoch, R.report AS report, " +
	"R.summary AS summary, R.claimant AS claimant, " +
	"R.ticket_id AS ticket_id, R.ticket_no AS ticket_no"

// Engine is the case lifecycle engine. It exclusively owns writes to
// reportables and the type-specific tables, and appends to history. It is
// stateless between requests; all state lives in the store.
type Engine struct {
	db  *gorm.DB
	reg *Registry
}

// NewEngine returns an engine over the given store and type registry.
func NewEngine(db *gorm.DB, reg *Registry) *Engine {
	return &Engine{db: db, reg: reg}
}

// Registry exposes the engine's case-type registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Receipt summarizes one applied sub-report.
type Receipt struct {
	Type    string
	Summary string
}

// Ingest applies one report from a cluster's detector: every entry of every
// sub-report, in one transaction. Either the whole report is applied or
// none of it is. Entries within a sub-report apply in the order given.
func (e *Engine) Ingest(ctx context.Context, cluster string, epoch int64, report map[string][]map[string]interface{}) ([]Receipt, error) {
	names := make([]string, 0, len(report))
	for name := range report {
		names = append(names, name)
	}
	sort.Strings(names)

	var receipts []Receipt
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			ct, ok := e.reg.Lookup(name)
			if !ok {
				return &UnknownReportTypeError{Name: name}
			}
			touched := make([]Touched, 0, len(report[name]))
			for _, entry := range report[name] {
				cand, err := ct.ParseEntry(entry)
				if err != nil {
					return err
				}
				t, err := e.upsert(tx, ct, cluster, epoch, cand)
				if err != nil {
					return err
				}
				touched = append(touched, t)
			}
			receipts = append(receipts, Receipt{Type: name, Summary: ct.SummarizeReport(touched)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// upsert resolves one candidate to an update of an existing case or the
// creation of a new one.
func (e *Engine) upsert(tx *gorm.DB, ct CaseType, cluster string, epoch int64, cand Candidate) (Touched, error) {
	sel := "R.id AS id, R.ticks AS ticks, R.claimant AS claimant, " +
		"R.ticket_id AS ticket_id, R.ticket_no AS ticket_no"
	for _, col := range ct.Columns() {
		sel += fmt.Sprintf(", B.%s AS %s", col, col)
	}
	clause, params := cand.DedupClause()
	query := fmt.Sprintf(
		"SELECT %s FROM reportables R JOIN %s B ON R.id = B.id WHERE R.cluster = ? AND R.account = ? AND %s",
		sel, ct.Table(), clause)

	var rows []map[string]interface{}
	args := append([]interface{}{cluster, cand.Account()}, params...)
	if err := tx.Raw(query, args...).Scan(&rows).Error; err != nil {
		return Touched{}, fmt.Errorf("cases: dedup query for %s: %w", ct.Name(), err)
	}
	if len(rows) > 1 {
		return Touched{}, fmt.Errorf("%w: %s account %s matched %d rows",
			ErrDedupAmbiguous, ct.Name(), cand.Account(), len(rows))
	}

	if len(rows) == 1 {
		existing := rows[0]
		id := asInt64(existing["id"])
		compatible, err := cand.ApplyUpdate(tx, existing)
		if err != nil {
			return Touched{}, err
		}
		if compatible {
			ticks := int(asInt64(existing["ticks"])) + 1
			res := tx.Model(&models.Reportable{}).Where("id = ?", id).
				Updates(map[string]interface{}{
					"ticks":   ticks,
					"epoch":   epoch,
					"summary": cand.Summary(),
				})
			if res.Error != nil {
				return Touched{}, fmt.Errorf("cases: update reportable %d: %w", id, res.Error)
			}
			if res.RowsAffected != 1 {
				return Touched{}, fmt.Errorf("%w: reportable %d", ErrUpdateMissed, id)
			}
			return Touched{ID: id, Ticks: ticks, Claimant: asStringPtr(existing["claimant"])}, nil
		}
		// Incompatible match: treat as no match found.
	}

	rep := models.Reportable{
		Epoch:   epoch,
		Account: cand.Account(),
		Cluster: cluster,
		Report:  ct.Name(),
		Summary: cand.Summary(),
		Ticks:   1,
	}
	if err := tx.Create(&rep).Error; err != nil {
		return Touched{}, fmt.Errorf("cases: insert reportable: %w", err)
	}
	if err := cand.InsertNew(tx, rep.ID); err != nil {
		return Touched{}, err
	}
	return Touched{ID: rep.ID, Ticks: 1}, nil
}

// View is the current view of one case type on one cluster: the cases
// mentioned in the most recent report.
type View struct {
	Epoch   int64                    `json:"epoch"`
	Results []map[string]interface{} `json:"results"`
}

// Current returns the current view for a cluster and type, or nil when the
// cluster has no current cases of that type.
func (e *Engine) Current(ctx context.Context, cluster, typeName string) (*View, error) {
	ct, ok := e.reg.Lookup(typeName)
	if !ok {
		return nil, &UnknownReportTypeError{Name: typeName}
	}

	sel := reportableCols
	for _, col := range ct.Columns() {
		sel += fmt.Sprintf(", B.%s AS %s", col, col)
	}
	query := fmt.Sprintf(`
		SELECT %s, COUNT(N.id) AS notes
		FROM reportables R
		JOIN %s B ON R.id = B.id
		LEFT JOIN history N ON R.id = N.case_id
		WHERE R.cluster = ? AND R.epoch = (SELECT MAX(epoch) FROM reportables WHERE cluster = ?)
		GROUP BY R.id, B.id`, sel, ct.Table())

	var rows []map[string]interface{}
	if err := e.db.WithContext(ctx).Raw(query, cluster, cluster).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("cases: current view for %s: %w", typeName, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	view := &View{Epoch: asInt64(rows[0]["epoch"])}
	for _, row := range rows {
		view.Results = append(view.Results, serializeRow(ct, row))
	}
	return view, nil
}

// Get returns one case of any type by ID, or ErrNotFound. The reportables
// row names its case type directly, so the lookup does not iterate types.
func (e *Engine) Get(ctx context.Context, id int64) (map[string]interface{}, error) {
	ct, rep, err := e.typeOf(ctx, id)
	if err != nil {
		return nil, err
	}

	sel := reportableCols
	for _, col := range ct.Columns() {
		sel += fmt.Sprintf(", B.%s AS %s", col, col)
	}
	query := fmt.Sprintf(`
		SELECT %s, COUNT(N.id) AS notes
		FROM reportables R
		JOIN %s B ON R.id = B.id
		LEFT JOIN history N ON R.id = N.case_id
		WHERE R.id = ?
		GROUP BY R.id, B.id`, sel, ct.Table())

	var rows []map[string]interface{}
	if err := e.db.WithContext(ctx).Raw(query, id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("cases: lookup case %d: %w", id, err)
	}
	if len(rows) != 1 {
		// The reportables row exists but the type row does not: the 1-1
		// pairing invariant is broken.
		return nil, fmt.Errorf("cases: case %d has no %s row (reportable %d)", id, ct.Table(), rep.ID)
	}
	return serializeRow(ct, rows[0]), nil
}

// Contacts returns the user ids analysts should consider contacting for a
// case, in suggestion order.
func (e *Engine) Contacts(ctx context.Context, id int64) ([]string, error) {
	row, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ct, _ := e.reg.Lookup(asString(row["report"]))
	return ct.Contacts(row), nil
}

// typeOf resolves a case ID to its case type via the reportables row.
func (e *Engine) typeOf(ctx context.Context, id int64) (CaseType, *models.Reportable, error) {
	var rep models.Reportable
	err := e.db.WithContext(ctx).First(&rep, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, fmt.Errorf("%w: case %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cases: read reportable %d: %w", id, err)
	}
	ct, ok := e.reg.Lookup(rep.Report)
	if !ok {
		return nil, nil, fmt.Errorf("cases: case %d has unregistered type %q", id, rep.Report)
	}
	return ct, &rep, nil
}

// Update is one analyst-driven change to a case: a tracked datum, a note,
// or both. A zero Timestamp means now.
type Update struct {
	Datum     string  `json:"datum"`
	Value     string  `json:"value"`
	Note      *string `json:"note"`
	Timestamp int64   `json:"timestamp"`
}

// ApplyUpdates applies an ordered list of analyst updates to a case, all in
// one transaction. Each update writes its field and appends exactly one
// history row. Subsequent updates see previous effects.
func (e *Engine) ApplyUpdates(ctx context.Context, id int64, analyst string, updates []Update) error {
	ct, _, err := e.typeOf(ctx, id)
	if err != nil {
		return err
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := e.applyOne(tx, ct, id, analyst, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) applyOne(tx *gorm.DB, ct CaseType, id int64, analyst string, u Update) error {
	var change *Change

	switch u.Datum {
	case "":
		// Note-only update.
	case "claimant":
		now := u.Value
		if now == "" {
			// Empty string means self-claim.
			now = analyst
		}
		was, err := readDatum(tx, "reportables", "claimant", id)
		if err != nil {
			return err
		}
		res := tx.Model(&models.Reportable{}).Where("id = ?", id).Update("claimant", now)
		if res.Error != nil {
			return fmt.Errorf("cases: update claimant on case %d: %w", id, res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: claimant on case %d", ErrUpdateMissed, id)
		}
		change = &Change{Datum: "claimant", Was: was, Now: &now}
	case "state":
		if err := validState(ct, u.Value); err != nil {
			return err
		}
		was, err := readDatum(tx, ct.Table(), "state", id)
		if err != nil {
			return err
		}
		res := tx.Table(ct.Table()).Where("id = ?", id).Update("state", u.Value)
		if res.Error != nil {
			return fmt.Errorf("cases: update state on case %d: %w", id, res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: state on case %d", ErrUpdateMissed, id)
		}
		now := u.Value
		change = &Change{Datum: "state", Was: was, Now: &now}
	default:
		return &BadUpdateError{Datum: u.Datum, Reason: "datum is not updatable"}
	}

	ts := u.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	return appendHistory(tx, id, analyst, ts, u.Note, change)
}

func validState(ct CaseType, value string) error {
	states := ct.States()
	if len(states) == 0 {
		return &BadUpdateError{Datum: "state", Reason: "case type has no state"}
	}
	for _, s := range states {
		if s == value {
			return nil
		}
	}
	return &BadUpdateError{
		Datum:  "state",
		Reason: fmt.Sprintf("%q is not one of %s", value, strings.Join(states, ", ")),
	}
}

// readDatum reads the current value of a single column for the history
// record's "was" side.
func readDatum(tx *gorm.DB, table, column string, id int64) (*string, error) {
	var rows []map[string]interface{}
	query := fmt.Sprintf("SELECT %s AS v FROM %s WHERE id = ?", column, table)
	if err := tx.Raw(query, id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("cases: read %s.%s for case %d: %w", table, column, id, err)
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: %s on case %d", ErrUpdateMissed, column, id)
	}
	return asStringPtr(rows[0]["v"]), nil
}

// SetTicket links a ticket to a case. Idempotent for the same tuple; it
// does not refuse overwrite.
func (e *Engine) SetTicket(ctx context.Context, id int64, ticketID, ticketNo string) error {
	var rep models.Reportable
	err := e.db.WithContext(ctx).First(&rep, id).Error
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: case %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("cases: read reportable %d: %w", id, err)
	}
	res := e.db.WithContext(ctx).Model(&models.Reportable{}).Where("id = ?", id).
		Updates(map[string]interface{}{"ticket_id": ticketID, "ticket_no": ticketNo})
	if res.Error != nil {
		return fmt.Errorf("cases: set ticket on case %d: %w", id, res.Error)
	}
	return nil
}

// Events returns the history of a case, ordered by timestamp ascending.
func (e *Engine) Events(ctx context.Context, id int64) ([]Event, error) {
	if _, _, err := e.typeOf(ctx, id); err != nil {
		return nil, err
	}
	var rows []models.History
	err := e.db.WithContext(ctx).
		Where("case_id = ?", id).Order("timestamp, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cases: history for case %d: %w", id, err)
	}
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		ev, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// serializeRow runs the common post-processing over a raw joined row and
// then the type's own serialization hook.
func serializeRow(ct CaseType, row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = normalizeValue(v)
	}
	// Summary is stored as a JSON string; emit it as a JSON value.
	if s := asStringPtr(out["summary"]); s != nil {
		out["summary"] = json.RawMessage(*s)
	}
	return ct.Serialize(out)
}

// normalizeValue smooths over driver differences: the mysql driver hands
// back []byte for text columns where sqlite hands back string.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func asInt64(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		return int64(val)
	case float64:
		return int64(val)
	case []byte:
		n, _ := strconv.ParseInt(string(val), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

func asStringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}
