package cases

import (
	"encoding/json"
	"fmt"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// Burst states. Any transition is permitted; terminal states are convention
// only.
const (
	BurstPending  = "pending"
	BurstAccepted = "accepted"
	BurstRejected = "rejected"
)

// BurstType reports burst candidates: accounts with significant short-term
// need beyond what their usual share can absorb. A burst case is identified
// by account, resource, and an overlapping job range: a report whose first
// job falls at or before the last job already on record describes the same
// backlog, shifted in time.
type BurstType struct{}

func (t *BurstType) Name() string  { return "bursts" }
func (t *BurstType) Table() string { return "bursts" }

func (t *BurstType) Columns() []string {
	return []string{"resource", "pain", "firstjob", "lastjob", "submitters", "state"}
}

func (t *BurstType) States() []string {
	return []string{BurstPending, BurstAccepted, BurstRejected}
}

func (t *BurstType) Describe() Description {
	return Description{
		Title:  "Burst candidates",
		Metric: "pain",
		Cols: []Column{
			{Datum: "resource", Title: "Resource", Type: "text", Searchable: true, Sortable: true},
			{Datum: "pain", Title: "Pain", Type: "number", Sortable: true,
				Help: "Opaque measure of backlog severity supplied by the detector"},
			{Datum: "firstjob", Title: "First job", Type: "number"},
			{Datum: "lastjob", Title: "Last job", Type: "number"},
			{Datum: "submitters", Title: "Submitters", Type: "text", Searchable: true},
			{Datum: "state", Title: "State", Type: "text", Searchable: true, Sortable: true},
		},
	}
}

func (t *BurstType) ParseEntry(entry map[string]interface{}) (Candidate, error) {
	account, err := entryString(entry, "account")
	if err != nil {
		return nil, err
	}
	resource, err := entryResource(entry)
	if err != nil {
		return nil, err
	}
	pain, err := entryNumber(entry, "pain")
	if err != nil {
		return nil, err
	}
	rawFirst, ok := entry["firstjob"]
	if !ok {
		return nil, &SchemaViolationError{Field: "firstjob"}
	}
	firstjob, err := ParseJobID("firstjob", rawFirst)
	if err != nil {
		return nil, err
	}
	rawLast, ok := entry["lastjob"]
	if !ok {
		return nil, &SchemaViolationError{Field: "lastjob"}
	}
	lastjob, err := ParseJobID("lastjob", rawLast)
	if err != nil {
		return nil, err
	}
	submitters, err := entrySubmitters(entry)
	if err != nil {
		return nil, err
	}
	summary, err := entrySummary(entry)
	if err != nil {
		return nil, err
	}
	return &burstCandidate{
		account:    account,
		resource:   resource,
		pain:       pain,
		firstjob:   firstjob,
		lastjob:    lastjob,
		submitters: submitters,
		summary:    summary,
	}, nil
}

func (t *BurstType) Serialize(row map[string]interface{}) map[string]interface{} {
	if s := asStringPtr(row["submitters"]); s != nil {
		row["submitters"] = json.RawMessage(*s)
	}
	return row
}

func (t *BurstType) Contacts(row map[string]interface{}) []string {
	raw, ok := row["submitters"].(json.RawMessage)
	if !ok {
		return nil
	}
	var submitters []string
	if err := json.Unmarshal(raw, &submitters); err != nil {
		return nil
	}
	return submitters
}

func (t *BurstType) SummarizeReport(touched []Touched) string {
	return summarizeCommon(touched)
}

// entrySubmitters reads the ordered multiset of submitting users.
func entrySubmitters(entry map[string]interface{}) ([]string, error) {
	v, ok := entry["submitters"]
	if !ok {
		return nil, &SchemaViolationError{Field: "submitters"}
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, &SchemaViolationError{Field: "submitters", Reason: fmt.Sprintf("expected list, got %T", v)}
	}
	submitters := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, &SchemaViolationError{Field: "submitters", Reason: "expected list of user ids"}
		}
		submitters = append(submitters, s)
	}
	return submitters, nil
}

type burstCandidate struct {
	account    string
	resource   string
	pain       float64
	firstjob   int64
	lastjob    int64
	submitters []string
	summary    *string
}

func (c *burstCandidate) Account() string  { return c.account }
func (c *burstCandidate) Summary() *string { return c.summary }

// DedupClause matches an existing burst on the same resource whose recorded
// job range the candidate overlaps or extends: firstjob <= existing.lastjob.
func (c *burstCandidate) DedupClause() (string, []interface{}) {
	return "B.resource = ? AND ? <= B.lastjob", []interface{}{c.resource, c.firstjob}
}

// ApplyUpdate shifts the burst for its moving window: the first job earlier
// reported is retained, the last job only advances, and pain and submitters
// track the latest report. State is left untouched.
func (c *burstCandidate) ApplyUpdate(tx *gorm.DB, existing map[string]interface{}) (bool, error) {
	id := asInt64(existing["id"])
	lastjob := c.lastjob
	if prev := asInt64(existing["lastjob"]); prev > lastjob {
		lastjob = prev
	}
	submitters, err := json.Marshal(c.submitters)
	if err != nil {
		return false, fmt.Errorf("cases: marshal submitters: %w", err)
	}
	res := tx.Model(&models.Burst{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"pain":       c.pain,
			"lastjob":    lastjob,
			"submitters": string(submitters),
		})
	if res.Error != nil {
		return false, fmt.Errorf("cases: update burst %d: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return false, fmt.Errorf("%w: burst %d", ErrUpdateMissed, id)
	}
	return true, nil
}

func (c *burstCandidate) InsertNew(tx *gorm.DB, id int64) error {
	submitters, err := json.Marshal(c.submitters)
	if err != nil {
		return fmt.Errorf("cases: marshal submitters: %w", err)
	}
	row := models.Burst{
		ID:         id,
		Resource:   c.resource,
		Pain:       c.pain,
		FirstJob:   c.firstjob,
		LastJob:    c.lastjob,
		Submitters: string(submitters),
		State:      BurstPending,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("cases: insert burst %d: %w", id, err)
	}
	return nil
}
