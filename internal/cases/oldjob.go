package cases

import (
	"fmt"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// OldJobType reports jobs waiting in queue beyond an age threshold. One
// case tracks one account/submitter/resource combination; the age tracks
// the latest report.
type OldJobType struct{}

func (t *OldJobType) Name() string      { return "oldjobs" }
func (t *OldJobType) Table() string     { return "oldjobs" }
func (t *OldJobType) Columns() []string { return []string{"resource", "age", "submitter"} }

// States is empty: old-job cases have no state machine.
func (t *OldJobType) States() []string { return nil }

func (t *OldJobType) Describe() Description {
	return Description{
		Title:  "Job age",
		Metric: "age",
		Cols: []Column{
			{Datum: "resource", Title: "Resource", Type: "text", Searchable: true, Sortable: true},
			{Datum: "submitter", Title: "User", Type: "text", Searchable: true, Sortable: true},
			{Datum: "age", Title: "Age", Type: "number", Searchable: true, Sortable: true,
				Help: "Days waiting in system"},
		},
	}
}

func (t *OldJobType) ParseEntry(entry map[string]interface{}) (Candidate, error) {
	account, err := entryString(entry, "account")
	if err != nil {
		return nil, err
	}
	resource, err := entryResource(entry)
	if err != nil {
		return nil, err
	}
	age, err := entryNumber(entry, "age")
	if err != nil {
		return nil, err
	}
	submitter, err := entryString(entry, "submitter")
	if err != nil {
		return nil, err
	}
	summary, err := entrySummary(entry)
	if err != nil {
		return nil, err
	}
	return &oldJobCandidate{
		account:   account,
		resource:  resource,
		age:       int64(age),
		submitter: submitter,
		summary:   summary,
	}, nil
}

func (t *OldJobType) Serialize(row map[string]interface{}) map[string]interface{} {
	return row
}

func (t *OldJobType) Contacts(row map[string]interface{}) []string {
	if s := asString(row["submitter"]); s != "" {
		return []string{s}
	}
	return nil
}

func (t *OldJobType) SummarizeReport(touched []Touched) string {
	return summarizeCommon(touched)
}

type oldJobCandidate struct {
	account   string
	resource  string
	age       int64
	submitter string
	summary   *string
}

func (c *oldJobCandidate) Account() string  { return c.account }
func (c *oldJobCandidate) Summary() *string { return c.summary }

// DedupClause matches the account's existing case on the same resource.
func (c *oldJobCandidate) DedupClause() (string, []interface{}) {
	return "B.resource = ?", []interface{}{c.resource}
}

func (c *oldJobCandidate) ApplyUpdate(tx *gorm.DB, existing map[string]interface{}) (bool, error) {
	id := asInt64(existing["id"])
	res := tx.Model(&models.OldJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"age":       c.age,
			"submitter": c.submitter,
		})
	if res.Error != nil {
		return false, fmt.Errorf("cases: update oldjob %d: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return false, fmt.Errorf("%w: oldjob %d", ErrUpdateMissed, id)
	}
	return true, nil
}

func (c *oldJobCandidate) InsertNew(tx *gorm.DB, id int64) error {
	row := models.OldJob{
		ID:        id,
		Resource:  c.resource,
		Age:       c.age,
		Submitter: c.submitter,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("cases: insert oldjob %d: %w", id, err)
	}
	return nil
}
