package cases

import (
	"encoding/json"
	"fmt"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// Change is the structured half of a history event: which datum changed and
// its values before and after.
type Change struct {
	Datum string  `json:"datum"`
	Was   *string `json:"was"`
	Now   *string `json:"now"`
}

// Event is one history record as returned to callers, with the stored
// change JSON decoded.
type Event struct {
	ID        int64   `json:"id"`
	CaseID    int64   `json:"case_id"`
	Analyst   string  `json:"analyst"`
	Timestamp int64   `json:"timestamp"`
	Note      *string `json:"note"`
	Change    *Change `json:"change"`
}

// appendHistory writes one append-only history row. History rows are never
// edited or deleted.
func appendHistory(tx *gorm.DB, caseID int64, analyst string, timestamp int64, note *string, change *Change) error {
	row := models.History{
		CaseID:    caseID,
		Analyst:   analyst,
		Timestamp: timestamp,
		Note:      note,
	}
	if change != nil {
		data, err := json.Marshal(change)
		if err != nil {
			return fmt.Errorf("cases: marshal change for case %d: %w", caseID, err)
		}
		s := string(data)
		row.Change = &s
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("cases: append history for case %d: %w", caseID, err)
	}
	return nil
}

func eventFromRow(row models.History) (Event, error) {
	ev := Event{
		ID:        row.ID,
		CaseID:    row.CaseID,
		Analyst:   row.Analyst,
		Timestamp: row.Timestamp,
		Note:      row.Note,
	}
	if row.Change != nil {
		var change Change
		if err := json.Unmarshal([]byte(*row.Change), &change); err != nil {
			return Event{}, fmt.Errorf("cases: decode change on history %d: %w", row.ID, err)
		}
		ev.Change = &change
	}
	return ev, nil
}
