package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/frak/beam/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Digester periodically posts a summary of current unclaimed cases per
// cluster through the dispatcher, so quiet clusters do not hide cases
// nobody has picked up.
type Digester struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	schedule   string
	cron       *cron.Cron
}

// NewDigester returns a digester with a 5-field cron schedule. An empty
// schedule disables it.
func NewDigester(db *gorm.DB, dispatcher *Dispatcher, schedule string) *Digester {
	return &Digester{db: db, dispatcher: dispatcher, schedule: schedule}
}

// Start schedules the digest and runs it until ctx is cancelled.
func (d *Digester) Start(ctx context.Context) error {
	if d.schedule == "" {
		return nil
	}
	d.cron = cron.New()
	if _, err := d.cron.AddFunc(d.schedule, d.run); err != nil {
		return fmt.Errorf("notify: digest schedule %q: %w", d.schedule, err)
	}
	d.cron.Start()
	go func() {
		<-ctx.Done()
		d.cron.Stop()
	}()
	return nil
}

// run builds and dispatches one digest.
func (d *Digester) run() {
	summary, err := d.Build()
	if err != nil {
		log.Printf("notify: building digest: %v", err)
		return
	}
	if summary == "" {
		return
	}
	d.dispatcher.Dispatch(Event{Type: "DailyDigest", Message: summary})
}

// Build summarizes unclaimed current cases per cluster. Empty when there
// is nothing to report.
func (d *Digester) Build() (string, error) {
	type row struct {
		Cluster string
		Count   int
	}
	var rows []row
	err := d.db.Model(&models.Reportable{}).
		Select("cluster, COUNT(*) AS count").
		Where("claimant IS NULL AND epoch = (SELECT MAX(epoch) FROM reportables R2 WHERE R2.cluster = reportables.cluster)").
		Group("cluster").
		Order("cluster").
		Scan(&rows).Error
	if err != nil {
		return "", fmt.Errorf("notify: digest query: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprintf("%s has %d unclaimed current cases", r.Cluster, r.Count))
	}
	return strings.Join(parts, "; "), nil
}
