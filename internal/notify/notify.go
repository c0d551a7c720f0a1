// Package notify fans engine events out to configured notification sinks.
// Notifications are best-effort: sink errors are logged and swallowed, and
// delivery never blocks or fails the triggering request.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// sinkTimeout bounds each sink's delivery attempt.
const sinkTimeout = 5 * time.Second

// Event is one notifiable occurrence in the engine.
type Event struct {
	Type    string // e.g. "ReportReceived"
	Message string
}

// ReportReceived builds the event emitted for each applied sub-report.
func ReportReceived(typeName, cluster, summary string) Event {
	return Event{
		Type:    "ReportReceived",
		Message: fmt.Sprintf("%s on %s: %s", typeName, cluster, summary),
	}
}

// Sink delivers one formatted message somewhere out of core.
type Sink interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// Factory builds a sink from its stored JSON config blob.
type Factory func(name string, config json.RawMessage) (Sink, error)

// Dispatcher loads sinks from the notifiers table on first event and fans
// events out to all of them. The sink list is read-only after that first
// load.
type Dispatcher struct {
	db        *gorm.DB
	tag       string
	factories map[string]Factory

	once  sync.Once
	sinks []Sink
}

// NewDispatcher returns a dispatcher with the built-in sink types
// registered.
func NewDispatcher(db *gorm.DB, tag string) *Dispatcher {
	d := &Dispatcher{
		db:  db,
		tag: tag,
		factories: map[string]Factory{
			"Slack":   NewSlackSink,
			"Discord": NewDiscordSink,
			"Webhook": NewWebhookSink,
		},
	}
	return d
}

// Dispatch formats an event and posts it to every configured sink, each
// under its own timeout. Errors are logged, never returned.
func (d *Dispatcher) Dispatch(event Event) {
	d.once.Do(d.load)

	message := fmt.Sprintf("%s: %s: %s", d.tag, event.Type, event.Message)
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := sink.Notify(ctx, message); err != nil {
			log.Printf("notify: sink %s failed: %v", sink.Name(), err)
		}
		cancel()
	}
}

// load reads the notifiers table and constructs each configured sink.
func (d *Dispatcher) load() {
	var rows []models.Notifier
	if err := d.db.Find(&rows).Error; err != nil {
		log.Printf("notify: loading notifiers: %v", err)
		return
	}
	for _, row := range rows {
		factory, ok := d.factories[row.Type]
		if !ok {
			log.Printf("notify: notifier %s has unknown type %s", row.Name, row.Type)
			continue
		}
		sink, err := factory(row.Name, json.RawMessage(row.Config))
		if err != nil {
			log.Printf("notify: configuring notifier %s: %v", row.Name, err)
			continue
		}
		d.sinks = append(d.sinks, sink)
	}
	log.Printf("notify: loaded %d sinks", len(d.sinks))
}
