package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/frak/beam/internal/db"
	"github.com/frak/beam/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openNotifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormDB.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormDB
}

func TestReportReceived(t *testing.T) {
	event := ReportReceived("bursts", "frontier", "There are 2 cases (1 new and 1 existing).  0 are claimed.")
	if event.Type != "ReportReceived" {
		t.Errorf("type = %q, want ReportReceived", event.Type)
	}
	want := "bursts on frontier: There are 2 cases (1 new and 1 existing).  0 are claimed."
	if event.Message != want {
		t.Errorf("message = %q, want %q", event.Message, want)
	}
}

func TestDispatch_FormatsWithTag(t *testing.T) {
	gormDB := openNotifyTestDB(t)

	var mu sync.Mutex
	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		received = append(received, fmt.Sprint(payload["text"]))
		mu.Unlock()
	}))
	defer server.Close()

	notifier := models.Notifier{
		Name:   "ops",
		Type:   "Webhook",
		Config: fmt.Sprintf(`{"url": %q}`, server.URL),
	}
	if err := gormDB.Create(&notifier).Error; err != nil {
		t.Fatalf("seed notifier: %v", err)
	}

	d := NewDispatcher(gormDB, "beam")
	d.Dispatch(Event{Type: "ReportReceived", Message: "bursts on frontier: summary"})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("sink received %d messages, want 1", len(received))
	}
	want := "beam: ReportReceived: bursts on frontier: summary"
	if received[0] != want {
		t.Errorf("message = %q, want %q", received[0], want)
	}
}

func TestDispatch_SwallowsSinkErrors(t *testing.T) {
	gormDB := openNotifyTestDB(t)

	var calls int
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer failing.Close()
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer working.Close()

	seed := []models.Notifier{
		{Name: "broken", Type: "Webhook", Config: fmt.Sprintf(`{"url": %q}`, failing.URL)},
		{Name: "working", Type: "Webhook", Config: fmt.Sprintf(`{"url": %q}`, working.URL)},
	}
	for _, n := range seed {
		if err := gormDB.Create(&n).Error; err != nil {
			t.Fatalf("seed notifier: %v", err)
		}
	}

	// A failing sink must not prevent delivery to the others, and Dispatch
	// itself never reports the failure.
	d := NewDispatcher(gormDB, "beam")
	d.Dispatch(Event{Type: "Test", Message: "hello"})

	if calls != 1 {
		t.Errorf("working sink received %d messages, want 1", calls)
	}
}

func TestDispatch_SkipsBadConfigs(t *testing.T) {
	gormDB := openNotifyTestDB(t)

	seed := []models.Notifier{
		{Name: "mystery", Type: "Carrier-Pigeon", Config: `{}`},
		{Name: "incomplete", Type: "Slack", Config: `{}`}, // missing url
	}
	for _, n := range seed {
		if err := gormDB.Create(&n).Error; err != nil {
			t.Fatalf("seed notifier: %v", err)
		}
	}

	d := NewDispatcher(gormDB, "beam")
	d.Dispatch(Event{Type: "Test", Message: "hello"})
	if len(d.sinks) != 0 {
		t.Errorf("loaded %d sinks, want 0 (bad configs skipped)", len(d.sinks))
	}
}

func TestWebhookSink_RejectsMissingURL(t *testing.T) {
	if _, err := NewWebhookSink("w", json.RawMessage(`{}`)); err == nil {
		t.Error("NewWebhookSink accepted empty config")
	}
}

func TestWebhookSink_MergesExtras(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer server.Close()

	config := fmt.Sprintf(`{"url": %q, "extras": {"channel": "#hpc-ops"}}`, server.URL)
	sink, err := NewWebhookSink("ops", json.RawMessage(config))
	if err != nil {
		t.Fatalf("NewWebhookSink: %v", err)
	}
	if err := sink.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if payload["text"] != "hello" || payload["channel"] != "#hpc-ops" {
		t.Errorf("payload = %v, want text and extras merged", payload)
	}
}

func TestDigester_Build(t *testing.T) {
	gormDB := openNotifyTestDB(t)

	// Cluster frontier: epoch 2000 current, one unclaimed current case, one
	// claimed current case, one stale unclaimed case. Cluster summit: one
	// unclaimed current case.
	alice := "alice"
	seed := []models.Reportable{
		{Epoch: 2000, Account: "a", Cluster: "frontier", Report: "bursts", Ticks: 1},
		{Epoch: 2000, Account: "b", Cluster: "frontier", Report: "bursts", Ticks: 1, Claimant: &alice},
		{Epoch: 1000, Account: "c", Cluster: "frontier", Report: "bursts", Ticks: 1},
		{Epoch: 500, Account: "d", Cluster: "summit", Report: "oldjobs", Ticks: 1},
	}
	for i := range seed {
		if err := gormDB.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed reportable: %v", err)
		}
	}

	d := NewDigester(gormDB, NewDispatcher(gormDB, "beam"), "")
	summary, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "frontier has 1 unclaimed current cases; summit has 1 unclaimed current cases"
	if summary != want {
		t.Errorf("summary = %q, want %q", summary, want)
	}
}

func TestDigester_BuildEmpty(t *testing.T) {
	gormDB := openNotifyTestDB(t)
	d := NewDigester(gormDB, NewDispatcher(gormDB, "beam"), "")
	summary, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if summary != "" {
		t.Errorf("summary = %q, want empty when nothing to report", summary)
	}
}

func TestDigester_BadSchedule(t *testing.T) {
	gormDB := openNotifyTestDB(t)
	d := NewDigester(gormDB, NewDispatcher(gormDB, "beam"), "not a schedule")
	if err := d.Start(context.Background()); err == nil {
		t.Error("Start accepted an invalid cron expression")
	}
}
