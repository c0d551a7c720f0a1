package ticketing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CreateTicket(t *testing.T) {
	var got CreateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tickets" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(Ticket{TicketID: "INC0042", TicketNo: "42"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ticket, err := client.CreateTicket(context.Background(), CreateRequest{
		Title:       "burst case",
		OwnerUID:    "alice",
		CustomerUID: "user1",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket == nil || ticket.TicketID != "INC0042" || ticket.TicketNo != "42" {
		t.Errorf("ticket = %+v", ticket)
	}
	if got.Title != "burst case" || got.OwnerUID != "alice" {
		t.Errorf("request = %+v", got)
	}
}

func TestClient_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ticketing accepted the request but assigned nothing.
		json.NewEncoder(w).Encode(Ticket{})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ticket, err := client.CreateTicket(context.Background(), CreateRequest{Title: "x"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket != nil {
		t.Errorf("ticket = %+v, want nil when declined", ticket)
	}
}
