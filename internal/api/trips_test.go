package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func tripBody(owner, destination, start, end string) map[string]any {
	return map[string]any{
		"owner":       owner,
		"name":        destination + " trip",
		"destination": destination,
		"dateRange":   map[string]string{"start": start, "end": end},
	}
}

func TestTripLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	status, body := call(t, ts, "/api/TripPlanning/create", tripBody("alice", "Lisbon", "2026-06-01", "2026-06-07"))
	if status != http.StatusOK {
		t.Fatalf("create status = %d, body = %v", status, body)
	}
	id := field(t, body, "trip", "id").(string)
	if got := field(t, body, "trip", "start"); got != "2026-06-01T00:00:00Z" {
		t.Errorf("start = %v, want 2026-06-01T00:00:00Z", got)
	}

	status, body = call(t, ts, "/api/TripPlanning/addParticipant",
		map[string]any{"owner": "alice", "tripId": id, "participantUser": "bob", "budget": 500})
	if status != http.StatusOK {
		t.Fatalf("addParticipant status = %d, body = %v", status, body)
	}

	call(t, ts, "/api/TripPlanning/updateParticipant",
		map[string]any{"owner": "alice", "tripId": id, "participantUser": "bob", "budget": "750.50"})

	_, body = call(t, ts, "/api/TripPlanning/_getParticipantsInTrip", map[string]any{"tripId": id})
	ps := body["participants"].([]any)
	if len(ps) != 2 {
		t.Fatalf("len(participants) = %d, want 2", len(ps))
	}
	if got := ps[0].(map[string]any)["user"]; got != "alice" {
		t.Errorf("first participant = %v, want alice", got)
	}
	if got := ps[1].(map[string]any)["budget"]; got != "750.5" {
		t.Errorf("bob budget = %v, want 750.5", got)
	}

	status, _ = call(t, ts, "/api/TripPlanning/removeSelf", map[string]any{"user": "bob", "tripId": id})
	if status != http.StatusOK {
		t.Fatalf("removeSelf status = %d", status)
	}

	status, body = call(t, ts, "/api/TripPlanning/update", map[string]any{
		"owner": "alice", "tripId": id, "name": "Porto", "destination": "Porto",
		"dateRange": map[string]string{"start": "2026-07-01T10:00:00Z", "end": "2026-07-03T18:00:00Z"},
	})
	if status != http.StatusOK {
		t.Fatalf("update status = %d, body = %v", status, body)
	}
	if got := field(t, body, "trip", "destination"); got != "Porto" {
		t.Errorf("destination = %v, want Porto", got)
	}

	status, body = call(t, ts, "/api/TripPlanning/finalize", map[string]any{"owner": "alice", "tripId": id, "finalized": true})
	if status != http.StatusOK || field(t, body, "trip", "finalized") != true {
		t.Errorf("finalize status = %d, body = %v", status, body)
	}

	_, body = call(t, ts, "/api/TripPlanning/_getTripsByUser", map[string]any{"owner": "alice"})
	if got := len(body["trips"].([]any)); got != 1 {
		t.Errorf("len(trips) = %d, want 1", got)
	}

	if status, _ := call(t, ts, "/api/TripPlanning/delete", map[string]any{"owner": "alice", "tripId": id}); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status, _ := call(t, ts, "/api/TripPlanning/_getTripById", map[string]any{"tripId": id}); status != http.StatusNotFound {
		t.Errorf("_getTripById after delete status = %d, want 404", status)
	}
}

func TestTripErrors(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	_, body := call(t, ts, "/api/TripPlanning/create", tripBody("alice", "Rome", "2026-05-01", "2026-05-04"))
	id := field(t, body, "trip", "id").(string)

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
	}{
		{"duplicate plan", "/api/TripPlanning/create", tripBody("alice", "Rome", "2026-05-01", "2026-05-04"), http.StatusConflict},
		{"end before start", "/api/TripPlanning/create", tripBody("alice", "Oslo", "2026-05-04", "2026-05-01"), http.StatusBadRequest},
		{"not owner", "/api/TripPlanning/finalize", map[string]any{"owner": "mallory", "tripId": id, "finalized": true}, http.StatusNotFound},
		{"negative budget", "/api/TripPlanning/addParticipant", map[string]any{"owner": "alice", "tripId": id, "participantUser": "bob", "budget": -1}, http.StatusBadRequest},
		{"remove owner", "/api/TripPlanning/removeParticipant", map[string]any{"owner": "alice", "tripId": id, "participantUser": "alice"}, http.StatusForbidden},
		{"owner leaves", "/api/TripPlanning/removeSelf", map[string]any{"user": "alice", "tripId": id}, http.StatusForbidden},
		{"unknown participant", "/api/TripPlanning/updateParticipant", map[string]any{"owner": "alice", "tripId": id, "participantUser": "zed", "budget": 1}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, ts, tt.path, tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d (body %v)", status, tt.status, body)
			}
		})
	}
}

func TestTripInvalidDate(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	status, _ := call(t, ts, "/api/TripPlanning/create", tripBody("alice", "Paris", "next tuesday", "2026-01-02"))
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{`"2026-03-04"`, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), false},
		{`"2026-03-04T12:30:00Z"`, time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC), false},
		{`""`, time.Time{}, false},
		{`"03/04/2026"`, time.Time{}, true},
		{`20260304`, time.Time{}, true},
	}

	for _, tt := range tests {
		var d date
		err := json.Unmarshal([]byte(tt.input), &d)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !d.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, d.Time, tt.want)
		}
	}
}
