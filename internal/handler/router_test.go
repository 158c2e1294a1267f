package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careline/voicedesk/internal/config"
	"github.com/careline/voicedesk/internal/handler"
	"github.com/careline/voicedesk/internal/handler/room"
	"github.com/careline/voicedesk/internal/model/persona"
	"github.com/careline/voicedesk/internal/service/prompts"
	"github.com/careline/voicedesk/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()

	store := persona.NewMemoryStore(persona.Seed())
	hub := room.NewHub()
	controller := session.NewController(hub, nil)
	manager := session.NewManager(store, prompts.Defaults(), controller, config.SessionConfig{
		EntryPersona:      "triage",
		KeepLastItems:     6,
		KeepFunctionItems: true,
		StreamTopic:       "test",
		Summary:           "Medical office triage system with video analysis capabilities",
	})
	gateway := room.NewGateway(hub, manager, "test")

	srv := httptest.NewServer(handler.NewRouter(store, manager, nil, gateway))
	t.Cleanup(srv.Close)
	return srv, manager
}

func postJSON(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestListPersonas(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/personas")
	if err != nil {
		t.Fatalf("GET personas: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var personas []persona.Persona
	decodeBody(t, resp, &personas)
	if len(personas) != 3 {
		t.Fatalf("expected 3 personas, got %d", len(personas))
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/sessions")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var info session.Info
	decodeBody(t, resp, &info)
	if info.Current != "triage" {
		t.Fatalf("entry persona = %s", info.Current)
	}

	resp = postJSON(t, srv.URL+"/api/sessions/"+info.ID+"/tools/transfer_to_support")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer status = %d", resp.StatusCode)
	}
	var transfer map[string]string
	decodeBody(t, resp, &transfer)
	if transfer["active"] != "support" {
		t.Fatalf("active = %s", transfer["active"])
	}

	resp, err := http.Get(srv.URL + "/api/sessions/" + info.ID)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	var after session.Info
	decodeBody(t, resp, &after)
	if after.Current != "support" || after.Previous != "triage" {
		t.Fatalf("unexpected session info: %+v", after)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/"+info.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d", resp.StatusCode)
	}
}

func TestInvokeToolRejectsOutsideCapabilitySet(t *testing.T) {
	srv, manager := newTestServer(t)

	st, err := manager.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	// triage exposes transfer_to_support and transfer_to_billing only.
	resp := postJSON(t, srv.URL+"/api/sessions/"+st.ID()+"/tools/transfer_to_triage")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestInvokeToolUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/sessions/missing/tools/transfer_to_support")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamUnavailableWithoutEngine(t *testing.T) {
	srv, manager := newTestServer(t)

	st, err := manager.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/stream/" + st.ID() + "?message=hello")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, manager := newTestServer(t)

	st, err := manager.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/sessions/" + st.ID() + "/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var items []map[string]any
	decodeBody(t, resp, &items)
	if len(items) != 1 {
		t.Fatalf("expected the entry announcement, got %d items", len(items))
	}

	resp, err = http.Get(srv.URL + "/api/sessions/" + st.ID() + "/history?persona=ghost")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
