package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeGraph(t *testing.T) (*GraphProvider, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("assertion") != "broker-assertion" {
			http.Error(w, "bad assertion", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"graph-token"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer graph-token" {
			http.Error(w, "missing bearer", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"oid-1","displayName":"Alice","mail":"alice@contoso.com"}`))
	})
	mux.HandleFunc("/organization", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[{"id":"tid-1"}]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	p := NewGraphProvider("tid-1", "client-id", "client-secret", nil)
	p.baseURL = server.URL
	p.tokenURL = server.URL + "/token"
	return p, server
}

func TestGraphExchangeAssertion(t *testing.T) {
	p, _ := newFakeGraph(t)

	ex, err := p.ExchangeAssertion(context.Background(), "broker-assertion")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}

	if ex.AccessToken != "graph-token" {
		t.Fatalf("expected federation-scoped token, got %q", ex.AccessToken)
	}
	want := Profile{SubjectID: "oid-1", IssuerID: "tid-1", DisplayName: "Alice", Email: "alice@contoso.com"}
	if ex.Profile != want {
		t.Fatalf("unexpected profile %+v", ex.Profile)
	}
}

func TestGraphExchangeRejectedAssertion(t *testing.T) {
	p, _ := newFakeGraph(t)

	_, err := p.ExchangeAssertion(context.Background(), "forged")
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}
}

func TestGraphLookupProfile(t *testing.T) {
	p, _ := newFakeGraph(t)

	profile, err := p.LookupProfile(context.Background(), "graph-token")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if profile.SubjectID != "oid-1" || profile.IssuerID != "tid-1" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
