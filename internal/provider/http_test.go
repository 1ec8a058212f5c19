package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientChannelStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/somechannel" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"live":true,"game":"VALORANT","title":"ranked grind","base_id":12345}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	status, err := client.ChannelStatus(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("ChannelStatus: %v", err)
	}
	if !status.Live || status.Game != "VALORANT" || status.BaseID != 12345 {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.Channel != "somechannel" {
		t.Errorf("channel not backfilled, got %q", status.Channel)
	}
}

func TestHTTPClientNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	if _, err := client.ChannelStatus(context.Background(), "somechannel"); err == nil {
		t.Error("expected error for non-OK response")
	}
}
