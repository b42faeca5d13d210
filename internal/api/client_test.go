package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("request path = %q, want /api/status", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(StatusResponse{
			Mode:      "ap-active",
			SSID:      "wifiguard",
			IPAddress: "10.41.0.1",
			Interface: "wlan0",
			Manager:   "NetworkManager",
			Since:     time.Now(),
		})
	}))
	defer server.Close()

	client := NewClientWithURL(server.URL)
	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Mode != "ap-active" || status.SSID != "wifiguard" {
		t.Errorf("Status() = %+v", status)
	}
}

func TestNetworksErrorWhileHosting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error: "scanning unavailable while access point mode is active",
		})
	}))
	defer server.Close()

	client := NewClientWithURL(server.URL)
	_, err := client.Networks()
	if err == nil {
		t.Fatal("Networks() error = nil, want daemon error")
	}
	clientErr, ok := err.(*ClientError)
	if !ok {
		t.Fatalf("Networks() error type = %T, want *ClientError", err)
	}
	if clientErr.Type != ErrTypeHTTP || clientErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ClientError = %+v", clientErr)
	}
	if clientErr.Message != "scanning unavailable while access point mode is active" {
		t.Errorf("ClientError.Message = %q, want the daemon's error string", clientErr.Message)
	}
}

func TestConnectPostsJSON(t *testing.T) {
	var got ConnectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("request method = %q, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(AcceptedResponse{Accepted: true})
	}))
	defer server.Close()

	client := NewClientWithURL(server.URL)
	if err := client.Connect("cafe", "espresso1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got.SSID != "cafe" || got.Password != "espresso1" {
		t.Errorf("daemon received %+v", got)
	}
}

func TestUnreachableDaemon(t *testing.T) {
	client := NewClientWithURL("http://127.0.0.1:1")
	client.SetTimeout(500 * time.Millisecond)

	_, err := client.Status()
	if err == nil {
		t.Fatal("Status() error = nil against closed port")
	}
	if !IsUnreachable(err) {
		t.Errorf("IsUnreachable(%v) = false, want true", err)
	}
}

func TestEventsURL(t *testing.T) {
	client := NewClientWithURL("http://10.41.0.1:8080")
	if got := client.EventsURL(); got != "ws://10.41.0.1:8080/api/events" {
		t.Errorf("EventsURL() = %q", got)
	}
}
