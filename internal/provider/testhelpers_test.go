package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bbernstein/chargefinder/pkg/http/client"
)

// newTestServer serves handler and returns a client rooted at its URL.
func newTestServer(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return client.New(client.Options{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
	})
}

func decodeAny(t *testing.T, body string) []any {
	t.Helper()
	var items []any
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		t.Fatalf("decoding %q: %v", body, err)
	}
	return items
}
