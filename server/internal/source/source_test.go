package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Microgramix/Motoristas.ranking/server/internal/config"
)

const teamsJSON = `{
  "north": {"2024-01-01": {"Ana": 5, "Bruno": "3"}, "2024-01-02": {"Ana": null}},
  "south": {"2024-01-01": {"Carla": 2.5}}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestDecodeJSON(t *testing.T) {
	docs, err := DecodeJSON(strings.NewReader(teamsJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "north" || docs[1].ID != "south" {
		t.Fatalf("docs = %+v", docs)
	}
	if got, ok := docs[0].Days["2024-01-01"]["Ana"].(json.Number); !ok || got != "5" {
		t.Errorf("Ana count = %#v, want json.Number 5", docs[0].Days["2024-01-01"]["Ana"])
	}
	if v, ok := docs[0].Days["2024-01-02"]["Ana"]; !ok || v != nil {
		t.Errorf("null count = %#v", v)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	if _, err := DecodeJSON(strings.NewReader(`{"north": [1, 2]}`)); err == nil {
		t.Fatal("expected error for wrong shape")
	}
}

func TestFile_JSONAndYAML(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "teams.json", teamsJSON},
		{"yaml", "teams.yaml", `north:
  "2024-01-01":
    Ana: 5
    Bruno: "3"
  "2024-01-02":
    Ana: null
south:
  "2024-01-01":
    Carla: 2.5
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := New(config.SourceConfig{Type: "file", Path: writeFile(t, tc.file, tc.content)})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			docs, err := src.Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(docs) != 2 {
				t.Fatalf("docs = %d, want 2", len(docs))
			}
			if len(docs[0].Days["2024-01-01"]) != 2 {
				t.Errorf("north 2024-01-01 = %+v", docs[0].Days["2024-01-01"])
			}
		})
	}
}

func TestFile_Missing(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHTTP_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(teamsJSON))
	}))
	defer srv.Close()

	docs, err := NewHTTP(srv.URL, srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("docs = %d, want 2", len(docs))
	}
}

func TestHTTP_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, srv.Client()).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status 502", err)
	}
}

func TestHTTP_AuthModes(t *testing.T) {
	t.Setenv("STORE_KEY", "k-123")
	t.Setenv("STORE_TOKEN", "t-456")
	t.Setenv("STORE_PASS", "p-789")

	tests := []struct {
		name  string
		auth  config.AuthConfig
		check func(t *testing.T, r *http.Request)
	}{
		{"apikey default header", config.AuthConfig{Mode: "apikey", KeyEnv: "STORE_KEY"}, func(t *testing.T, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "k-123" {
				t.Errorf("X-API-Key = %q", got)
			}
		}},
		{"apikey custom header", config.AuthConfig{Mode: "apikey", Header: "X-Store", KeyEnv: "STORE_KEY"}, func(t *testing.T, r *http.Request) {
			if got := r.Header.Get("X-Store"); got != "k-123" {
				t.Errorf("X-Store = %q", got)
			}
		}},
		{"bearer", config.AuthConfig{Mode: "bearer", TokenEnv: "STORE_TOKEN"}, func(t *testing.T, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer t-456" {
				t.Errorf("Authorization = %q", got)
			}
		}},
		{"basic", config.AuthConfig{Mode: "basic", Username: "ops", PasswordEnv: "STORE_PASS"}, func(t *testing.T, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != "ops" || p != "p-789" {
				t.Errorf("basic auth = %q %q %v", u, p, ok)
			}
		}},
		{"none", config.AuthConfig{Mode: "none"}, func(t *testing.T, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Error("unexpected Authorization header")
			}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tc.check(t, r)
				_, _ = w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			src, err := New(config.SourceConfig{Type: "http", Endpoint: srv.URL, Timeout: config.DefaultSourceTimeout, Auth: tc.auth})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := src.Fetch(context.Background()); err != nil {
				t.Fatalf("Fetch: %v", err)
			}
		})
	}
}

func TestSQLite_ImportAndFetch(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "teams.db")
	db, err := OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	docs, err := DecodeJSON(strings.NewReader(teamsJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	n, err := db.Import(context.Background(), docs)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 4 {
		t.Errorf("imported = %d, want 4", n)
	}

	got, err := db.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != "north" {
		t.Fatalf("docs = %+v", got)
	}
	if v, ok := got[0].Days["2024-01-01"]["Ana"].(int64); !ok || v != 5 {
		t.Errorf("Ana = %#v, want int64 5", got[0].Days["2024-01-01"]["Ana"])
	}
	if v := got[0].Days["2024-01-01"]["Bruno"]; v != "3" {
		t.Errorf("Bruno = %#v, want \"3\"", v)
	}
	if v, ok := got[1].Days["2024-01-01"]["Carla"].(float64); !ok || v != 2.5 {
		t.Errorf("Carla = %#v, want 2.5", got[1].Days["2024-01-01"]["Carla"])
	}

	// Re-importing updates in place.
	docs[0].Days["2024-01-01"]["Ana"] = 7
	if _, err := db.Import(context.Background(), docs); err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	got, _ = db.Fetch(context.Background())
	if v := got[0].Days["2024-01-01"]["Ana"]; v != int64(7) {
		t.Errorf("Ana after upsert = %#v, want 7", v)
	}
}

func TestNew_Unsupported(t *testing.T) {
	if _, err := New(config.SourceConfig{Type: "ftp"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
