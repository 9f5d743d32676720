package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

const testOpenAPIDoc = `openapi: 3.0.3
info:
  title: Smart Agenda API
  version: 1.0.0
paths:
  /api/v1/agenda:
    get:
      responses:
        "200":
          description: OK
`

func TestNewOpenAPIHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid document", doc: testOpenAPIDoc},
		{name: "missing version", doc: "info:\n  title: x\n", wantErr: true},
		{name: "not yaml", doc: "openapi: [unclosed", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newOpenAPIHandler([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("newOpenAPIHandler() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewOpenAPIHandler_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAPIHandler(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestOpenAPIHandler_Serve(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "openapi.yaml")
	if err := os.WriteFile(path, []byte(testOpenAPIDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	h, err := NewOpenAPIHandler(path)
	if err != nil {
		t.Fatalf("NewOpenAPIHandler() error = %v", err)
	}
	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		w := serve(h.RegisterRoutes, "", newTestRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))
		if ct := w.Header().Get("Content-Type"); ct != "application/x-yaml" {
			t.Errorf("Expected YAML content type, got %s", ct)
		}
		if w.Body.String() != testOpenAPIDoc {
			t.Error("Expected the document to be served verbatim")
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		w := serve(h.RegisterRoutes, "", newTestRequest(http.MethodGet, "/api/v1/openapi.json", nil))
		var doc map[string]any
		if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
			t.Fatalf("Failed to decode JSON document: %v", err)
		}
		if doc["openapi"] != "3.0.3" {
			t.Errorf("Expected openapi 3.0.3, got %v", doc["openapi"])
		}
	})
}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	t.Parallel()

	h, err := NewOpenAPIHandler(filepath.Join("..", "..", "api", "openapi", "openapi.yaml"))
	if err != nil {
		t.Fatalf("NewOpenAPIHandler() error = %v", err)
	}
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(h.jsonDoc, &doc); err != nil {
		t.Fatalf("Failed to decode JSON document: %v", err)
	}

	routes := map[string][]string{
		"/healthz":                               {"get"},
		"/version":                               {"get"},
		"/api/v1/openapi.yaml":                   {"get"},
		"/api/v1/openapi.json":                   {"get"},
		"/api/v1/habits/registry":                {"get"},
		"/api/v1/habits/pending":                 {"get"},
		"/api/v1/habits/{section}/{item}/today":  {"put"},
		"/api/v1/habits/{section}/{item}/config": {"put"},
		"/api/v1/tasks":                          {"get", "post"},
		"/api/v1/tasks/{id}":                     {"get", "patch", "delete"},
		"/api/v1/tasks/{id}/complete":            {"post"},
		"/api/v1/agenda":                         {"get"},
	}
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !ok {
			t.Errorf("Path %s is not documented", path)
			continue
		}
		for _, m := range methods {
			if _, ok := ops[m]; !ok {
				t.Errorf("Operation %s %s is not documented", m, path)
			}
		}
	}
}
