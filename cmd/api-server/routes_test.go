package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"propertyhub/internal/reference/referencetest"
	synchub "propertyhub/internal/sync"
	"propertyhub/pkg/database/dbtest"
	"propertyhub/pkg/utils"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	referencetest.Seed(t, db)
	return newRouter(deps{
		DB:     db,
		DBPath: "test.db",
		Config: utils.Config{
			Auth: utils.AuthConfig{
				JWTSecret:   "test-secret",
				JWTIssuer:   "propertyhub-test",
				JWTDuration: time.Hour,
				RefreshTTL:  time.Hour,
				LoginRPS:    100,
			},
		},
		Hub: synchub.NewHub(),
	})
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestListingLifecycleThroughRouter(t *testing.T) {
	r := testRouter(t)

	if code, _ := call(t, r, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Fatalf("health = %d", code)
	}
	if code, _ := call(t, r, http.MethodPost, "/staff/properties", "", map[string]any{}); code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", code)
	}

	code, body := call(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "admin", "email": "admin@example.com", "password": "correct-horse",
	})
	if code != http.StatusCreated {
		t.Fatalf("register = %d %v", code, body)
	}
	token := body["token"].(string)

	code, body = call(t, r, http.MethodPost, "/staff/properties", token, map[string]any{
		"type_text":     "Factory|Warehouse",
		"status_text":   "For Sale",
		"province_text": "Chon Buri",
		"size":          1200,
	})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %v", code, body)
	}
	propCode := body["property_code"].(string)

	code, body = call(t, r, http.MethodGet, "/properties/code/"+propCode, "", nil)
	if code != http.StatusOK {
		t.Fatalf("get by code = %d %v", code, body)
	}
	want := "Factory or Warehouse 1200 sqm for For Sale at Chon Buri (Property ID: " + propCode + ")"
	if got := body["titles"].(map[string]any)["title_en"]; got != want {
		t.Fatalf("title_en = %v, want %q", got, want)
	}

	code, body = call(t, r, http.MethodGet, "/reference/types", "", nil)
	if code != http.StatusOK {
		t.Fatalf("types = %d %v", code, body)
	}
	if code, _ := call(t, r, http.MethodGet, "/debug", token, nil); code != http.StatusOK {
		t.Fatalf("debug as admin = %d", code)
	}
}
