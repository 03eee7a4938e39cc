package articles

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"propertyhub/pkg/database/dbtest"
)

func TestExcerpt(t *testing.T) {
	long := "<p>" + strings.Repeat("warehouse ", 40) + "</p>"

	tests := []struct {
		name string
		html string
		want string
	}{
		{"strips markup", "<h1>Bang Na</h1><p>Ready <b>now</b>.</p>", "Bang Na Ready now."},
		{"drops scripts", "<p>Hi</p><script>alert(1)</script>", "Hi"},
		{"empty", "", ""},
		{"cuts on word", long, strings.TrimSpace(strings.Repeat("warehouse ", 20)) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Excerpt(tt.html)
			if got != tt.want {
				t.Fatalf("Excerpt = %q, want %q", got, tt.want)
			}
			if utf8.RuneCountInString(got) > excerptRunes+1 {
				t.Fatalf("excerpt too long: %d runes", utf8.RuneCountInString(got))
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Warehouse Guide 2024":  "warehouse-guide-2024",
		"  --Hello,   World!--": "hello-world",
		"Ćafé Ünit":             "cafe-unit",
		"???":                   "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestPublishedVisibility(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewRepo(dbtest.Open(t)))
	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/api"))
	h.RegisterAdminRoutes(r.Group("/api/admin"))

	code, body := do(t, r, http.MethodPost, "/api/admin/articles", map[string]any{
		"title": "Renting a Warehouse", "body_html": "<p>Step one.</p>",
	})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %v", code, body)
	}
	if body["slug"] != "renting-a-warehouse" || body["excerpt"] != "Step one." {
		t.Fatalf("created %v", body)
	}
	id := int(body["id"].(float64))

	if code, _ := do(t, r, http.MethodGet, "/api/articles/renting-a-warehouse", nil); code != http.StatusNotFound {
		t.Fatalf("draft visible publicly: %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/admin/articles", map[string]any{"title": "Renting a warehouse!"}); code != http.StatusConflict {
		t.Fatalf("duplicate slug = %d, want 409", code)
	}

	code, body = do(t, r, http.MethodPut, "/api/admin/articles/"+strconv.Itoa(id), map[string]any{
		"title": "Renting a Warehouse", "body_html": "<p>Step two.</p>", "published": true,
	})
	if code != http.StatusOK || body["excerpt"] != "Step two." {
		t.Fatalf("update = %d %v", code, body)
	}

	code, body = do(t, r, http.MethodGet, "/api/articles", nil)
	if code != http.StatusOK || body["total"].(float64) != 1 {
		t.Fatalf("public list = %d %v", code, body)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/articles/renting-a-warehouse", nil); code != http.StatusOK {
		t.Fatalf("published get = %d", code)
	}
	if code, _ := do(t, r, http.MethodDelete, "/api/admin/articles/"+strconv.Itoa(id), nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
}
