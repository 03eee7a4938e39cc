package contact

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"propertyhub/internal/auth"
	"propertyhub/internal/notify"
	"propertyhub/pkg/database/dbtest"
)

type recordingNotifier struct {
	mu    sync.Mutex
	teams []string
	done  chan struct{}
}

func (n *recordingNotifier) BroadcastContact(_ notify.ContactMessage, teamID string) {
	n.mu.Lock()
	n.teams = append(n.teams, teamID)
	n.mu.Unlock()
	n.done <- struct{}{}
}

var tokens = auth.TokenService{Secret: []byte("test-secret"), Issuer: "propertyhub-test", Duration: time.Hour}

func sign(t *testing.T, role, team string) string {
	t.Helper()
	s, _, err := tokens.Sign(&auth.User{ID: role + team, Role: role, TeamID: team})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func do(t *testing.T, r *gin.Engine, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestContactFlowIsTeamScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	if _, err := db.Exec(`INSERT INTO properties (property_code, team_id) VALUES ('AT1R', 'east'), ('AT2S', 'west')`); err != nil {
		t.Fatalf("seed properties: %v", err)
	}

	n := &recordingNotifier{done: make(chan struct{}, 4)}
	h := NewHandler(NewRepo(db), nil, n, nil)
	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/api"))
	h.RegisterStaffRoutes(r.Group("/api/staff", auth.AuthMiddleware(tokens, nil)))

	for _, tc := range []struct {
		body map[string]string
		want string
	}{
		{map[string]string{"name": "A", "message": "hi"}, "email or phone required"},
		{map[string]string{"name": "A", "email": "a@", "message": "hi"}, "email must be a valid email"},
		{map[string]string{"name": "  ", "phone": "0812345678", "message": "hi"}, "name is required"},
		{map[string]string{"name": "A", "phone": "0812345678"}, "message is required"},
	} {
		code, body := do(t, r, http.MethodPost, "/api/contact", "", tc.body)
		if code != http.StatusBadRequest || body["error"] != tc.want {
			t.Fatalf("%v = %d %v, want 400 %q", tc.body, code, body, tc.want)
		}
	}

	for _, msg := range []map[string]string{
		{"name": "Somchai", "email": "somchai@example.com", "message": "Still available?", "property_code": "AT1R"},
		{"name": "Malee", "phone": "0812345678", "message": "Price?", "property_code": "AT2S"},
		{"name": "Anon", "phone": "0800000000", "message": "General question"},
	} {
		if code, body := do(t, r, http.MethodPost, "/api/contact", "", msg); code != http.StatusCreated {
			t.Fatalf("contact = %d %v", code, body)
		}
		select {
		case <-n.done:
		case <-time.After(2 * time.Second):
			t.Fatal("notifier not called")
		}
	}
	n.mu.Lock()
	if got := n.teams; len(got) != 3 || got[0] != "east" || got[1] != "west" || got[2] != "" {
		t.Fatalf("notified teams = %q", got)
	}
	n.mu.Unlock()

	east := sign(t, auth.RoleAgent, "east")
	code, body := do(t, r, http.MethodGet, "/api/staff/contact-messages", east, nil)
	if code != http.StatusOK || body["total"].(float64) != 1 {
		t.Fatalf("east list = %d %v", code, body)
	}
	eastID := int64(body["items"].([]any)[0].(map[string]any)["id"].(float64))

	code, body = do(t, r, http.MethodGet, "/api/staff/contact-messages", sign(t, auth.RoleAdmin, ""), nil)
	if code != http.StatusOK || body["total"].(float64) != 3 {
		t.Fatalf("admin list = %d %v", code, body)
	}

	west := sign(t, auth.RoleAgent, "west")
	path := "/api/staff/contact-messages/" + strconv.FormatInt(eastID, 10)
	if code, _ := do(t, r, http.MethodPatch, path, west, map[string]bool{"read": true}); code != http.StatusNotFound {
		t.Fatalf("other team mark = %d, want 404", code)
	}
	if code, _ := do(t, r, http.MethodPatch, path, east, map[string]bool{"read": true}); code != http.StatusOK {
		t.Fatalf("mark read = %d", code)
	}
	code, body = do(t, r, http.MethodGet, "/api/staff/contact-messages?unread=true", east, nil)
	if code != http.StatusOK || body["total"].(float64) != 0 {
		t.Fatalf("unread after mark = %d %v", code, body)
	}
	if code, _ := do(t, r, http.MethodDelete, path, east, nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
}
