package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/susu3304/lotterybot/internal/config"
	"github.com/susu3304/lotterybot/internal/lottery"
	"github.com/susu3304/lotterybot/internal/metrics"
)

const guildID = "123456789"

type memStore struct{}

func (memStore) Save(ctx context.Context, snap *lottery.Snapshot) error { return nil }
func (memStore) Load(ctx context.Context) (*lottery.Snapshot, error) {
	return nil, lottery.ErrNoSnapshot
}

type testServer struct {
	api     *API
	manager *lottery.Manager
	handler http.Handler
}

func newTestServer(t *testing.T, access map[string]guildAccess) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := lottery.NewManager(memStore{}, lottery.DefaultTemplate(),
		lottery.WithMetrics(metrics.NewLotteryMetrics(reg)),
		lottery.WithRandom(func() float64 { return 0.005 }),
	)
	cfg := &config.Config{JWTSecret: "test-secret", WebBind: "127.0.0.1:0"}
	a := New(cfg, m, reg)
	a.guildAccess = func(accessToken, gid string) guildAccess {
		if gid != guildID {
			return guildAccess{}
		}
		return access[accessToken]
	}
	return &testServer{api: a, manager: m, handler: a.Handler()}
}

func (s *testServer) do(t *testing.T, method, path, accessToken, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if accessToken != "" {
		token, err := s.api.issueToken("U-"+accessToken, accessToken, accessToken)
		if err != nil {
			t.Fatalf("issueToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", w.Body.String(), err)
	}
	return out
}

var defaultAccess = map[string]guildAccess{
	"admin":  {member: true, manager: true},
	"member": {member: true},
}

func TestPublicLottery(t *testing.T) {
	s := newTestServer(t, defaultAccess)

	w := s.do(t, "GET", "/api/public/guilds/abc/lottery", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid guild id, got %v", w.Code)
	}

	w = s.do(t, "GET", "/api/public/guilds/"+guildID+"/lottery", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without activity, got %v", w.Code)
	}
	if body := decode(t, w); body["error"] != lottery.ErrNoActivity.Error() {
		t.Errorf("Unexpected error body %v", body)
	}

	ctx := context.Background()
	s.manager.StartActivity(ctx, guildID)
	s.manager.Draw(ctx, guildID, "U1", "alice")

	w = s.do(t, "GET", "/api/public/guilds/"+guildID+"/lottery", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	body := decode(t, w)
	if _, ok := body["winners"]; ok {
		t.Error("Expected public view to omit winners")
	}
	if body["winner_count"] != float64(1) || body["active"] != true {
		t.Errorf("Unexpected public view %v", body)
	}
	if strings.Contains(w.Body.String(), "alice") {
		t.Error("Expected public view to hide nicknames")
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, defaultAccess)
	path := "/api/guilds/" + guildID + "/lottery"

	w := s.do(t, "GET", path, "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without header, got %v", w.Code)
	}

	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for bad token, got %v", rec.Code)
	}

	w = s.do(t, "GET", path, "stranger", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-member, got %v", w.Code)
	}

	w = s.do(t, "POST", path+"/start", "member", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for member start, got %v", w.Code)
	}
	if ids := s.manager.GroupIDs(); len(ids) != 0 {
		t.Errorf("Expected no activity, got %v", ids)
	}
}

func TestLotteryLifecycle(t *testing.T) {
	s := newTestServer(t, defaultAccess)
	base := "/api/guilds/" + guildID + "/lottery"

	steps := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"get before start", "GET", base, "member", "", http.StatusNotFound},
		{"set before start", "PUT", base + "/prizes/first", "admin", `{"probability":0.5,"count":2}`, http.StatusNotFound},
		{"start", "POST", base + "/start", "admin", "", http.StatusOK},
		{"start twice", "POST", base + "/start", "admin", "", http.StatusConflict},
		{"set first", "PUT", base + "/prizes/first", "admin", `{"probability":0.5,"count":2}`, http.StatusOK},
		{"set by display name", "PUT", base + "/prizes/" + url.PathEscape("二等賞"), "admin", `{"probability":0.2,"count":3}`, http.StatusOK},
		{"set participate", "PUT", base + "/prizes/participate", "admin", `{"probability":0.5,"count":2}`, http.StatusBadRequest},
		{"set bad probability", "PUT", base + "/prizes/first", "admin", `{"probability":1.5,"count":2}`, http.StatusBadRequest},
		{"set zero count", "PUT", base + "/prizes/first", "admin", `{"probability":0.5,"count":0}`, http.StatusBadRequest},
		{"set missing count", "PUT", base + "/prizes/first", "admin", `{"probability":0.5}`, http.StatusBadRequest},
		{"set bad body", "PUT", base + "/prizes/first", "admin", `{`, http.StatusBadRequest},
		{"stop", "POST", base + "/stop", "admin", "", http.StatusOK},
		{"stop twice", "POST", base + "/stop", "admin", "", http.StatusConflict},
		{"set after stop", "PUT", base + "/prizes/first", "admin", `{"probability":0.5,"count":2}`, http.StatusNotFound},
		{"get after stop", "GET", base, "member", "", http.StatusOK},
		{"delete by member", "DELETE", base, "member", "", http.StatusForbidden},
		{"delete", "DELETE", base, "admin", "", http.StatusOK},
		{"delete twice", "DELETE", base, "admin", "", http.StatusNotFound},
	}

	for _, step := range steps {
		w := s.do(t, step.method, step.path, step.token, step.body)
		if w.Code != step.want {
			t.Errorf("%s: Expected status %d, got %d (%s)", step.name, step.want, w.Code, w.Body.String())
		}
	}
}

func TestProtectedStatusIncludesWinners(t *testing.T) {
	s := newTestServer(t, defaultAccess)
	ctx := context.Background()
	s.manager.StartActivity(ctx, guildID)
	s.manager.Draw(ctx, guildID, "U1", "alice")

	w := s.do(t, "GET", "/api/guilds/"+guildID+"/lottery", "member", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	var st lottery.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(st.Winners) != 1 || st.Winners[0].Level != "特賞" || st.Winners[0].Winners[0].Nickname != "alice" {
		t.Errorf("Unexpected winners %+v", st.Winners)
	}
	if st.Prizes[0].LevelName != "特賞" || st.Prizes[0].Remaining != 0 {
		t.Errorf("Unexpected prizes %+v", st.Prizes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, defaultAccess)
	ctx := context.Background()
	s.manager.StartActivity(ctx, guildID)
	s.manager.Draw(ctx, guildID, "U1", "alice")

	w := s.do(t, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`lottery_draws_total{level="SPECIAL"} 1`,
		"lottery_active_activities 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}

func TestCanManage(t *testing.T) {
	owner := true
	tests := []struct {
		name  string
		guild DiscordGuild
		want  bool
	}{
		{"owner", DiscordGuild{Owner: &owner}, true},
		{"manage guild", DiscordGuild{Permissions: "32"}, true},
		{"administrator", DiscordGuild{Permissions: "8"}, true},
		{"plain member", DiscordGuild{Permissions: "1024"}, false},
		{"garbage", DiscordGuild{Permissions: "x"}, false},
	}
	for _, tt := range tests {
		if got := tt.guild.canManage(); got != tt.want {
			t.Errorf("%s: Expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestOAuthState(t *testing.T) {
	s := newTestServer(t, defaultAccess)

	w := s.do(t, "GET", "/api/auth/login", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	body := decode(t, w)
	state, _ := body["state"].(string)
	if state == "" {
		t.Fatalf("Expected a state in %v", body)
	}
	if authURL, _ := body["auth_url"].(string); !strings.Contains(authURL, "state="+url.QueryEscape(state)) {
		t.Errorf("Expected auth url to carry the state, got %q", authURL)
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != state || !cookie.HttpOnly {
		t.Fatalf("Expected an HttpOnly state cookie, got %+v", cookie)
	}

	tests := []struct {
		name   string
		query  string
		cookie string
		want   string
	}{
		{"no cookie", "?code=abc&state=" + url.QueryEscape(state), "", "invalid oauth state"},
		{"no state", "?code=abc", state, "invalid oauth state"},
		{"wrong state", "?code=abc&state=forged", state, "invalid oauth state"},
		{"matching state", "?state=" + url.QueryEscape(state), state, "missing code"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/auth/callback"+tt.query, nil)
		if tt.cookie != "" {
			req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: Expected status 400, got %v", tt.name, rec.Code)
		}
		if got := decode(t, rec)["error"]; got != tt.want {
			t.Errorf("%s: Expected error %q, got %v", tt.name, tt.want, got)
		}
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := generateRandomString(32)
	if err != nil {
		t.Fatalf("generateRandomString: %v", err)
	}
	b, _ := generateRandomString(32)
	if len(a) != 32 || a == b {
		t.Errorf("Expected distinct 32-char strings, got %q and %q", a, b)
	}
}
