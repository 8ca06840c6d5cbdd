package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"blogopen/internal/app"
	"blogopen/internal/ratelimit"
	"blogopen/internal/store"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.App == nil {
		a, err := app.New(app.Config{
			Store:    store.NewMemoryStore(),
			Sessions: store.NewMemorySessionStore(),
		})
		if err != nil {
			t.Fatalf("new app: %v", err)
		}
		cfg.App = a
	}
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func registerUser(t *testing.T, srv *httptest.Server, email, role string) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/register", "", map[string]string{
		"email": email, "password": "secret", "role": role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	var body struct {
		Ok    bool   `json:"ok"`
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	if !body.Ok || body.Token == "" {
		t.Fatalf("register %s: bad body %+v", email, body)
	}
	return body.Token
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp := postJSON(t, srv.URL+"/api/register", "", map[string]string{
		"email": "user@example.com", "password": "secret", "role": "blogger",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	cookieSet := false
	for _, c := range resp.Cookies() {
		if c.Name == "bo_session" && c.Value != "" && c.HttpOnly {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Fatal("register should set an HttpOnly session cookie")
	}
	var reg struct {
		Ok    bool   `json:"ok"`
		Role  string `json:"role"`
		Token string `json:"token"`
	}
	decodeBody(t, resp, &reg)
	if reg.Role != "blogger" {
		t.Fatalf("role = %q", reg.Role)
	}

	// duplicate email conflicts
	resp = postJSON(t, srv.URL+"/api/register", "", map[string]string{
		"email": "user@example.com", "password": "x", "role": "brand",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// registration auto-logs in
	resp = getJSON(t, srv.URL+"/api/me", reg.Token)
	var me struct {
		Ok    bool   `json:"ok"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &me)
	if me.Email != "user@example.com" || me.Role != "blogger" {
		t.Fatalf("me = %+v", me)
	}

	// wrong password
	resp = postJSON(t, srv.URL+"/api/login", "", map[string]string{
		"email": "user@example.com", "password": "nope",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}

	// logout kills the token
	resp = postJSON(t, srv.URL+"/api/logout", reg.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	resp = getJSON(t, srv.URL+"/api/me", reg.Token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	srv := newTestServer(t, Config{})
	for _, path := range []string{"/api/me", "/api/brand/profile", "/api/bloggers", "/api/chat"} {
		resp := getJSON(t, srv.URL+path, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestProfileRoleGatingOverHTTP(t *testing.T) {
	srv := newTestServer(t, Config{})
	brandToken := registerUser(t, srv, "brand@example.com", "brand")
	bloggerToken := registerUser(t, srv, "blogger@example.com", "blogger")

	resp := getJSON(t, srv.URL+"/api/blogger/profile", brandToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("brand on blogger profile status = %d, want 403", resp.StatusCode)
	}
	resp = getJSON(t, srv.URL+"/api/bloggers", bloggerToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("blogger on bloggers list status = %d, want 403", resp.StatusCode)
	}
	resp = getJSON(t, srv.URL+"/api/brands", brandToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("brand on brands list status = %d, want 403", resp.StatusCode)
	}
}

func TestMultipartProfileUpdateAndAvatar(t *testing.T) {
	srv := newTestServer(t, Config{})
	token := registerUser(t, srv, "blogger@example.com", "blogger")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("nickname", "star")
	_ = mw.WriteField("followers", "2500")
	part, err := mw.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-png-bytes")); err != nil {
		t.Fatalf("write avatar: %v", err)
	}
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/blogger/profile/update", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update request: %v", err)
	}
	var view struct {
		Ok        bool   `json:"ok"`
		Nickname  string `json:"nickname"`
		Followers int    `json:"followers"`
		AvatarURL string `json:"avatar_url"`
		Progress  int    `json:"progress"`
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &view)
	if view.Nickname != "star" || view.Followers != 2500 {
		t.Fatalf("update not applied: %+v", view)
	}
	if view.AvatarURL == "" || view.Progress != 38 {
		t.Fatalf("avatar/progress wrong: %+v", view)
	}

	// the avatar URL serves the uploaded bytes without credentials
	resp = getJSON(t, srv.URL+view.AvatarURL, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("avatar status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "fake-png-bytes" {
		t.Fatalf("avatar bytes mismatch: %q", data)
	}

	// partial update keeps earlier values
	form := strings.NewReader("topic=tech")
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/blogger/profile/update", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("partial update: %v", err)
	}
	decodeBody(t, resp, &view)
	if view.Nickname != "star" || view.Followers != 2500 {
		t.Fatalf("partial update clobbered fields: %+v", view)
	}
}

func TestEmptyAvatarPartIsIgnored(t *testing.T) {
	srv := newTestServer(t, Config{})
	token := registerUser(t, srv, "blogger@example.com", "blogger")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("nickname", "star")
	if _, err := mw.CreateFormFile("avatar", "empty.png"); err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/blogger/profile/update", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	var view struct {
		Nickname  string `json:"nickname"`
		AvatarURL string `json:"avatar_url"`
	}
	decodeBody(t, resp, &view)
	if view.Nickname != "star" {
		t.Fatalf("text fields should still apply: %+v", view)
	}
	if view.AvatarURL != "" {
		t.Fatalf("avatar_url = %q, want empty for zero-byte part", view.AvatarURL)
	}
}

func TestChatFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, Config{})
	brandToken := registerUser(t, srv, "brand@example.com", "brand")
	bloggerToken := registerUser(t, srv, "blogger@example.com", "blogger")

	// the brand finds the blogger in the directory
	resp := getJSON(t, srv.URL+"/api/bloggers", brandToken)
	var list struct {
		Ok      bool `json:"ok"`
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	decodeBody(t, resp, &list)
	if len(list.Results) != 1 {
		t.Fatalf("directory results = %+v", list)
	}
	bloggerProfileID := list.Results[0].ID

	resp = postJSON(t, srv.URL+"/api/chat/with/"+bloggerProfileID, brandToken, nil)
	var started struct {
		Ok             bool   `json:"ok"`
		ConversationID string `json:"conversation_id"`
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start conversation status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &started)
	convID := started.ConversationID

	resp = postJSON(t, srv.URL+"/api/chat/"+convID+"/messages", brandToken, map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send status = %d", resp.StatusCode)
	}
	var sent struct {
		Ok      bool `json:"ok"`
		Message struct {
			Text   string `json:"text"`
			IsMine bool   `json:"is_mine"`
		} `json:"message"`
	}
	decodeBody(t, resp, &sent)
	if sent.Message.Text != "hello" || !sent.Message.IsMine {
		t.Fatalf("sent = %+v", sent)
	}

	// blank text is rejected
	resp = postJSON(t, srv.URL+"/api/chat/"+convID+"/messages", brandToken, map[string]string{"text": "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank text status = %d, want 400", resp.StatusCode)
	}

	// the blogger sees the unread conversation, the alias route works too
	resp = getJSON(t, srv.URL+"/api/conversations", bloggerToken)
	var convs struct {
		Ok      bool `json:"ok"`
		Results []struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			LastMessage string `json:"last_message"`
			UnreadCount int    `json:"unread_count"`
		} `json:"results"`
	}
	decodeBody(t, resp, &convs)
	if len(convs.Results) != 1 {
		t.Fatalf("conversations = %+v", convs)
	}
	entry := convs.Results[0]
	if entry.UnreadCount != 1 || entry.LastMessage != "hello" || entry.Title != "brand@example.com" {
		t.Fatalf("entry = %+v", entry)
	}

	resp = postJSON(t, srv.URL+"/api/conversations/"+convID+"/read", bloggerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read status = %d", resp.StatusCode)
	}
	resp = getJSON(t, srv.URL+"/api/conversations", bloggerToken)
	decodeBody(t, resp, &convs)
	if convs.Results[0].UnreadCount != 0 {
		t.Fatalf("unread after mark = %d", convs.Results[0].UnreadCount)
	}

	// an outsider cannot read the thread
	intruderToken := registerUser(t, srv, "intruder@example.com", "brand")
	resp = getJSON(t, srv.URL+"/api/chat/"+convID+"/messages", intruderToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("intruder status = %d, want 403", resp.StatusCode)
	}

	// same-role conversations are rejected
	resp = getJSON(t, srv.URL+"/api/brands", bloggerToken)
	var brands struct {
		Ok      bool `json:"ok"`
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	decodeBody(t, resp, &brands)
	resp = postJSON(t, srv.URL+"/api/chat/with/"+brands.Results[0].ID, intruderToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("same role status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:login", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv := newTestServer(t, Config{LoginLimiter: limiter})

	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/login", "", map[string]string{
			"email": fmt.Sprintf("u%d@example.com", i), "password": "x",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i, resp.StatusCode)
		}
	}
	resp := postJSON(t, srv.URL+"/api/login", "", map[string]string{
		"email": "u3@example.com", "password": "x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("limited status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("429 response should carry Retry-After")
	}
}

func TestCORSHeadersAppliedForConfiguredOrigin(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigin: "http://localhost:5173"})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials = %q", got)
	}
}
