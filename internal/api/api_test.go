package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/novelcipher/internal/chapter"
	"github.com/starford/novelcipher/internal/checksum"
	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/testutil"
)

type env struct {
	svc    *chapter.Service
	cipher *cipher.Service
	router http.Handler
}

// testEnv sets up a temp vault, SQLite DB, service, and router. A non-empty
// token enables token mode.
func testEnv(t *testing.T, token string) env {
	t.Helper()
	if token == "" {
		return testEnvConfig(t, RouterConfig{})
	}
	return testEnvConfig(t, RouterConfig{AuthMode: AuthToken, Token: token})
}

func testEnvConfig(t *testing.T, cfg RouterConfig) env {
	t.Helper()
	_, store := testutil.TestVault(t)
	c := testutil.Cipher(t)
	svc := chapter.NewService(store, testutil.TestDB(t), chapter.WithCipher(c), chapter.WithLogger(testutil.Logger()))
	return env{svc: svc, cipher: c, router: NewRouter(svc, cfg)}
}

func (e env) do(t *testing.T, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e env) create(t *testing.T, number int, title, plaintext string) ChapterDetail {
	t.Helper()
	w := e.do(t, http.MethodPost, "/chapters", CreateChapterRequest{
		Number:     number,
		Title:      title,
		Ciphertext: e.cipher.EncryptText(plaintext),
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var d ChapterDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	return d
}

func TestCreateAndGetChapter(t *testing.T) {
	e := testEnv(t, "")
	created := e.create(t, 1, "Arrival", "It was a dark night.\n\nThe lamp flickered.")

	w := e.do(t, http.MethodGet, "/chapters/1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != checksum.ETag(created.Checksum) {
		t.Errorf("ETag = %q, want %q", etag, checksum.ETag(created.Checksum))
	}
	var d ChapterDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Title != "Arrival" || d.Number != 1 {
		t.Errorf("detail = %+v", d)
	}
	if strings.Contains(w.Body.String(), "dark night") {
		t.Error("response leaks plaintext")
	}
	if got := e.cipher.DecryptText(d.Ciphertext); got != "It was a dark night.\n\nThe lamp flickered." {
		t.Errorf("decrypted = %q", got)
	}
}

func TestGetChapter_NotModified(t *testing.T) {
	e := testEnv(t, "")
	created := e.create(t, 1, "One", "text")

	w := e.do(t, http.MethodGet, "/chapters/1", nil, map[string]string{"If-None-Match": checksum.ETag(created.Checksum)})
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
}

func TestGetChapter_BadNumber(t *testing.T) {
	e := testEnv(t, "")
	for _, target := range []string{"/chapters/abc", "/chapters/0", "/chapters/-2"} {
		if w := e.do(t, http.MethodGet, target, nil, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, w.Code)
		}
	}
}

func TestGetChapter_NotFound(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(t, http.MethodGet, "/chapters/42", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateDuplicate(t *testing.T) {
	e := testEnv(t, "")
	e.create(t, 2, "Two", "a")

	w := e.do(t, http.MethodPost, "/chapters", CreateChapterRequest{Number: 2, Ciphertext: e.cipher.EncryptText("b")}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := testEnv(t, "")

	cases := map[string]struct {
		body any
		want int
	}{
		"missing number":     {CreateChapterRequest{Ciphertext: e.cipher.EncryptText("x")}, http.StatusBadRequest},
		"missing ciphertext": {CreateChapterRequest{Number: 1}, http.StatusBadRequest},
		"not a payload":      {CreateChapterRequest{Number: 1, Ciphertext: "plain words"}, http.StatusUnprocessableEntity},
		"malformed json":     {"{", http.StatusBadRequest},
		"unknown field": {map[string]any{
			"number": 1, "ciphertext": e.cipher.EncryptText("x"), "plaintext": "x",
		}, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if w := e.do(t, http.MethodPost, "/chapters", tc.body, nil); w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	e := testEnv(t, "")
	created := e.create(t, 3, "Three", "v1")

	body := UpdateChapterRequest{Ciphertext: e.cipher.EncryptText("v2")}
	w := e.do(t, http.MethodPut, "/chapters/3", body, map[string]string{"If-Match": checksum.ETag(created.Checksum)})
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// The original checksum is stale now.
	w = e.do(t, http.MethodPut, "/chapters/3", body, map[string]string{"If-Match": created.Checksum})
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	e := testEnv(t, "")
	e.create(t, 4, "Four", "v1")

	w := e.do(t, http.MethodPut, "/chapters/4", UpdateChapterRequest{Title: "Renamed", Ciphertext: e.cipher.EncryptText("v2")}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update without If-Match = %d, want 200", w.Code)
	}
	var d ChapterDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Title != "Renamed" {
		t.Errorf("title = %q", d.Title)
	}
}

func TestUpdateChapter_NotFound(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPut, "/chapters/9", UpdateChapterRequest{Ciphertext: e.cipher.EncryptText("x")}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteChapter(t *testing.T) {
	e := testEnv(t, "")
	e.create(t, 5, "Five", "gone")

	if w := e.do(t, http.MethodDelete, "/chapters/5", nil, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/chapters/5", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/chapters/5", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListChapters(t *testing.T) {
	e := testEnv(t, "")
	e.create(t, 2, "Two", "b")
	e.create(t, 1, "One", "a")

	w := e.do(t, http.MethodGet, "/chapters?limit=10", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp ChapterListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Chapters) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Chapters[0].Number != 1 || resp.Chapters[1].Number != 2 {
		t.Errorf("order = %d,%d", resp.Chapters[0].Number, resp.Chapters[1].Number)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t, "")
	e.create(t, 1, "Lighthouse", "x")

	w := e.do(t, http.MethodGet, "/search?q=Lighthouse", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Number != 1 {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(t, http.MethodGet, "/search", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuth_WritesRequireToken(t *testing.T) {
	e := testEnv(t, "secret")
	body := CreateChapterRequest{Number: 1, Ciphertext: e.cipher.EncryptText("x")}

	if w := e.do(t, http.MethodPost, "/chapters", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/chapters", body, map[string]string{"Authorization": "Bearer wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/chapters", body, map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusCreated {
		t.Errorf("valid token = %d, want 201", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/chapters/1", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("delete without token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := map[string]struct {
		mode   AuthMode
		token  string
		header string
		want   int
	}{
		"disabled passes":          {AuthDisabled, "", "", http.StatusNoContent},
		"missing header":           {AuthToken, "secret", "", http.StatusUnauthorized},
		"wrong token":              {AuthToken, "secret", "Bearer secreT", http.StatusUnauthorized},
		"token prefix only":        {AuthToken, "secret", "Bearer secre", http.StatusUnauthorized},
		"wrong scheme":             {AuthToken, "secret", "Basic secret", http.StatusUnauthorized},
		"correct token":            {AuthToken, "secret", "Bearer secret", http.StatusNoContent},
		"token mode without token": {AuthToken, "", "Bearer ", http.StatusUnauthorized},
		"unknown mode":             {AuthMode("jwt"), "secret", "Bearer secret", http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chapters", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			AuthMiddleware(tc.mode, tc.token)(ok).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAuth_ReadsArePublic(t *testing.T) {
	e := testEnv(t, "secret")
	if w := e.do(t, http.MethodGet, "/chapters", nil, nil); w.Code != http.StatusOK {
		t.Errorf("list without token = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	e := testEnvConfig(t, RouterConfig{RequestsPerMinute: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, e.do(t, http.MethodGet, "/chapters", nil, nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestEventsMounted(t *testing.T) {
	called := false
	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	e := testEnvConfig(t, RouterConfig{Events: events})
	if w := e.do(t, http.MethodGet, "/events", nil, nil); w.Code != http.StatusOK || !called {
		t.Errorf("events status = %d, called = %v", w.Code, called)
	}

	e = testEnv(t, "")
	if w := e.do(t, http.MethodGet, "/events", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("unmounted events = %d, want 404", w.Code)
	}
}
