package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/haven/internal/articleservice"
	"github.com/starford/haven/internal/metadata"
	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/reminders"
	"github.com/starford/haven/internal/scheduling"
	"github.com/starford/haven/internal/testutil"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) PublishArticleEvent(kind, id string) {
	n.mu.Lock()
	n.events = append(n.events, kind+":"+id)
	n.mu.Unlock()
}

type testServer struct {
	dir      string
	svc      *articleservice.Service
	handler  *Handler
	router   http.Handler
	notifier *fakeNotifier
}

// testEnv sets up a temp content directory, service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) *testServer {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil)
}

func testEnvWithSSE(t *testing.T, authToken string, sseHandler http.Handler) *testServer {
	t.Helper()
	dir, store := testutil.TestStore(t)
	svc := articleservice.NewService(store, metadata.NewOverlay(), testutil.Logger())
	n := &fakeNotifier{}
	h := NewHandler(Deps{
		Articles:  svc,
		Scheduler: scheduling.NewEngine(svc),
		Reminders: reminders.NewEngine(svc),
		Notifier:  n,
		Port:      3003,
	})
	return &testServer{
		dir:      dir,
		svc:      svc,
		handler:  h,
		router:   NewRouter(h, authToken != "", authToken, sseHandler),
		notifier: n,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	switch b := body.(type) {
	case nil:
		r = bytes.NewReader(nil)
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := testEnv(t, "secret")

	// Public even with auth on.
	w := ts.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	got := decode[HealthResponse](t, w)
	if got.Status != "ok" || got.Port != 3003 {
		t.Errorf("health = %+v", got)
	}
}

func TestCreateAndGetArticle(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "hello", "title": "Hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[ArticleResponse](t, w)
	if !created.Success || created.Article.Content != "# Hello\n\n\nStart writing..." {
		t.Errorf("created = %+v", created.Article)
	}
	if created.Article.Status != models.StatusDraft {
		t.Errorf("status = %q", created.Article.Status)
	}

	w = ts.do(t, http.MethodGet, "/articles/hello", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	a := decode[models.Article](t, w)
	if a.Title != "Hello" || a.Filename != "hello.md" || a.WordCount != 4 || a.WordGoal != 1000 {
		t.Errorf("article = %+v", a)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+a.Checksum+`"` {
		t.Errorf("etag = %q, checksum = %q", etag, a.Checksum)
	}
}

func TestCreateDefaults(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "blank"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	a := decode[ArticleResponse](t, w).Article
	if a.Title != "Untitled" || a.Content != "# Untitled\n\n\nStart writing..." {
		t.Errorf("article = %+v", a)
	}
}

func TestCreateRequiresID(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/articles", map[string]string{"title": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("create without id = %d, want 400", w.Code)
	}
	if got := decode[errResponse](t, w); got.Error != "Article ID required" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestInvalidJSON(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/articles", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid json = %d", w.Code)
	}
	if got := decode[errResponse](t, w); got.Error != "Invalid JSON" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestOversizedBody(t *testing.T) {
	ts := testEnv(t, "")

	body := `{"id":"big","content":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	w := ts.do(t, http.MethodPost, "/articles", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body = %d, want 413", w.Code)
	}
	if got := decode[errResponse](t, w); got.Error != "Request body too large" {
		t.Errorf("error = %q", got.Error)
	}
	if _, err := os.Stat(filepath.Join(ts.dir, "big.md")); !os.IsNotExist(err) {
		t.Errorf("oversized create wrote a file: %v", err)
	}
}

func TestGetArticle_NotModified(t *testing.T) {
	ts := testEnv(t, "")
	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "etag"})

	w := ts.do(t, http.MethodGet, "/articles/etag", nil)
	etag := w.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/articles/etag", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	ts := testEnv(t, "")

	// Metadata alone does not make an article.
	ts.do(t, http.MethodPost, "/articles/ghost/status", map[string]string{"status": "review"})

	w := ts.do(t, http.MethodGet, "/articles/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing article = %d, want 404", w.Code)
	}
	if got := decode[errResponse](t, w); got.Error != "Article not found" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestListArticles(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodGet, "/articles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty list body = %q", body)
	}

	for _, id := range []string{"b", "a", "c"} {
		ts.do(t, http.MethodPost, "/articles", map[string]string{"id": id})
	}
	list := decode[[]models.ArticleSummary](t, ts.do(t, http.MethodGet, "/articles", nil))
	if len(list) != 3 || list[0].ID != "a" || list[2].ID != "c" {
		t.Errorf("list = %+v", list)
	}
}

func TestUpdateArticle(t *testing.T) {
	ts := testEnv(t, "")
	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "post"})

	w := ts.do(t, http.MethodPut, "/articles/post/update", map[string]any{
		"title":       "Renamed",
		"content":     "# Old\n\nbody text",
		"status":      "review",
		"sources":     []string{"https://go.dev"},
		"publishDate": "2024-06-10T09:00",
		"wordGoal":    1500,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[ArticleResponse](t, w).Article
	if a.Title != "Renamed" || a.Content != "# Renamed\n\n\nbody text" {
		t.Errorf("content = %q, title = %q", a.Content, a.Title)
	}
	if a.Status != models.StatusReview || a.WordGoal != 1500 || len(a.Sources) != 1 {
		t.Errorf("metadata = %+v", a)
	}
	if a.PublishDate == nil || a.PublishDate.String() != "2024-06-10T09:00" {
		t.Errorf("publishDate = %v", a.PublishDate)
	}

	// Empty publishDate clears it; other fields stay.
	w = ts.do(t, http.MethodPost, "/articles/post/update", map[string]any{"publishDate": ""})
	a = decode[ArticleResponse](t, w).Article
	if a.PublishDate != nil || a.Status != models.StatusReview {
		t.Errorf("after clear = %+v", a)
	}
}

func TestUpdateArticle_InvalidFields(t *testing.T) {
	ts := testEnv(t, "")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"status", map[string]any{"status": "archived"}, "Invalid status"},
		{"word goal", map[string]any{"wordGoal": 0}, ""},
		{"date", map[string]any{"publishDate": "next tuesday"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/articles/x/update", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("code = %d, body = %s", w.Code, w.Body.String())
			}
			if tt.want != "" {
				if got := decode[errResponse](t, w); got.Error != tt.want {
					t.Errorf("error = %q", got.Error)
				}
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/articles/post/status", map[string]string{
		"status":      "scheduled",
		"publishDate": "2024-06-10T09:00",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[StatusResponse](t, w)
	if !res.Success || res.Status != models.StatusScheduled || res.PublishDate == nil {
		t.Errorf("result = %+v", res)
	}

	// Omitting the date keeps the previous one.
	w = ts.do(t, http.MethodPut, "/articles/post/status", map[string]string{"status": "published"})
	res = decode[StatusResponse](t, w)
	if res.PublishDate == nil || res.PublishDate.String() != "2024-06-10T09:00" {
		t.Errorf("publishDate = %v", res.PublishDate)
	}

	w = ts.do(t, http.MethodGet, "/articles/status/post", nil)
	if got := decode[StatusResponse](t, w); got.Status != models.StatusPublished {
		t.Errorf("lookup = %q", got.Status)
	}

	if len(ts.notifier.events) != 2 || ts.notifier.events[0] != "updated:post" {
		t.Errorf("events = %v", ts.notifier.events)
	}
}

func TestSetStatus_Invalid(t *testing.T) {
	ts := testEnv(t, "")

	for _, body := range []map[string]string{{"status": "archived"}, {}} {
		w := ts.do(t, http.MethodPost, "/articles/post/status", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %v = %d, want 400", body, w.Code)
		}
	}
	w := ts.do(t, http.MethodGet, "/articles/status/post", nil)
	if got := decode[StatusResponse](t, w); got.Status != models.StatusDraft {
		t.Errorf("status changed to %q", got.Status)
	}
}

func TestStatusLookup_Default(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodGet, "/articles/status/unknown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup = %d", w.Code)
	}
	if got := decode[StatusResponse](t, w); got.Status != models.StatusDraft {
		t.Errorf("status = %q", got.Status)
	}
}

func TestScheduleArticle(t *testing.T) {
	ts := testEnv(t, "")
	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "post"})

	w := ts.do(t, http.MethodPost, "/articles/post/schedule", map[string]string{"publishDate": "2024-06-10T09:00"})
	if w.Code != http.StatusOK {
		t.Fatalf("schedule = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[ScheduleResponse](t, w); got.PublishDate.String() != "2024-06-10T09:00" {
		t.Errorf("publishDate = %s", got.PublishDate)
	}

	a := decode[models.Article](t, ts.do(t, http.MethodGet, "/articles/post", nil))
	if a.Status != models.StatusScheduled {
		t.Errorf("status = %q", a.Status)
	}

	w = ts.do(t, http.MethodPost, "/articles/post/schedule", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("schedule without date = %d, want 400", w.Code)
	}
}

func TestBulkSchedule(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/bulk-schedule", map[string]any{
		"articles":     []string{"a", "b", "c"},
		"startDate":    "2024-12-30T09:00",
		"intervalDays": 2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[BulkScheduleResponse](t, w)
	want := []string{"2024-12-30T09:00", "2025-01-01T09:00", "2025-01-03T09:00"}
	if len(res.Scheduled) != len(want) {
		t.Fatalf("scheduled = %+v", res.Scheduled)
	}
	for i, it := range res.Scheduled {
		if it.PublishDate.String() != want[i] {
			t.Errorf("item %d = %s, want %s", i, it.PublishDate, want[i])
		}
	}
	if len(ts.notifier.events) != 3 {
		t.Errorf("events = %v", ts.notifier.events)
	}
}

func TestBulkSchedule_DefaultInterval(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/bulk-schedule", map[string]any{
		"articles":  []string{"a", "b"},
		"startDate": "2024-06-10",
	})
	res := decode[BulkScheduleResponse](t, w)
	if len(res.Scheduled) != 2 || res.Scheduled[1].PublishDate.String() != "2024-06-11T00:00" {
		t.Errorf("scheduled = %+v", res.Scheduled)
	}
}

func TestBulkSchedule_MissingFields(t *testing.T) {
	ts := testEnv(t, "")

	for _, body := range []map[string]any{
		{"startDate": "2024-06-10"},
		{"articles": []string{"a"}},
		{"articles": []string{}, "startDate": "2024-06-10"},
	} {
		w := ts.do(t, http.MethodPost, "/bulk-schedule", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("bulk %v = %d, want 400", body, w.Code)
		}
	}
}

func TestNotifications(t *testing.T) {
	ts := testEnv(t, "")
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local)
	ts.handler.now = func() time.Time { return now }

	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "soon", "title": "Soon"})
	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "week", "title": "Week"})
	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "later", "title": "Later"})
	ts.do(t, http.MethodPost, "/articles/soon/schedule", map[string]string{"publishDate": "2024-06-04T10:00"})
	ts.do(t, http.MethodPost, "/articles/week/schedule", map[string]string{"publishDate": "2024-06-10T09:30"})
	ts.do(t, http.MethodPost, "/articles/later/schedule", map[string]string{"publishDate": "2024-06-05T09:30"})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := ts.do(t, method, "/notifications", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s notifications = %d", method, w.Code)
		}
		got := decode[NotificationsResponse](t, w).Notifications
		if len(got) != 2 {
			t.Fatalf("notifications = %+v", got)
		}
		if got[0].Title != models.ReminderTomorrow || got[0].Article != "Soon" {
			t.Errorf("first = %+v", got[0])
		}
		if got[1].Title != models.ReminderWeek || got[1].ArticleID != "week" {
			t.Errorf("second = %+v", got[1])
		}
	}
}

func TestNotifications_Empty(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodGet, "/notifications", nil)
	if body := strings.TrimSpace(w.Body.String()); body != `{"notifications":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestAssist(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodPost, "/ai", map[string]any{
		"action":  "rewrite",
		"text":    "hello",
		"options": map[string]string{"tone": "casual"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ai = %d", w.Code)
	}
	var got struct {
		Suggestion string `json:"suggestion"`
		Action     string `json:"action"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Suggestion != "Rewritten version with casual tone" || got.Action != "rewrite" {
		t.Errorf("got %+v", got)
	}

	w = ts.do(t, http.MethodPost, "/ai", map[string]any{"action": "headlines", "text": "Go"})
	var list struct {
		Suggestion []string `json:"suggestion"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Suggestion) != 3 {
		t.Errorf("headlines = %s", w.Body.String())
	}
}

func TestDeleteArticle(t *testing.T) {
	ts := testEnv(t, "")
	ts.do(t, http.MethodPost, "/articles", map[string]string{"id": "bye"})
	ts.do(t, http.MethodPost, "/articles/bye/status", map[string]string{"status": "review"})

	w := ts.do(t, http.MethodDelete, "/articles/bye", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if got := decode[MessageResponse](t, w); !got.Success || got.Message != "Article deleted" {
		t.Errorf("delete = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(ts.dir, "bye.md")); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}

	// Metadata was evicted too.
	w = ts.do(t, http.MethodGet, "/articles/status/bye", nil)
	if got := decode[StatusResponse](t, w); got.Status != models.StatusDraft {
		t.Errorf("status after delete = %q", got.Status)
	}

	w = ts.do(t, http.MethodDelete, "/articles/bye", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestCORS(t *testing.T) {
	ts := testEnv(t, "secret")

	// Preflight passes without a token.
	w := ts.do(t, http.MethodOptions, "/articles/x/update", nil)
	if w.Code != http.StatusOK {
		t.Errorf("preflight = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Errorf("allow methods = %q", got)
	}

	w = ts.do(t, http.MethodGet, "/articles", nil)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin on 401 = %q", got)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	ts := testEnv(t, "secret123")

	raw, _ := json.Marshal(map[string]string{"id": "auth"})
	req := httptest.NewRequest(http.MethodPost, "/articles", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	ts := testEnv(t, "secret123")

	w := ts.do(t, http.MethodGet, "/articles", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	ts := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodGet, "/articles", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// Minimal SSE handler stub; writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	ts := testEnvWithSSE(t, "secret", sseStub)

	w := ts.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	ts := testEnvWithSSE(t, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d", w.Code)
	}
}

func TestSSEEvents_NotMounted(t *testing.T) {
	ts := testEnv(t, "")

	w := ts.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("events without broker = %d, want 404", w.Code)
	}
}
