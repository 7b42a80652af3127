package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moiskillnadne/work-time-tracker/internal/config"
	"github.com/moiskillnadne/work-time-tracker/internal/db"
	"github.com/moiskillnadne/work-time-tracker/internal/engine"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setupTest(t *testing.T) (*Handlers, *testClock) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	clock := &testClock{t: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	eng := engine.Open(context.Background(), database, cfg, engine.Options{Now: clock.Now, Location: time.UTC})
	t.Cleanup(eng.Close)

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	return &Handlers{
		eng:      eng,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, "test"),
	}, clock
}

// seedHistory adds a task with one saved 45-minute session.
func seedHistory(t *testing.T, h *Handlers, clock *testClock, title string) string {
	t.Helper()
	ctx := context.Background()
	task := h.eng.AddTask(ctx, title)

	h.eng.Start(ctx)
	clock.Advance(45 * time.Minute)
	if _, ok := h.eng.SaveAndReset(ctx, task.ID); !ok {
		t.Fatalf("seed history for %q: nothing saved", title)
	}
	return task.ID
}

// --- HandleTasks ---

func TestHandleTasks_Default(t *testing.T) {
	h, _ := setupTest(t)
	h.eng.AddTask(context.Background(), "Write report")

	req := httptest.NewRequest("GET", "/tasks", nil)
	rec := httptest.NewRecorder()
	h.HandleTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Write report") {
		t.Error("expected task title in response")
	}
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected full layout")
	}
}

func TestHandleTasks_Empty(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/tasks", nil)
	rec := httptest.NewRecorder()
	h.HandleTasks(rec, req)

	if !strings.Contains(rec.Body.String(), "No tasks yet") {
		t.Error("expected empty state message")
	}
}

func TestHandleTasks_EscapesTitles(t *testing.T) {
	h, _ := setupTest(t)
	h.eng.AddTask(context.Background(), "<script>alert(1)</script>")

	req := httptest.NewRequest("GET", "/tasks", nil)
	rec := httptest.NewRecorder()
	h.HandleTasks(rec, req)

	if strings.Contains(rec.Body.String(), "<script>alert") {
		t.Error("task title must be HTML-escaped")
	}
}

func TestHandleTasks_HtmxReturnsContentOnly(t *testing.T) {
	h, _ := setupTest(t)
	h.eng.AddTask(context.Background(), "htmx-test")

	req := httptest.NewRequest("GET", "/tasks", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleTasks(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx response should not contain full layout")
	}
	if !strings.Contains(body, "htmx-test") {
		t.Error("htmx response should contain task data")
	}
}

func TestHandleTasks_JSON(t *testing.T) {
	h, _ := setupTest(t)
	ctx := context.Background()
	task := h.eng.AddTask(ctx, "json-task")
	if _, err := h.eng.SelectTask(ctx, task.ID); err != nil {
		t.Fatalf("SelectTask: %v", err)
	}

	req := httptest.NewRequest("GET", "/tasks", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleTasks(rec, req)

	var resp engine.TaskListOutput
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if len(resp.Tasks) != 1 || !resp.Tasks[0].Selected {
		t.Errorf("tasks = %+v, want one selected task", resp.Tasks)
	}
	if resp.SelectedID == nil || *resp.SelectedID != task.ID {
		t.Errorf("selected_id = %v, want %s", resp.SelectedID, task.ID)
	}
}

// --- HandleHistory ---

func TestHandleHistory_Found(t *testing.T) {
	h, clock := setupTest(t)
	id := seedHistory(t, h, clock, "Review")

	req := httptest.NewRequest("GET", "/tasks/"+id+"/history", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>Review</h1>", "Today", "00:45:00", "<table>"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in history page", want)
		}
	}
}

func TestHandleHistory_JSON(t *testing.T) {
	h, clock := setupTest(t)
	id := seedHistory(t, h, clock, "Review")

	req := httptest.NewRequest("GET", "/tasks/"+id+"/history", nil)
	req.SetPathValue("id", id)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	var resp engine.HistoryOutput
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if resp.EntryCount != 1 || resp.TotalMS != (45*time.Minute).Milliseconds() {
		t.Errorf("history = %+v", resp)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Label != "Today" {
		t.Errorf("groups = %+v", resp.Groups)
	}
}

func TestHandleHistory_EmptyID(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/tasks//history", nil)
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- HandleTimer ---

func TestHandleTimer(t *testing.T) {
	h, _ := setupTest(t)
	ctx := context.Background()
	task := h.eng.AddTask(ctx, "Focus")
	if _, err := h.eng.SelectTask(ctx, task.ID); err != nil {
		t.Fatalf("SelectTask: %v", err)
	}
	h.eng.Start(ctx)

	req := httptest.NewRequest("GET", "/timer", nil)
	rec := httptest.NewRecorder()
	h.HandleTimer(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "running") {
		t.Error("expected running status")
	}
	if !strings.Contains(body, "Focus") {
		t.Error("expected selected task title")
	}

	req = httptest.NewRequest("GET", "/timer", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.HandleTimer(rec, req)

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if timerObj := resp["timer"].(map[string]any); timerObj["status"] != "running" {
		t.Errorf("timer = %v", timerObj)
	}
}

// --- Error rendering ---

func TestErrorRendering_HtmxFragment(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/tasks/NONEXISTENT/history", nil)
	req.SetPathValue("id", "NONEXISTENT")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "error-message") {
		t.Error("expected error-message div in htmx error response")
	}
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx error should not contain full layout")
	}
}

func TestErrorRendering_JSONError(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/tasks/NONEXISTENT/history", nil)
	req.SetPathValue("id", "NONEXISTENT")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	if errObj["code"] != "NOT_FOUND" || errObj["status"] != float64(404) {
		t.Errorf("error = %v", errObj)
	}
}

func TestErrorRendering_FullErrorPage(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/tasks/NONEXISTENT/history", nil)
	req.SetPathValue("id", "NONEXISTENT")
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("full error page should contain layout")
	}
	if !strings.Contains(body, "404") {
		t.Error("error page should show status code")
	}
}

// --- Routing ---

func TestMux_RoutesAndSecurityHeaders(t *testing.T) {
	h, _ := setupTest(t)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		t.Fatalf("static sub-FS: %v", err)
	}
	srv := httptest.NewServer(securityHeaders(newMux(h, staticSub)))
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/tasks" {
		t.Errorf("GET / = %d %q, want redirect to /tasks", resp.StatusCode, resp.Header.Get("Location"))
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/tasks", "/timer", "/static/style.css"} {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	// The view is read-only
	resp, err = client.Post(srv.URL+"/tasks", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /tasks: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /tasks = %d, want 405", resp.StatusCode)
	}
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	h, _ := setupTest(t)
	srv := NewServer(h.eng, h.cfg, "test", "127.0.0.1", 0)
	if srv.ReadHeaderTimeout == 0 {
		t.Error("expected a read header timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
