package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/neomorfeo/goodnews/internal/adapter/fsm"
	adapter "github.com/neomorfeo/goodnews/internal/adapter/http"
	"github.com/neomorfeo/goodnews/internal/adapter/sqlite"
	"github.com/neomorfeo/goodnews/internal/app"
	"github.com/neomorfeo/goodnews/internal/domain"
)

const testActor = "editor-1"

// noopPublisher is a no-op EventPublisher for tests.
type noopPublisher struct{}

func (p *noopPublisher) Publish(_ context.Context, _ domain.Verb, _ domain.Entity) error {
	return nil
}

// newTestServer creates a full-stack httptest.Server with SQLite in-memory.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	clock := domain.SystemClock{}
	recorder := app.NewAuditRecorder(sqlite.NewAuditStore(repo.DB()), clock)
	svc := app.NewLifecycleService(repo, &noopPublisher{}, fsm.New(), recorder, clock)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("goodnews", "0.1.0"))
	adapter.Register(api, svc, recorder)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// doRequest performs an HTTP request as the default test editor.
func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	return doRequestAs(t, testActor, method, url, body)
}

// doRequestAs performs an HTTP request with context (avoids noctx linter).
// An empty actor omits the X-Actor-ID header.
func doRequestAs(t *testing.T, actor, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d; body: %s", resp.StatusCode, want, body)
	}
}

// mustCreate creates an entity via the API and returns its response.
func mustCreate(t *testing.T, srv *httptest.Server, family, body string) adapter.EntityResponse {
	t.Helper()

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/content/"+family, body)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	return decode[adapter.EntityResponse](t, resp)
}

func mustCreateArticle(t *testing.T, srv *httptest.Server, title string) adapter.EntityResponse {
	t.Helper()
	return mustCreate(t, srv, "article", fmt.Sprintf(`{"title":%q}`, title))
}

func transition(t *testing.T, srv *httptest.Server, family, id, body string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPost, srv.URL+"/api/v1/content/"+family+"/"+id+"/transitions", body)
}

// --- Create ---

func TestCreate_Article(t *testing.T) {
	srv := newTestServer(t)
	e := mustCreateArticle(t, srv, "Christmas Outreach")

	if e.ID == "" {
		t.Error("ID should not be empty")
	}
	if e.Family != "article" {
		t.Errorf("Family = %q, want %q", e.Family, "article")
	}
	if e.Slug != "christmas-outreach" {
		t.Errorf("Slug = %q, want %q", e.Slug, "christmas-outreach")
	}
	if e.Status != "draft" {
		t.Errorf("Status = %q, want %q", e.Status, "draft")
	}
	if e.Version != 1 {
		t.Errorf("Version = %d, want 1", e.Version)
	}
	if e.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}
}

func TestCreate_DuplicateTitleGetsSuffix(t *testing.T) {
	srv := newTestServer(t)
	mustCreateArticle(t, srv, "Christmas Outreach")
	second := mustCreateArticle(t, srv, "Christmas Outreach")

	if second.Slug != "christmas-outreach-1" {
		t.Errorf("Slug = %q, want %q", second.Slug, "christmas-outreach-1")
	}
}

func TestCreate_ScheduledArticle(t *testing.T) {
	srv := newTestServer(t)
	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	e := mustCreate(t, srv, "article", fmt.Sprintf(`{"title":"Launch","status":"scheduled","scheduled_at":%q}`, at))

	if e.Status != "scheduled" {
		t.Errorf("Status = %q, want %q", e.Status, "scheduled")
	}
	if e.ScheduledAt == nil || *e.ScheduledAt != at {
		t.Errorf("ScheduledAt = %v, want %s", e.ScheduledAt, at)
	}
}

func TestCreate_ScheduledInThePast(t *testing.T) {
	srv := newTestServer(t)
	at := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/content/article",
		fmt.Sprintf(`{"title":"Late","status":"scheduled","scheduled_at":%q}`, at))
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCreate_Listing(t *testing.T) {
	srv := newTestServer(t)
	e := mustCreate(t, srv, "listing", `{"title":"Grace Fellowship","plan_days":90}`)

	if e.Status != "pending" {
		t.Errorf("Status = %q, want %q", e.Status, "pending")
	}
	if e.Slug != "" {
		t.Errorf("Slug = %q, want empty", e.Slug)
	}
	if e.PlanDays != 90 {
		t.Errorf("PlanDays = %d, want 90", e.PlanDays)
	}
	if e.StartsAt == nil || e.ExpiresAt == nil {
		t.Fatal("listing should have starts_at and expires_at")
	}

	start, _ := time.Parse(time.RFC3339, *e.StartsAt)
	expires, _ := time.Parse(time.RFC3339, *e.ExpiresAt)
	if got := expires.Sub(start); got != 90*24*time.Hour {
		t.Errorf("plan length = %v, want 90 days", got)
	}
}

func TestCreate_AdvertisementRequiresDates(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/content/advertisement", `{"title":"Banner"}`)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCreate_UnknownFamily(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/content/podcast", `{"title":"Episode 1"}`)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCreate_MissingTitle(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/content/article", `{}`)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCreate_MissingActor(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequestAs(t, "", http.MethodPost, srv.URL+"/api/v1/content/article", `{"title":"Anonymous"}`)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

// --- Get / List ---

func TestGet(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article/"+created.ID, "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	e := decode[adapter.EntityResponse](t, resp)
	if e.ID != created.ID {
		t.Errorf("ID = %q, want %q", e.ID, created.ID)
	}
	if e.Title != "Hello" {
		t.Errorf("Title = %q, want %q", e.Title, "Hello")
	}
}

func TestGet_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article/nonexistent", "")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)
}

func TestGet_WrongFamily(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/listing/"+created.ID, "")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)
}

func TestGetBySlug(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Christmas Outreach")

	// Drafts are not publicly addressable.
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article/by-slug/christmas-outreach", "")
	resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)

	resp = transition(t, srv, "article", created.ID, `{"status":"published"}`)
	resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article/by-slug/christmas-outreach", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	e := decode[adapter.EntityResponse](t, resp)
	if e.ID != created.ID {
		t.Errorf("ID = %q, want %q", e.ID, created.ID)
	}
	if e.Status != "published" {
		t.Errorf("Status = %q, want %q", e.Status, "published")
	}
}

func TestGetBySlug_NotFound(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, "listing", `{"title":"Grace Fellowship"}`)

	for _, path := range []string{
		"/api/v1/content/article/by-slug/missing",
		"/api/v1/content/listing/by-slug/grace-fellowship",
	} {
		resp := doRequest(t, http.MethodGet, srv.URL+path, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want %d", path, resp.StatusCode, http.StatusNotFound)
		}
	}
}

func TestList_FilterByStatus(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "One")
	mustCreateArticle(t, srv, "Two")
	mustCreate(t, srv, "listing", `{"title":"Not an article"}`)

	resp := transition(t, srv, "article", created.ID, `{"status":"published"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article?status=published", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	entities := decode[[]adapter.EntityResponse](t, resp)
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	if entities[0].ID != created.ID {
		t.Errorf("ID = %q, want %q", entities[0].ID, created.ID)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article", "")
	defer resp.Body.Close()
	if all := decode[[]adapter.EntityResponse](t, resp); len(all) != 2 {
		t.Errorf("got %d articles, want 2", len(all))
	}
}

// --- Transition ---

func TestTransition_Publish(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	resp := transition(t, srv, "article", created.ID, `{"status":"published"}`)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	e := decode[adapter.EntityResponse](t, resp)
	if e.Status != "published" {
		t.Errorf("Status = %q, want %q", e.Status, "published")
	}
	if e.PublishedAt == nil {
		t.Error("PublishedAt should be set")
	}
	if e.Version != 2 {
		t.Errorf("Version = %d, want 2", e.Version)
	}
}

func TestTransition_InvalidEdge(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	// Drafts cannot be archived directly.
	resp := transition(t, srv, "article", created.ID, `{"status":"archived"}`)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestTransition_ManualExpiryRejected(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreate(t, srv, "listing", `{"title":"Grace Fellowship"}`)

	resp := transition(t, srv, "listing", created.ID, `{"status":"active"}`)
	resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	resp = transition(t, srv, "listing", created.ID, `{"status":"expired"}`)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestTransition_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := transition(t, srv, "article", "nonexistent", `{"status":"published"}`)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)
}

// --- Rename ---

func TestRename(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/content/article/"+created.ID+"/title", `{"title":"Hello World"}`)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	e := decode[adapter.EntityResponse](t, resp)
	if e.Title != "Hello World" {
		t.Errorf("Title = %q, want %q", e.Title, "Hello World")
	}
	if e.Slug != "hello-world" {
		t.Errorf("Slug = %q, want %q", e.Slug, "hello-world")
	}
}

// --- Delete ---

func TestDelete(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	resp := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/content/article/"+created.ID, "")
	resp.Body.Close()
	expectStatus(t, resp, http.StatusNoContent)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/content/article/"+created.ID, "")
	resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)

	// The deleted article's slug is never reused.
	again := mustCreateArticle(t, srv, "Hello")
	if again.Slug != "hello-1" {
		t.Errorf("Slug = %q, want %q", again.Slug, "hello-1")
	}
}

// --- Audit ---

func TestAuditRecords(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateArticle(t, srv, "Hello")

	resp := transition(t, srv, "article", created.ID, `{"status":"published"}`)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/audit-records?entity_id="+created.ID, "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	records := decode[[]adapter.AuditRecordResponse](t, resp)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	// Newest first.
	if records[0].Action != "transition_article" {
		t.Errorf("records[0].Action = %q, want %q", records[0].Action, "transition_article")
	}
	if records[0].ActorID != testActor {
		t.Errorf("ActorID = %q, want %q", records[0].ActorID, testActor)
	}
	if records[0].Before["status"] != "draft" || records[0].After["status"] != "published" {
		t.Errorf("transition diff = %v -> %v", records[0].Before, records[0].After)
	}
	if records[1].Action != "create_article" {
		t.Errorf("records[1].Action = %q, want %q", records[1].Action, "create_article")
	}
	if records[1].Before != nil {
		t.Errorf("create record Before = %v, want nil", records[1].Before)
	}
}
