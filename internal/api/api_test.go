package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hiredup/internal/association"
	"hiredup/internal/auth"
	"hiredup/internal/database"
	"hiredup/internal/jobs"
	"hiredup/internal/session"
	"hiredup/internal/slots"
	"hiredup/internal/tasks"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(context.Context) error {
	s.calls++
	return s.err
}

type testServer struct {
	router    *gin.Engine
	db        *gorm.DB
	enqueuer  *fakeEnqueuer
	refresher *stubRefresher
}

func testCatalog() *jobs.Catalog {
	return jobs.NewCatalog([]jobs.Job{
		{ID: "1", Title: "Senior Software Engineer", Company: "TechCorp", Location: "San Francisco, CA", Type: jobs.TypeFullTime, Salary: "$120,000 - $150,000", Category: "Software Development"},
		{ID: "2", Title: "Data Analyst", Company: "DataWorks", Location: "New York, NY", Type: jobs.TypeFullTime, Salary: "$80,000 - $95,000", Category: "Data Science"},
		{ID: "3", Title: "Software Engineer Intern", Company: "StartupXYZ", Location: "Remote", Type: jobs.TypeInternship, Salary: "Competitive", Category: "Software Development"},
	})
}

func newTestKeyPEM(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	priv, pub := newTestKeyPEM(t)
	authService, err := auth.NewAuthService(priv, pub, time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := slots.NewMemoryStore()
	srv := &testServer{db: db, enqueuer: &fakeEnqueuer{}, refresher: &stubRefresher{}}

	srv.router = NewRouter(logger)
	RegisterRoutes(srv.router, Dependencies{
		Catalog:      testCatalog(),
		Refresher:    srv.refresher,
		Slots:        store,
		Associations: association.NewService(db),
		Tasks:        srv.enqueuer,
		Auth:         authService,
		Gates: session.Factory{
			Slots:     store,
			Verifier:  session.FixedVerifier{},
			Registrar: session.FixedRegistrar{},
		},
		Logger:         logger,
		InternalSecret: "s3cret",
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": session.DemoEmail, "password": session.DemoPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body.String())
	}
	var resp tokenResponse
	decode(t, w, &resp)
	if resp.AccessToken == "" || resp.User.ID != "1" {
		t.Fatalf("login response = %+v", resp)
	}
	return resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func jobIDs(list []jobs.Job) []string {
	out := make([]string, 0, len(list))
	for _, j := range list {
		out = append(out, j.ID)
	}
	return out
}

func TestSearch_FiltersInCatalogOrder(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/v1/jobs?query=software&type=all", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Jobs  []jobs.Job `json:"jobs"`
		Total int        `json:"total"`
	}
	decode(t, w, &resp)
	if got := jobIDs(resp.Jobs); len(got) != 2 || got[0] != "1" || got[1] != "3" || resp.Total != 2 {
		t.Fatalf("search = %v total=%d", got, resp.Total)
	}

	// "Competitive" 无法解析，按放行处理。
	w = srv.do(t, http.MethodGet, "/v1/jobs?min_salary=100000", "", nil)
	decode(t, w, &resp)
	if got := jobIDs(resp.Jobs); len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("salary search = %v", got)
	}

	w = srv.do(t, http.MethodGet, "/v1/jobs?location=nowhere", "", nil)
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte(`"jobs":[]`)) {
		t.Fatalf("empty result should encode as [], got %s", body)
	}
}

func TestDetail_AnonymousAndAuthenticated(t *testing.T) {
	srv := newTestServer(t)

	if w := srv.do(t, http.MethodGet, "/v1/jobs/999", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", w.Code)
	}

	w := srv.do(t, http.MethodGet, "/v1/jobs/1", "", nil)
	var resp jobDetailResponse
	decode(t, w, &resp)
	if resp.Job.ID != "1" || resp.Saved || resp.Applied {
		t.Fatalf("anonymous detail = %+v", resp)
	}
	if got := jobIDs(resp.Similar); len(got) != 1 || got[0] != "3" {
		t.Fatalf("similar = %v", got)
	}
	if resp.SalaryRange == nil || resp.SalaryRange.Low != 120000 || resp.SalaryRange.High != 150000 {
		t.Fatalf("salary range = %+v", resp.SalaryRange)
	}

	token := srv.login(t)
	if w := srv.do(t, http.MethodPost, "/v1/me/saved", token, gin.H{"jobId": "1"}); w.Code != http.StatusOK {
		t.Fatalf("save status = %d", w.Code)
	}
	w = srv.do(t, http.MethodGet, "/v1/jobs/1", token, nil)
	resp = jobDetailResponse{}
	decode(t, w, &resp)
	if !resp.Saved || resp.Applied {
		t.Fatalf("authenticated detail flags saved=%v applied=%v", resp.Saved, resp.Applied)
	}
}

func TestProtectedRoute_RedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/v1/me/saved", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["error"] != "unauthorized" || resp["redirect"] != "/login?redirect=%2Fv1%2Fme%2Fsaved" {
		t.Fatalf("body = %v", resp)
	}

	if w := srv.do(t, http.MethodGet, "/v1/me/saved", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", w.Code)
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": session.DemoEmail, "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if w := srv.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": session.DemoEmail}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing password status = %d", w.Code)
	}
}

func TestRegister_IssuesToken(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"name": "Ada", "email": "ada@example.com", "password": "pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp tokenResponse
	decode(t, w, &resp)
	if resp.User.Name != "Ada" || resp.AccessToken == "" {
		t.Fatalf("register response = %+v", resp)
	}

	w = srv.do(t, http.MethodGet, "/v1/auth/me", resp.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
}

func TestSave_IsIdempotentAndEnqueuesOnce(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t)

	var resp struct {
		Changed bool `json:"changed"`
	}
	decode(t, srv.do(t, http.MethodPost, "/v1/me/saved", token, gin.H{"jobId": "2"}), &resp)
	if !resp.Changed {
		t.Fatal("first save should change state")
	}
	decode(t, srv.do(t, http.MethodPost, "/v1/me/saved", token, gin.H{"jobId": "2"}), &resp)
	if resp.Changed {
		t.Fatal("second save should be a no-op")
	}
	if len(srv.enqueuer.tasks) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(srv.enqueuer.tasks))
	}
	var payload tasks.AssociationRecordPayload
	if err := json.Unmarshal(srv.enqueuer.tasks[0].Payload(), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.UserID != 1 || payload.JobID != "2" || payload.Type != database.UserJobSaved {
		t.Fatalf("payload = %+v", payload)
	}

	var list struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	decode(t, srv.do(t, http.MethodGet, "/v1/me/saved", token, nil), &list)
	if got := jobIDs(list.Jobs); len(got) != 1 || got[0] != "2" {
		t.Fatalf("saved = %v", got)
	}

	if w := srv.do(t, http.MethodDelete, "/v1/me/saved/2", token, nil); w.Code != http.StatusOK {
		t.Fatalf("unsave status = %d", w.Code)
	}
	if w := srv.do(t, http.MethodDelete, "/v1/me/saved/2", token, nil); w.Code != http.StatusOK {
		t.Fatalf("repeat unsave status = %d", w.Code)
	}
	decode(t, srv.do(t, http.MethodGet, "/v1/me/saved", token, nil), &list)
	if len(list.Jobs) != 0 {
		t.Fatalf("saved after unsave = %v", jobIDs(list.Jobs))
	}

	if w := srv.do(t, http.MethodPost, "/v1/me/saved", token, gin.H{"jobId": "missing"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", w.Code)
	}
}

func TestApply_SecondAttemptReportsAlreadyApplied(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t)

	var resp struct {
		Changed bool   `json:"changed"`
		Message string `json:"message"`
	}
	decode(t, srv.do(t, http.MethodPost, "/v1/me/applied", token, gin.H{"jobId": "3"}), &resp)
	if !resp.Changed || resp.Message != "Application submitted!" {
		t.Fatalf("first apply = %+v", resp)
	}
	decode(t, srv.do(t, http.MethodPost, "/v1/me/applied", token, gin.H{"jobId": "3"}), &resp)
	if resp.Changed || resp.Message != "Already applied" {
		t.Fatalf("second apply = %+v", resp)
	}

	var list struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	decode(t, srv.do(t, http.MethodGet, "/v1/me/applied", token, nil), &list)
	if len(list.Jobs) != 1 {
		t.Fatalf("applied = %v", jobIDs(list.Jobs))
	}
}

func TestRecordAssociation_StatusCodes(t *testing.T) {
	srv := newTestServer(t)

	if w := srv.do(t, http.MethodPost, "/v1/jobs/SAVED", "", gin.H{"jobId": "1"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}

	token := srv.login(t)
	w := srv.do(t, http.MethodPost, "/v1/jobs/LIKED", token, gin.H{"jobId": "1"})
	if w.Code != http.StatusBadRequest || !bytes.Contains(w.Body.Bytes(), []byte("Invalid job type")) {
		t.Fatalf("bad type = %d %s", w.Code, w.Body.String())
	}
	if w := srv.do(t, http.MethodPost, "/v1/jobs/SAVED", token, gin.H{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing jobId status = %d", w.Code)
	}

	w = srv.do(t, http.MethodPost, "/v1/jobs/saved", token, gin.H{"jobId": "1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	var record database.UserJob
	decode(t, w, &record)
	if record.UserID != 1 || record.JobID != "1" || record.Type != database.UserJobSaved {
		t.Fatalf("record = %+v", record)
	}

	w = srv.do(t, http.MethodPost, "/v1/jobs/SAVED", token, gin.H{"jobId": "1"})
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("Already exists")) {
		t.Fatalf("duplicate = %d %s", w.Code, w.Body.String())
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t)

	if w := srv.do(t, http.MethodPost, "/v1/auth/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if w := srv.do(t, http.MethodGet, "/v1/me/saved", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("token still accepted after logout: %d", w.Code)
	}
}

func TestCatalogRefresh_RequiresSecret(t *testing.T) {
	srv := newTestServer(t)

	if w := srv.do(t, http.MethodPost, "/v1/internal/catalog/refresh", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no secret status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/catalog/refresh", nil)
	req.Header.Set("X-Internal-Secret", "s3cret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || srv.refresher.calls != 1 {
		t.Fatalf("refresh status = %d calls=%d", w.Code, srv.refresher.calls)
	}

	srv.refresher.err = errors.New("bucket offline")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("failed refresh status = %d", w.Code)
	}
}

func TestHealthAndCorrelationID(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("X-Correlation-ID") != "abc-123" {
		t.Fatalf("health = %d correlation=%q", w.Code, w.Header().Get("X-Correlation-ID"))
	}
}

type fakeCounter struct {
	counts map[string]int64
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func TestLogin_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	priv, pub := newTestKeyPEM(t)
	authService, err := auth.NewAuthService(priv, pub, time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	gates := session.Factory{Slots: slots.NewMemoryStore(), Verifier: session.FixedVerifier{}, Registrar: session.FixedRegistrar{}}
	h := NewAuthHandler(gates, authService, &fakeCounter{counts: map[string]int64{}}, 2)

	router := gin.New()
	router.POST("/login", h.Login)
	srv := &testServer{router: router}

	body := gin.H{"email": session.DemoEmail, "password": "wrong"}
	for i := 0; i < 2; i++ {
		if w := srv.do(t, http.MethodPost, "/login", "", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i+1, w.Code)
		}
	}
	if w := srv.do(t, http.MethodPost, "/login", "", body); w.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d", w.Code)
	}
}
