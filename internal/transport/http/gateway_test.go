package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"seopilot/internal/auth"
	"seopilot/internal/config"
	"seopilot/internal/content"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/internal/license"
	"seopilot/internal/operations"
	"seopilot/internal/optimizer"
	"seopilot/internal/store"
	"seopilot/internal/validation"
	"seopilot/pkg/contracts"
	api "seopilot/pkg/contracts/api/v1"
	"seopilot/pkg/contracts/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "Generated Title", nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type GatewaySuite struct {
	suite.Suite
	handler  http.Handler
	store    *store.MemoryStore
	content  *content.Service
	licenses *license.Repository
	gateway  *Gateway
	jobs     *operations.MemoryJobStore
	slmCalls atomic.Int32
	slmBody  atomic.Value
}

type staticHubStats map[string]int64

func (h staticHubStats) GetHubMetrics() map[string]int64 { return h }

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	metrics := infrastructure.NoopBusinessMetrics()

	s.slmCalls.Store(0)
	s.slmBody.Store(`{"result":"success","message":"License key activated"}`)
	slm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.slmCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, s.slmBody.Load().(string))
	}))
	s.T().Cleanup(slm.Close)

	hash, err := auth.HashPassword("hunter2", bcrypt.MinCost)
	s.Require().NoError(err)

	s.store = store.NewMemoryStore()
	v := validation.New()
	s.content = content.NewService(s.store, v, nil, logger)
	s.Require().NoError(s.content.Install(ctx))
	items := content.NewItemRepository(s.store)
	s.licenses = license.NewRepository(s.store)

	client := license.NewClient(config.LicenseConfig{
		ServerURL:       slm.URL,
		SecretKey:       "s3cret",
		ItemReference:   "SEO Pilot Pro",
		SiteURL:         "https://shop.example.com",
		ActivateTimeout: time.Second,
		CheckTimeout:    time.Second,
	}, s.licenses, logger, tracer, metrics)
	cache := license.NewCache(s.licenses, client, 24*time.Hour, logger, metrics)
	gate := license.NewGate(s.licenses)

	opt := optimizer.NewService(gate, items, s.content, echoGenerator{}, logger, tracer, metrics)
	s.jobs = operations.NewMemoryJobStore()
	runner := operations.NewRunner(gate, opt, s.jobs, nil, logger, tracer, metrics)

	authSvc := auth.NewService(config.AuthConfig{
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		NonceTTL:      time.Hour,
	}, []config.UserConfig{
		{Username: "admin", PasswordHash: hash, Capabilities: []string{config.CapabilityManageOptions}},
		{Username: "author", PasswordHash: hash},
	}, s.store, logger)

	errs := apierrors.NewErrorHandler(logger, false)
	s.gateway = NewGateway(authSvc, v, errs, logger, tracer)
	RegisterActions(s.gateway, ActionDeps{
		Content:   s.content,
		Optimizer: opt,
		Runner:    runner,
		Licenses:  s.licenses,
		Client:    client,
		Cache:     cache,
	})

	hubStats := staticHubStats{"active_clients": 2}
	s.handler = NewRouter(RouterDeps{
		Security: config.SecurityConfig{},
		Logger:   logger,
		Tracer:   tracer,
		Metrics:  metrics,
		Errors:   errs,
		Sessions: authSvc,
		Gateway:  s.gateway,
		Session:  NewSessionHandler(authSvc, v, errs, logger),
		Items:    NewItemHandler(items, s.content, v, errs, logger),
		Health:   NewHealthHandler(s.store, s.licenses, logger).WithJobStats(s.jobs).WithHubStats(hubStats),
	})
}

func (s *GatewaySuite) do(method, path, token string, headers map[string]string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *GatewaySuite) decode(rec *httptest.ResponseRecorder, data interface{}) envelope {
	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		s.Require().NoError(json.Unmarshal(env.Data, data))
	}
	return env
}

func (s *GatewaySuite) login(username string) string {
	rec := s.do(http.MethodPost, "/api/session", "", nil, api.SessionRequest{Username: username, Password: "hunter2"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp api.SessionResponse
	s.decode(rec, &resp)
	return resp.Token
}

func (s *GatewaySuite) nonce(token, action string) string {
	rec := s.do(http.MethodGet, "/api/nonces/"+action, token, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp api.NonceResponse
	s.decode(rec, &resp)
	return resp.Nonce
}

func (s *GatewaySuite) action(token, nonce, action string, body interface{}) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/api/admin/actions/"+action, token, map[string]string{HeaderNonce: nonce}, body)
}

// call fetches a fresh nonce and runs action, requiring success
func (s *GatewaySuite) call(token, action string, body interface{}, data interface{}) {
	rec := s.action(token, s.nonce(token, action), action, body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	env := s.decode(rec, data)
	s.Require().True(env.Success)
	s.Require().NotEmpty(rec.Header().Get(HeaderNextNonce))
}

func (s *GatewaySuite) errorCode(rec *httptest.ResponseRecorder) string {
	var data apierrors.ErrorData
	env := s.decode(rec, &data)
	s.False(env.Success)
	return data.Code
}

func (s *GatewaySuite) TestAllActionsRegistered() {
	s.ElementsMatch([]string{
		"reset_defaults", "save_settings", "get_settings", "save_prompts",
		"bulk_start", "bulk_step", "bulk_abort", "bulk_status", "optimize_single",
		"manual_license_check", "save_license_key", "license_status",
		"save_brand_profile", "export_settings", "import_settings",
	}, s.gateway.Actions())
	s.Panics(func() { s.gateway.Register(Action{Name: ActionExportSettings, Handle: func(context.Context, *ActionRequest) (interface{}, error) { return nil, nil }}) })
}

func (s *GatewaySuite) TestLogin() {
	rec := s.do(http.MethodPost, "/api/session", "", nil, api.SessionRequest{Username: "admin", Password: "wrong"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("unauthorized", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/api/session", "", nil, api.SessionRequest{Username: "admin"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *GatewaySuite) TestUnknownActionIsNotFound() {
	token := s.login("admin")
	rec := s.action(token, "whatever", "drop_tables", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/nonces/drop_tables", token, nil, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *GatewaySuite) TestAuthorizationFailsBeforeSideEffects() {
	ctx := context.Background()
	token := s.login("admin")
	patch := api.SaveSettingsRequest{PostType: "post", Settings: domain.SettingsPatch{Tone: strPtr("playful")}}

	rec := s.action("", "", ActionSaveSettings, patch)
	s.Equal(http.StatusUnauthorized, rec.Code, "missing session")

	rec = s.action(token, "", ActionSaveSettings, patch)
	s.Equal(http.StatusUnauthorized, rec.Code, "missing nonce")

	rec = s.action(token, "forged", ActionSaveSettings, patch)
	s.Equal(http.StatusUnauthorized, rec.Code, "forged nonce")

	settings, err := s.content.Settings(ctx, "post")
	s.Require().NoError(err)
	s.Equal("professional", settings.Tone, "no failed call may write settings")
}

func (s *GatewaySuite) TestNonceBoundToActionAndSingleUse() {
	token := s.login("admin")

	forExport := s.nonce(token, ActionExportSettings)
	rec := s.action(token, forExport, ActionLicenseStatus, nil)
	s.Equal(http.StatusUnauthorized, rec.Code, "nonce for A is rejected on B")

	rec = s.action(token, forExport, ActionExportSettings, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	next := rec.Header().Get(HeaderNextNonce)
	s.Require().NotEmpty(next)

	rec = s.action(token, forExport, ActionExportSettings, nil)
	s.Equal(http.StatusUnauthorized, rec.Code, "second use is rejected")

	rec = s.action(token, next, ActionExportSettings, nil)
	s.Equal(http.StatusOK, rec.Code, "the next nonce is accepted")
}

func (s *GatewaySuite) TestCapabilityRequired() {
	token := s.login("author")

	rec := s.do(http.MethodGet, "/api/nonces/"+ActionExportSettings, token, nil, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.action(token, "anything", ActionExportSettings, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", s.errorCode(rec))
}

func (s *GatewaySuite) TestSettingsActions() {
	token := s.login("admin")

	var saved domain.ContentSettings
	s.call(token, ActionSaveSettings, api.SaveSettingsRequest{
		PostType: "page",
		Settings: domain.SettingsPatch{Tone: strPtr("friendly"), OptimizeSlug: boolPtr(true)},
	}, &saved)
	s.Equal("friendly", saved.Tone)
	s.True(saved.OptimizeSlug)
	s.Equal("general", saved.Audience, "fields outside the patch are preserved")

	var category api.CategoryResponse
	s.call(token, ActionGetSettings, api.PostTypeRequest{PostType: "page"}, &category)
	s.Equal("friendly", category.Settings.Tone)
	s.NotEmpty(category.Prompts.Title)

	s.call(token, ActionResetDefaults, api.PostTypeRequest{PostType: "page"}, &category)
	s.Equal(content.DefaultSettings(), category.Settings)

	custom := domain.PromptTemplate{Title: "T {PAGE TITLE}", Meta: "M", Content: "C"}
	s.call(token, ActionSavePrompts, api.SavePromptsRequest{PostType: "page", Prompts: custom}, nil)
	s.call(token, ActionGetSettings, api.PostTypeRequest{PostType: "page"}, &category)
	s.Equal(custom, category.Prompts)

	rec := s.action(token, s.nonce(token, ActionGetSettings), ActionGetSettings, api.PostTypeRequest{PostType: "Bad Type!"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation_failed", s.errorCode(rec))

	rec = s.action(token, s.nonce(token, ActionGetSettings), ActionGetSettings, map[string]string{"unexpected": "x"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *GatewaySuite) TestLicenseAndBulkFlow() {
	token := s.login("admin")

	rec := s.action(token, s.nonce(token, ActionBulkStart), ActionBulkStart, api.BulkStartRequest{ItemIDs: []string{"1"}})
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("license_inactive", s.errorCode(rec))

	var status api.LicenseStatusResponse
	s.call(token, ActionSaveLicenseKey, api.SaveLicenseKeyRequest{LicenseKey: "SLM-1234-5678-ABCD"}, &status)
	s.True(status.Active)
	s.Equal("SLM-****ABCD", status.Key)

	s.call(token, ActionLicenseStatus, nil, &status)
	s.Equal(domain.LicenseStatusSuccess, status.Status)

	for _, id := range []string{"1", "2"} {
		rec := s.do(http.MethodPut, "/api/items/"+id, token, nil, domain.Item{PostType: "post", Title: "Old " + id, Content: "<p>Body</p>"})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = s.do(http.MethodPut, "/api/items/3", token, nil, domain.Item{PostType: "nope"})
	s.Equal(http.StatusBadRequest, rec.Code)

	var handle domain.JobHandle
	s.call(token, ActionBulkStart, api.BulkStartRequest{ItemIDs: []string{"1", "missing", "2"}}, &handle)
	s.Equal(3, handle.Total)

	rec = s.action(token, s.nonce(token, ActionBulkStart), ActionBulkStart, api.BulkStartRequest{ItemIDs: []string{"1"}})
	s.Equal(http.StatusConflict, rec.Code)

	var step domain.StepResult
	for cursor := 0; cursor < 3; cursor++ {
		s.call(token, ActionBulkStep, api.BulkStepRequest{JobID: handle.ID, Cursor: cursor}, &step)
		s.Equal(cursor, step.CurrentIndex)
	}
	s.True(step.Done)

	var snap domain.JobSnapshot
	s.call(token, ActionBulkStatus, api.JobRequest{JobID: handle.ID}, &snap)
	s.Equal(domain.JobStateCompleted, snap.State)
	s.Equal(domain.ItemFailed, snap.Results[1].Outcome)

	rec = s.do(http.MethodGet, "/api/items/1", token, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var item domain.Item
	s.decode(rec, &item)
	s.Equal("Generated Title", item.Title)
	s.NotNil(item.OptimizedAt)

	var result optimizer.Result
	s.call(token, ActionOptimizeSingle, api.OptimizeSingleRequest{ItemID: "2"}, &result)
	s.Equal("2", result.ItemID)

	s.call(token, ActionBulkStart, api.BulkStartRequest{ItemIDs: []string{"1"}}, &handle)
	s.call(token, ActionBulkAbort, api.JobRequest{JobID: handle.ID}, &snap)
	s.Equal(domain.JobStateAborted, snap.State)
}

func (s *GatewaySuite) TestManualLicenseCheckAdoptsServerResult() {
	ctx := context.Background()
	token := s.login("admin")
	s.Require().NoError(s.licenses.SaveKey(ctx, "SLM-1234-5678-ABCD"))
	s.slmBody.Store(`{"result":"expired","message":"License key expired"}`)

	var resp api.LicenseCheckResponse
	s.call(token, ActionManualLicenseCheck, nil, &resp)
	s.True(resp.Checked)
	s.Equal(domain.LicenseStatus("expired"), resp.Status)
	s.False(resp.Active)
	s.NotNil(resp.LastCheck)
	s.EqualValues(1, s.slmCalls.Load())
}

func (s *GatewaySuite) TestExportImportRoundTrip() {
	token := s.login("admin")

	var brand domain.BrandProfile
	s.call(token, ActionSaveBrandProfile, domain.BrandProfile{
		Name: " Acme ", Keywords: []string{"b", "a", "a"},
	}, &brand)
	s.Equal("Acme", brand.Name)
	s.Equal([]string{"a", "b"}, brand.Keywords)

	s.call(token, ActionSaveSettings, api.SaveSettingsRequest{PostType: "product", Settings: domain.SettingsPatch{Tone: strPtr("bold")}}, nil)

	var exported domain.SettingsExport
	s.call(token, ActionExportSettings, nil, &exported)
	s.Equal(1, exported.Version)
	s.Equal("bold", exported.Settings["product"].Tone)

	s.call(token, ActionResetDefaults, api.PostTypeRequest{PostType: "product"}, nil)

	raw, err := json.Marshal(exported)
	s.Require().NoError(err)
	var summary content.ImportSummary
	s.call(token, ActionImportSettings, api.ImportSettingsRequest{Document: raw}, &summary)
	s.True(summary.Brand)

	var category api.CategoryResponse
	s.call(token, ActionGetSettings, api.PostTypeRequest{PostType: "product"}, &category)
	s.Equal("bold", category.Settings.Tone)
}

func (s *GatewaySuite) TestHealthz() {
	rec := s.do(http.MethodGet, "/healthz", "", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	var resp api.HealthResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("ok", resp.Status)
	s.Equal("ok", resp.Checks["store"])
	s.Equal("unchecked", resp.Checks["license"])
	s.Equal(contracts.Version, resp.Version)
	s.Equal(contracts.GetVersionInfo(), resp.Build)
	s.Equal(0, resp.Jobs["total_jobs"])
	s.Equal(int64(2), resp.Hub["active_clients"])
}

func (s *GatewaySuite) TestHealthzCountsBulkJobs() {
	s.Require().NoError(s.jobs.CreateJob(&operations.Job{ID: "j1", State: domain.JobStateRunning}))

	rec := s.do(http.MethodGet, "/healthz", "", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	var resp api.HealthResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(1, resp.Jobs["total_jobs"])
	s.Equal(1, resp.Jobs[string(domain.JobStateRunning)])
}

func TestActionRequestDecode(t *testing.T) {
	req := &ActionRequest{Body: nil, validator: validation.New()}
	var in api.PostTypeRequest
	err := req.Decode(&in)
	require.Error(t, err, "post_type is required")
	assert.True(t, apierrors.Is(err, apierrors.KindValidation))

	req.Body = []byte(`{"post_type":"page"}`)
	require.NoError(t, req.Decode(&in))
	assert.Equal(t, "page", in.PostType)

	req.Body = []byte(`{"post_type":`)
	assert.True(t, apierrors.Is(req.Decode(&in), apierrors.KindValidation))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
