// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/authz"
	"github.com/tomtom215/newswire/internal/classify"
	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/dedup"
	"github.com/tomtom215/newswire/internal/ingest"
	"github.com/tomtom215/newswire/internal/intake"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
	ws "github.com/tomtom215/newswire/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// engineEmitter hands admitted alerts straight to the engine.
type engineEmitter struct{ engine *ws.Engine }

func (e *engineEmitter) PublishAlert(ctx context.Context, a *models.Alert) error {
	return e.engine.HandleAlert(ctx, a)
}

type recordingIngest struct {
	items []*models.RawItem
	err   error
}

func (r *recordingIngest) PublishRawItems(_ context.Context, items []*models.RawItem) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.items = append(r.items, items...)
	return len(items), nil
}

type testAPI struct {
	server *httptest.Server
	mem    *store.Memory
	engine *ws.Engine
	tokens *auth.TokenManager
	cfg    *config.Config
}

func testAPIConfig() *config.Config {
	return &config.Config{
		Distribution: config.DistributionConfig{
			BackfillFetch:     100,
			BackfillLimit:     10,
			SendBuffer:        64,
			FanoutConcurrency: 4,
			WriteWait:         2 * time.Second,
			PongWait:          5 * time.Second,
			PingPeriod:        4 * time.Second,
			MaxMessageSize:    4096,
		},
		Pricing: config.PricingConfig{
			PricePerAlert:     "0.01",
			TreasuryFeeBPS:    500,
			PublisherShareBPS: 7000,
		},
		Intake: config.IntakeConfig{
			KeyPrefix:        "nw_pub_",
			MinStake:         "0",
			AutoApprove:      true,
			SuspendThreshold: 20,
			ConsumptionBonus: 0.1,
			RatePerSecond:    100,
			RateBurst:        100,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-with-at-least-32-characters",
			TokenTTL:          time.Hour,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"https://app.example.com"},
		},
	}
}

func newTestAPI(t *testing.T, mutate func(*config.Config, *Deps)) *testAPI {
	t.Helper()
	cfg := testAPIConfig()
	mem := store.NewMemory()

	// The engine credits publishers through intake, and intake admits through
	// the pipeline that feeds the engine.
	var svc *intake.Service
	credits := creditsFunc(func(ctx context.Context, id string, share models.Amount) error {
		return svc.RecordConsumption(ctx, id, share)
	})
	engine, err := ws.New(&cfg.Distribution, &cfg.Pricing, ws.Deps{
		Alerts:      mem,
		Subscribers: mem,
		Receipts:    mem,
		Credits:     credits,
	})
	if err != nil {
		t.Fatalf("ws.New() error = %v", err)
	}

	classifier, err := classify.New(nil, "news/breaking")
	if err != nil {
		t.Fatalf("classify.New() error = %v", err)
	}
	dd := dedup.New(100, time.Hour, nil)
	pipeline := ingest.NewPipeline(ingest.PipelineDeps{
		Dedup:      dd,
		Classifier: classifier,
		Builder:    ingest.NewBuilder(mem),
		Emitter:    &engineEmitter{engine: engine},
	})
	svc, err = intake.New(&cfg.Intake, mem, mem, pipeline, intake.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("intake.New() error = %v", err)
	}

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	deps := Deps{
		Config:   cfg,
		Store:    mem,
		Intake:   svc,
		Engine:   engine,
		Tokens:   tokens,
		Enforcer: enforcer,
		Batch:    pipeline,
		Dedup:    dd,
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	router, err := NewRouter(deps)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	server := httptest.NewServer(router.Handler())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = engine.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})
	return &testAPI{server: server, mem: mem, engine: engine, tokens: tokens, cfg: cfg}
}

type creditsFunc func(ctx context.Context, id string, share models.Amount) error

func (f creditsFunc) RecordConsumption(ctx context.Context, id string, share models.Amount) error {
	return f(ctx, id, share)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type call struct {
	method string
	path   string
	token  string
	apiKey string
	body   interface{}
}

func (a *testAPI) do(t *testing.T, c call) (int, envelope) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(c.method, a.server.URL+c.path, body)
	if err != nil {
		t.Fatal(err)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", c.method, c.path, err)
	}
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	tok, err := a.tokens.Issue("ops", auth.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (a *testAPI) createSubscriber(t *testing.T, deposit string, channels ...string) SubscriberCreated {
	t.Helper()
	status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/subscribers", body: map[string]interface{}{
		"channels":       channels,
		"initialDeposit": deposit,
	}})
	if status != http.StatusCreated {
		t.Fatalf("create subscriber: status = %d, error = %+v", status, env.Error)
	}
	return decodeData[SubscriberCreated](t, env)
}

func (a *testAPI) registerPublisher(t *testing.T, name string, channels ...string) intake.Registration {
	t.Helper()
	status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/publishers", body: map[string]interface{}{
		"name":     name,
		"channels": channels,
	}})
	if status != http.StatusCreated {
		t.Fatalf("register publisher: status = %d, error = %+v", status, env.Error)
	}
	return decodeData[intake.Registration](t, env)
}

func TestNewRouterRequiresDeps(t *testing.T) {
	if _, err := NewRouter(Deps{}); err == nil {
		t.Fatal("NewRouter(Deps{}) error = nil")
	}
}

func TestListChannels(t *testing.T) {
	a := newTestAPI(t, nil)
	status, env := a.do(t, call{method: http.MethodGet, path: "/api/v1/channels"})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, success = %v", status, env.Success)
	}
	channels := decodeData[[]models.ChannelInfo](t, env)
	if len(channels) != len(models.ChannelCatalog()) {
		t.Errorf("got %d channels, want %d", len(channels), len(models.ChannelCatalog()))
	}
	if env.Meta == nil || env.Meta.Count == nil || *env.Meta.Count != len(channels) {
		t.Errorf("meta.count = %+v", env.Meta)
	}
	if env.Meta.RequestID == "" {
		t.Error("meta.request_id is empty")
	}
}

func TestAccessControl(t *testing.T) {
	a := newTestAPI(t, nil)
	alice := a.createSubscriber(t, "1.00", "news/macro")
	bob := a.createSubscriber(t, "1.00", "news/macro")
	admin := a.adminToken(t)

	tests := []struct {
		name       string
		call       call
		wantStatus int
		wantCode   string
	}{
		{"anonymous reads subscriber", call{method: http.MethodGet, path: "/api/v1/subscribers/" + alice.Subscriber.ID}, http.StatusUnauthorized, ErrCodeUnauthenticated},
		{"owner reads self", call{method: http.MethodGet, path: "/api/v1/subscribers/" + alice.Subscriber.ID, token: alice.Token}, http.StatusOK, ""},
		{"subscriber reads other", call{method: http.MethodGet, path: "/api/v1/subscribers/" + bob.Subscriber.ID, token: alice.Token}, http.StatusForbidden, ErrCodeForbidden},
		{"owner reads receipts", call{method: http.MethodGet, path: "/api/v1/subscribers/" + alice.Subscriber.ID + "/receipts", token: alice.Token}, http.StatusOK, ""},
		{"admin reads any", call{method: http.MethodGet, path: "/api/v1/subscribers/" + bob.Subscriber.ID, token: admin}, http.StatusOK, ""},
		{"subscriber calls admin", call{method: http.MethodPost, path: "/api/v1/admin/alerts/dedupe", token: alice.Token}, http.StatusForbidden, "FORBIDDEN"},
		{"anonymous calls admin", call{method: http.MethodPost, path: "/api/v1/admin/alerts/dedupe"}, http.StatusUnauthorized, ErrCodeUnauthenticated},
		{"invalid token", call{method: http.MethodGet, path: "/api/v1/channels", token: "garbage"}, http.StatusUnauthorized, ErrCodeUnauthenticated},
		{"admin dedupe", call{method: http.MethodPost, path: "/api/v1/admin/alerts/dedupe", token: admin}, http.StatusOK, ""},
		{"unknown subscriber", call{method: http.MethodGet, path: "/api/v1/subscribers/nope", token: admin}, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := a.do(t, tt.call)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (error %+v)", status, tt.wantStatus, env.Error)
			}
			if tt.wantCode == "" {
				if !env.Success {
					t.Errorf("success = false, error = %+v", env.Error)
				}
				return
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestSubscriberLifecycle(t *testing.T) {
	a := newTestAPI(t, nil)
	created := a.createSubscriber(t, "0.50", "news/macro")
	id := created.Subscriber.ID
	path := "/api/v1/subscribers/" + id
	tok := created.Token

	if created.Subscriber.Balance != models.MustParseAmount("0.50") {
		t.Errorf("balance = %s, want 0.50", created.Subscriber.Balance)
	}
	if !created.Subscriber.Active {
		t.Error("new subscriber is inactive")
	}
	if created.ExpiresIn != int64(time.Hour.Seconds()) {
		t.Errorf("expiresIn = %d", created.ExpiresIn)
	}

	status, env := a.do(t, call{method: http.MethodPost, path: path + "/deposit", token: tok, body: map[string]string{"amount": "1.25"}})
	if status != http.StatusOK {
		t.Fatalf("deposit status = %d, error = %+v", status, env.Error)
	}
	if got := decodeData[models.Subscriber](t, env).Balance; got != models.MustParseAmount("1.75") {
		t.Errorf("balance after deposit = %s, want 1.75", got)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path + "/withdraw", token: tok, body: map[string]string{"amount": "5"}})
	if status != http.StatusPaymentRequired || env.Error.Code != ErrCodeInsufficientBalance {
		t.Errorf("overdraw: status = %d, error = %+v", status, env.Error)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path + "/deposit", token: tok, body: map[string]string{"amount": "0"}})
	if status != http.StatusBadRequest || env.Error.Code != ErrCodeInvalidAmount {
		t.Errorf("zero deposit: status = %d, error = %+v", status, env.Error)
	}

	status, env = a.do(t, call{method: http.MethodPut, path: path + "/channels", token: tok, body: map[string][]string{"channels": {"defi/exploits", "news/breaking"}}})
	if status != http.StatusOK {
		t.Fatalf("update channels status = %d, error = %+v", status, env.Error)
	}
	sub := decodeData[models.Subscriber](t, env)
	if !sub.Channels.Contains(models.ChannelDefiExploits) || sub.Channels.Contains(models.ChannelMacro) {
		t.Errorf("channels = %v", sub.Channels.Strings())
	}

	status, env = a.do(t, call{method: http.MethodPut, path: path + "/channels", token: tok, body: map[string][]string{"channels": {"bogus/channel"}}})
	if status != http.StatusBadRequest || env.Error.Code != ErrCodeValidationFailed {
		t.Errorf("bogus channel: status = %d, error = %+v", status, env.Error)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path + "/deactivate", token: tok})
	if status != http.StatusOK || decodeData[models.Subscriber](t, env).Active {
		t.Errorf("deactivate: status = %d, data = %s", status, env.Data)
	}
	status, env = a.do(t, call{method: http.MethodGet, path: path, token: tok})
	if status != http.StatusOK || decodeData[models.Subscriber](t, env).Active {
		t.Errorf("get after deactivate: status = %d, data = %s", status, env.Data)
	}
	status, env = a.do(t, call{method: http.MethodPost, path: path + "/reactivate", token: tok})
	if status != http.StatusOK || !decodeData[models.Subscriber](t, env).Active {
		t.Errorf("reactivate: status = %d, data = %s", status, env.Data)
	}
}

func TestCreateSubscriberValidation(t *testing.T) {
	a := newTestAPI(t, nil)
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"no channels", map[string]interface{}{"channels": []string{}}, http.StatusBadRequest, ErrCodeValidationFailed},
		{"unknown channel", map[string]interface{}{"channels": []string{"news/gossip"}}, http.StatusBadRequest, ErrCodeValidationFailed},
		{"negative deposit", map[string]interface{}{"channels": []string{"news/macro"}, "initialDeposit": "-1"}, http.StatusBadRequest, ErrCodeValidationFailed},
		{"unknown field", map[string]interface{}{"channels": []string{"news/macro"}, "admin": true}, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/subscribers", body: tt.body})
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (error %+v)", status, tt.wantStatus, env.Error)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}

	t.Run("duplicate wallet", func(t *testing.T) {
		body := map[string]interface{}{"channels": []string{"news/macro"}, "walletAddress": "0xabc"}
		if status, _ := a.do(t, call{method: http.MethodPost, path: "/api/v1/subscribers", body: body}); status != http.StatusCreated {
			t.Fatalf("first create status = %d", status)
		}
		status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/subscribers", body: body})
		if status != http.StatusConflict || env.Error.Code != ErrCodeDuplicate {
			t.Errorf("status = %d, error = %+v", status, env.Error)
		}
	})
}

func publishBody(headline string) map[string]interface{} {
	return map[string]interface{}{
		"channel":   "news/macro",
		"headline":  headline,
		"summary":   "The central bank surprised markets with a fifty basis point cut.",
		"sourceUrl": "https://example.com/fed",
		"tickers":   []string{"BTC"},
		"priority":  "high",
	}
}

func TestPublishAndVerify(t *testing.T) {
	a := newTestAPI(t, nil)
	reg := a.registerPublisher(t, "Macro Desk", "news/macro")
	if reg.APIKey == "" {
		t.Fatal("registration returned no API key")
	}

	status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/alerts/publish", body: publishBody("Fed cuts rates by 50bps")})
	if status != http.StatusUnauthorized {
		t.Errorf("publish without key: status = %d", status)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: "/api/v1/alerts/publish", apiKey: reg.APIKey, body: publishBody("Fed cuts rates by 50bps")})
	if status != http.StatusCreated {
		t.Fatalf("publish status = %d, error = %+v", status, env.Error)
	}
	alert := decodeData[models.Alert](t, env)
	if alert.PublisherID != reg.Publisher.ID || alert.Channel != models.ChannelMacro {
		t.Errorf("alert = %+v", alert)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: "/api/v1/alerts/publish", apiKey: reg.APIKey, body: publishBody("Fed cuts rates by 50bps")})
	if status != http.StatusConflict || env.Error.Code != ErrCodeDuplicate {
		t.Errorf("duplicate publish: status = %d, error = %+v", status, env.Error)
	}

	other := publishBody("Exploit drains lending pool")
	other["channel"] = "defi/exploits"
	status, env = a.do(t, call{method: http.MethodPost, path: "/api/v1/alerts/publish", apiKey: reg.APIKey, body: other})
	if status != http.StatusForbidden || env.Error.Code != string(intake.CodeForbiddenChannel) {
		t.Errorf("forbidden channel: status = %d, error = %+v", status, env.Error)
	}

	status, env = a.do(t, call{method: http.MethodGet, path: "/api/v1/alerts?channels=news/macro&limit=10"})
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if alerts := decodeData[[]models.Alert](t, env); len(alerts) != 1 || alerts[0].AlertID != alert.AlertID {
		t.Errorf("alerts = %+v", alerts)
	}

	status, env = a.do(t, call{method: http.MethodGet, path: "/api/v1/alerts?channel=defi/yields"})
	if alerts := decodeData[[]models.Alert](t, env); status != http.StatusOK || len(alerts) != 0 {
		t.Errorf("single channel filter: status = %d, alerts = %d", status, len(alerts))
	}

	status, _ = a.do(t, call{method: http.MethodGet, path: "/api/v1/alerts?limit=1000"})
	if status != http.StatusBadRequest {
		t.Errorf("oversized limit: status = %d", status)
	}
	status, _ = a.do(t, call{method: http.MethodGet, path: "/api/v1/alerts?channels=nope"})
	if status != http.StatusBadRequest {
		t.Errorf("unknown channel filter: status = %d", status)
	}

	verify := func(hash string) VerifyResponse {
		t.Helper()
		status, env := a.do(t, call{method: http.MethodGet, path: "/api/v1/alerts/" + alert.AlertID + "/verify?hash=" + hash})
		if status != http.StatusOK {
			t.Fatalf("verify status = %d, error = %+v", status, env.Error)
		}
		return decodeData[VerifyResponse](t, env)
	}
	if !verify(alert.ContentHash).Verified {
		t.Error("content hash did not verify")
	}
	if verify("deadbeef").Verified {
		t.Error("wrong hash verified")
	}
	status, _ = a.do(t, call{method: http.MethodGet, path: "/api/v1/alerts/missing/verify?hash=x"})
	if status != http.StatusNotFound {
		t.Errorf("verify missing: status = %d", status)
	}
}

func TestWithdrawStake(t *testing.T) {
	a := newTestAPI(t, nil)
	status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/publishers", body: map[string]interface{}{
		"name":     "Staked Desk",
		"channels": []string{"defi/yields"},
		"stake":    "12.5",
	}})
	if status != http.StatusCreated {
		t.Fatalf("register: status = %d, error = %+v", status, env.Error)
	}
	reg := decodeData[intake.Registration](t, env)
	path := "/api/v1/publishers/self/withdraw-stake"

	status, _ = a.do(t, call{method: http.MethodPost, path: path})
	if status != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d", status)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path, apiKey: reg.APIKey})
	if status != http.StatusOK {
		t.Fatalf("withdraw: status = %d, error = %+v", status, env.Error)
	}
	got := decodeData[intake.StakeWithdrawal](t, env)
	if got.Amount != models.MustParseAmount("12.5") || got.Publisher.Stake != 0 || got.Publisher.Status != models.PublisherSuspended {
		t.Errorf("withdrawal = %+v", got)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path, apiKey: reg.APIKey})
	if status != http.StatusBadRequest || env.Error.Code != string(intake.CodeInvalidAmount) {
		t.Errorf("second withdraw: status = %d, error = %+v", status, env.Error)
	}
}

func TestAdminPublisherModeration(t *testing.T) {
	a := newTestAPI(t, nil)
	admin := a.adminToken(t)
	reg := a.registerPublisher(t, "Chain Watch", "defi/exploits")
	path := "/api/v1/admin/publishers/" + reg.Publisher.ID

	status, env := a.do(t, call{method: http.MethodGet, path: path, token: admin})
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	if p := decodeData[models.Publisher](t, env); p.Name != "Chain Watch" {
		t.Errorf("publisher = %+v", p)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path + "/status", token: admin, body: map[string]string{"status": "suspended"}})
	if status != http.StatusOK || decodeData[models.Publisher](t, env).Status != models.PublisherSuspended {
		t.Errorf("suspend: status = %d, data = %s", status, env.Data)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path + "/status", token: admin, body: map[string]string{"status": "retired"}})
	if status != http.StatusBadRequest || env.Error.Code != ErrCodeValidationFailed {
		t.Errorf("bad status: status = %d, error = %+v", status, env.Error)
	}

	status, env = a.do(t, call{method: http.MethodPost, path: path + "/slash", token: admin, body: map[string]string{"amount": "0"}})
	if status != http.StatusBadRequest || env.Error.Code != string(intake.CodeInvalidAmount) {
		t.Errorf("zero slash: status = %d, error = %+v", status, env.Error)
	}
	status, env = a.do(t, call{method: http.MethodPost, path: path + "/slash", token: admin, body: map[string]string{"amount": "1"}})
	if status != http.StatusBadRequest || env.Error.Code != string(intake.CodeInvalidAmount) {
		t.Errorf("slash beyond stake: status = %d, error = %+v", status, env.Error)
	}

	status, _ = a.do(t, call{method: http.MethodGet, path: "/api/v1/admin/publishers/nope", token: admin})
	if status != http.StatusNotFound {
		t.Errorf("missing publisher: status = %d", status)
	}
}

func TestAdminIngest(t *testing.T) {
	item := map[string]interface{}{
		"source": "coindesk",
		"title":  "Bitcoin ETF inflows hit record",
		"link":   "https://coindesk.com/1",
	}

	t.Run("no bus", func(t *testing.T) {
		a := newTestAPI(t, nil)
		status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest", token: a.adminToken(t),
			body: map[string]interface{}{"items": []interface{}{item}}})
		if status != http.StatusServiceUnavailable || env.Error.Code != ErrCodeServiceUnavailable {
			t.Errorf("status = %d, error = %+v", status, env.Error)
		}
	})

	t.Run("queued", func(t *testing.T) {
		bus := &recordingIngest{}
		a := newTestAPI(t, func(_ *config.Config, d *Deps) { d.Ingest = bus })
		status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest", token: a.adminToken(t),
			body: map[string]interface{}{"items": []interface{}{item, item}}})
		if status != http.StatusAccepted {
			t.Fatalf("status = %d, error = %+v", status, env.Error)
		}
		if got := decodeData[IngestResponse](t, env).Queued; got != 2 || len(bus.items) != 2 {
			t.Errorf("queued = %d, bus items = %d", got, len(bus.items))
		}
	})

	t.Run("invalid item", func(t *testing.T) {
		bus := &recordingIngest{}
		a := newTestAPI(t, func(_ *config.Config, d *Deps) { d.Ingest = bus })
		status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest", token: a.adminToken(t),
			body: map[string]interface{}{"items": []interface{}{map[string]interface{}{"source": "x"}}}})
		if status != http.StatusBadRequest || env.Error.Code != ErrCodeValidationFailed {
			t.Errorf("status = %d, error = %+v", status, env.Error)
		}
		if len(bus.items) != 0 {
			t.Errorf("bus received %d items", len(bus.items))
		}
	})

	t.Run("sync", func(t *testing.T) {
		a := newTestAPI(t, nil)
		status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest?mode=sync", token: a.adminToken(t),
			body: map[string]interface{}{"items": []interface{}{item, item}}})
		if status != http.StatusOK {
			t.Fatalf("status = %d, error = %+v", status, env.Error)
		}
		res := decodeData[ingest.BatchResult](t, env)
		if res.Accepted != 1 || res.Duplicates != 1 || res.Failed != 0 || len(res.AlertIDs) != 1 {
			t.Fatalf("result = %+v", res)
		}
		if _, err := a.mem.GetAlert(context.Background(), res.AlertIDs[0]); err != nil {
			t.Errorf("GetAlert(%s) error = %v", res.AlertIDs[0], err)
		}
	})

	t.Run("sync without pipeline", func(t *testing.T) {
		a := newTestAPI(t, func(_ *config.Config, d *Deps) { d.Batch = nil })
		status, _ := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest?mode=sync", token: a.adminToken(t),
			body: map[string]interface{}{"items": []interface{}{item}}})
		if status != http.StatusServiceUnavailable {
			t.Errorf("status = %d", status)
		}
	})

	t.Run("bus failure", func(t *testing.T) {
		bus := &recordingIngest{err: errors.New("nats: connection closed")}
		a := newTestAPI(t, func(_ *config.Config, d *Deps) { d.Ingest = bus })
		status, _ := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest", token: a.adminToken(t),
			body: map[string]interface{}{"items": []interface{}{item}}})
		if status != http.StatusServiceUnavailable {
			t.Errorf("status = %d", status)
		}
	})
}

func TestAdminDedupStatus(t *testing.T) {
	a := newTestAPI(t, nil)
	admin := a.adminToken(t)
	item := map[string]interface{}{
		"source": "coindesk",
		"title":  "Exchange halts withdrawals after exploit",
		"link":   "https://coindesk.com/2",
	}
	status, env := a.do(t, call{method: http.MethodPost, path: "/api/v1/admin/ingest?mode=sync", token: admin,
		body: map[string]interface{}{"items": []interface{}{item}}})
	if status != http.StatusOK {
		t.Fatalf("ingest status = %d, error = %+v", status, env.Error)
	}
	ids := decodeData[ingest.BatchResult](t, env).AlertIDs
	if len(ids) != 1 {
		t.Fatalf("alert ids = %v", ids)
	}
	alert, err := a.mem.GetAlert(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}

	lookup := func(headline, channel string) (int, DedupStatusResponse) {
		q := url.Values{"headline": {headline}, "channel": {channel}}
		status, env := a.do(t, call{method: http.MethodGet, path: "/api/v1/admin/dedup?" + q.Encode(), token: admin})
		if status != http.StatusOK {
			return status, DedupStatusResponse{}
		}
		return status, decodeData[DedupStatusResponse](t, env)
	}

	if _, got := lookup("  EXCHANGE halts withdrawals after exploit ", string(alert.Channel)); !got.Seen || got.Fingerprint != alert.Fingerprint {
		t.Errorf("normalized headline: %+v", got)
	}
	if _, got := lookup("Something else entirely", string(alert.Channel)); got.Seen {
		t.Errorf("unseen headline reported seen: %+v", got)
	}
	// Looking up never records.
	if _, got := lookup("Something else entirely", string(alert.Channel)); got.Seen {
		t.Errorf("lookup recorded the fingerprint: %+v", got)
	}
	if status, _ := lookup("", string(alert.Channel)); status != http.StatusBadRequest {
		t.Errorf("missing headline: status = %d", status)
	}
	if status, _ := lookup("x", "not a channel"); status != http.StatusBadRequest {
		t.Errorf("bad channel: status = %d", status)
	}
	status, _ = a.do(t, call{method: http.MethodGet, path: "/api/v1/admin/dedup?headline=x&channel=news/breaking"})
	if status != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d", status)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantState  string
	}{
		{"no checks", nil, http.StatusOK, "healthy"},
		{"all ok", map[string]HealthCheck{"database": func(context.Context) error { return nil }}, http.StatusOK, "healthy"},
		{"one failing", map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"bus":      func(context.Context) error { return errors.New("not running") },
		}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, func(_ *config.Config, d *Deps) { d.Checks = tt.checks })
			status, env := a.do(t, call{method: http.MethodGet, path: "/health"})
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			health := decodeData[HealthResponse](t, env)
			if health.Status != tt.wantState {
				t.Errorf("health status = %q, want %q", health.Status, tt.wantState)
			}
			if len(health.Components) != len(tt.checks) {
				t.Errorf("components = %v", health.Components)
			}
		})
	}
}

func TestStats(t *testing.T) {
	a := newTestAPI(t, nil)
	a.createSubscriber(t, "1", "news/macro")

	status, env := a.do(t, call{method: http.MethodGet, path: "/api/v1/stats"})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	stats := decodeData[StatsResponse](t, env)
	if stats.Engine.PricePerAlert != models.MustParseAmount("0.01") || stats.Engine.TrialMode {
		t.Errorf("engine stats = %+v", stats.Engine)
	}
	if stats.Protocol == nil || stats.Protocol.TotalSubscribers != 1 {
		t.Errorf("protocol stats = %+v", stats.Protocol)
	}
}

func TestRateLimit(t *testing.T) {
	a := newTestAPI(t, func(cfg *config.Config, _ *Deps) {
		cfg.Security.RateLimitDisabled = false
		cfg.Security.RateLimitReqs = 2
		cfg.Security.RateLimitWindow = time.Minute
	})
	for i := 0; i < 2; i++ {
		if status, _ := a.do(t, call{method: http.MethodGet, path: "/api/v1/channels"}); status != http.StatusOK {
			t.Fatalf("request %d status = %d", i, status)
		}
	}
	status, env := a.do(t, call{method: http.MethodGet, path: "/api/v1/channels"})
	if status != http.StatusTooManyRequests || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("status = %d, error = %+v", status, env.Error)
	}
}
