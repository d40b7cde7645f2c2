package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/adapters/policy/basic"
	"github.com/tjfontaine/interview-gateway/internal/adapters/policy/window"
	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/interview"
	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
	"github.com/tjfontaine/interview-gateway/internal/storage/memory"
	"github.com/tjfontaine/interview-gateway/internal/storage/sqlite"
)

type staticProvider struct{}

func (staticProvider) Name() string { return "static" }

func (staticProvider) Complete(ctx context.Context, req *ports.CompletionRequest) (*ports.CompletionResponse, error) {
	return nil, errors.New("offline")
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, RequestTimeout: 5 * time.Second},
		Provider: config.ProviderConfig{
			Type:        "openai",
			APIKey:      "test-key",
			Model:       "gpt-4o-mini",
			Timeout:     time.Second,
			Temperature: 0.7,
		},
		Admission: config.AdmissionConfig{Enabled: true, Limit: 5, Window: time.Minute, SweepInterval: time.Minute},
		Storage:   config.StorageConfig{Type: "memory"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGateway_New_RequiresConfig(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without config")
	}
	if err.Error() != "config required (use WithConfig or WithFileConfig)" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGateway_New_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Admission.Limit = 0

	if _, err := New(WithConfig(cfg)); err == nil {
		t.Error("expected validation error")
	}
}

func TestGateway_New_Defaults(t *testing.T) {
	gw, err := New(WithConfig(testConfig()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := gw.policy.(*window.Limiter); !ok {
		t.Errorf("policy = %T, want *window.Limiter", gw.policy)
	}
	if _, ok := gw.store.(*memory.Store); !ok {
		t.Errorf("store = %T, want *memory.Store", gw.store)
	}
	if gw.Service() == nil {
		t.Error("Service() = nil")
	}

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d", rec.Code)
	}
}

func TestGateway_New_AdmissionDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Admission.Enabled = false

	gw, err := New(WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := gw.policy.(*basic.Policy); !ok {
		t.Errorf("policy = %T, want *basic.Policy", gw.policy)
	}
}

func TestGateway_WithFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	dbPath := filepath.Join(tmpDir, "interviews.db")
	configContent := `
server:
  port: 18080
provider:
  api_key: test-key
storage:
  type: sqlite
  sqlite:
    path: ` + dbPath + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	gw, err := New(WithFileConfig(configPath), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer gw.Shutdown(context.Background())

	if gw.cfg.Server.Port != 18080 {
		t.Errorf("port = %d, want 18080", gw.cfg.Server.Port)
	}
	if _, ok := gw.store.(*sqlite.Store); !ok {
		t.Errorf("store = %T, want *sqlite.Store", gw.store)
	}
}

func TestGateway_Start_MissingCredentialFailsFast(t *testing.T) {
	cfg := testConfig()
	cfg.Provider.APIKey = ""

	gw, err := New(WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = gw.Start(context.Background())
	var configErr *domain.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("Start() error = %v, want ConfigurationError", err)
	}
	if configErr.Key != "provider.api_key" {
		t.Errorf("Key = %q, want provider.api_key", configErr.Key)
	}
	if gw.started {
		t.Error("gateway marked started after failed Start")
	}
}

func TestGateway_Start_And_Shutdown(t *testing.T) {
	gw, err := New(
		WithConfig(testConfig()),
		WithLogger(quietLogger()),
		WithProvider(staticProvider{}),
		WithMemoryStore(),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := gw.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := gw.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestGateway_CustomDependencies(t *testing.T) {
	store := memory.New()
	policy := basic.NewPolicy()

	gw, err := New(
		WithConfig(testConfig()),
		WithLogger(quietLogger()),
		WithProvider(staticProvider{}),
		WithSessionStore(store),
		WithAdmissionPolicy(policy),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sess, err := gw.Service().Start(context.Background(), interviewStart("u1"))
	if err != nil {
		t.Fatalf("Start interview error = %v", err)
	}
	if !sess.QuestionsFallback {
		t.Error("offline provider should produce fallback questions")
	}
	if _, err := store.GetSession(context.Background(), sess.ID); err != nil {
		t.Errorf("session not in injected store: %v", err)
	}
}

func interviewStart(userID string) interview.StartRequest {
	return interview.StartRequest{UserID: userID, Role: "data engineer", Difficulty: "medium"}
}

func TestGateway_ListenerFailureStops(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := testConfig()
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	gw, err := New(WithConfig(cfg), WithLogger(quietLogger()), WithProvider(staticProvider{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-gw.Stopped():
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not stop after listener failure")
	}

	if err := gw.Shutdown(context.Background()); err == nil {
		t.Error("Shutdown() should report the listener error")
	}
}
