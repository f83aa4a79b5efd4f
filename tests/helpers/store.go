package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/adapter/llm"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/cache"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/lock"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/policy"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/repository"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/service"
)

// NewTestCache returns an in-memory SQLite cache closed at test cleanup.
func NewTestCache(t *testing.T) *cache.SQLiteCache {
	t.Helper()

	c, err := cache.NewSQLiteCache(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite cache: %v", err)
	}

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

// TestConfig returns a configuration suited for tests.
func TestConfig() *config.Config {
	return &config.Config{
		RequestTimeout:    5 * time.Second,
		SessionTTL:        24 * time.Hour,
		EnrichTTL:         10 * time.Minute,
		LockIdleTimeout:   time.Minute,
		LockSweepInterval: time.Second,
		SystemAccount:     "system",
		LLM: config.LLMConfig{
			Provider:     llm.ProviderMock,
			Model:        "test-model",
			Timeout:      5 * time.Second,
			HistoryLimit: 30,
		},
	}
}

// StaticSheets serves fixed upstream data.
type StaticSheets struct {
	Content  []domain.ContentRecord
	Meta     []domain.MetadataRecord
	Template []domain.SavedSearch
	Err      error
}

func (s *StaticSheets) KOLInfo(context.Context) ([]domain.MetadataRecord, error) {
	return s.Meta, s.Err
}

func (s *StaticSheets) KOLData(context.Context) ([]domain.ContentRecord, error) {
	return s.Content, s.Err
}

func (s *StaticSheets) SystemTemplate(context.Context) ([]domain.SavedSearch, error) {
	out := make([]domain.SavedSearch, len(s.Template))
	for i, ss := range s.Template {
		out[i] = ss.Clone()
	}
	return out, s.Err
}

func (s *StaticSheets) Refresh(context.Context) error {
	return s.Err
}

// SystemTemplate returns a one-entry template owned by the system account.
func SystemTemplate() []domain.SavedSearch {
	return []domain.SavedSearch{{
		ID:        1,
		Title:     "Today",
		Account:   "system",
		Order:     1,
		Query:     domain.DefaultSearchQuery(),
		CreatedAt: "2024-01-01T00:00:00Z",
	}}
}

// TestService bundles a service with its collaborators.
type TestService struct {
	*service.Service
	Cache  *cache.SQLiteCache
	Store  *repository.Store
	Sheets *StaticSheets
	Config *config.Config
}

// NewTestService wires a service over an in-memory cache. A nil llmClient
// selects the mock client.
func NewTestService(t *testing.T, sheets *StaticSheets, llmClient llm.LLMClient, notifier service.Notifier) *TestService {
	t.Helper()

	cfg := TestConfig()
	c := NewTestCache(t)
	store := repository.NewStore(c, cfg.SessionTTL)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if sheets == nil {
		sheets = &StaticSheets{Template: SystemTemplate()}
	}
	if llmClient == nil {
		llmClient = llm.NewMockClient()
	}

	svc := service.New(store, lock.NewRegistry(), sheets, sheets, engine, llmClient, notifier, cfg)
	return &TestService{Service: svc, Cache: c, Store: store, Sheets: sheets, Config: cfg}
}
