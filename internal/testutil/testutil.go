package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"hubdeck/internal/database"
	"hubdeck/internal/marketplace"
	"hubdeck/internal/webconfig"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// It returns a cleanup function that should be called after the test.
func SetupTestDB(t *testing.T) func() {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// one connection, or each goroutine would see its own empty :memory: db
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	database.DB = db

	return func() {
		sqlDB.Close()
		database.DB = nil
	}
}

// TestConfig returns a test configuration
func TestConfig() *webconfig.Config {
	return &webconfig.Config{
		Auth: webconfig.AuthConfig{
			JWTSecret: "test-secret-key-for-unit-tests",
			JWTExpire: "24h",
		},
		Badge: webconfig.BadgeConfig{
			MarkConcurrency:   4,
			TicketConcurrency: 2,
			MarkSeenOnRefresh: true,
		},
		Alert: webconfig.AlertConfig{MinIncrease: 1},
	}
}

// FakeMarket is an in-process stand-in for the marketplace API. List
// endpoints serve whatever body was registered for their path; PUT
// requests are recorded and answered with {"message":"ok"}.
type FakeMarket struct {
	Server *httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	fail   map[string]int
	calls  map[string]int
	puts   []string
	onPut  func(path string)
}

func NewFakeMarket(t *testing.T) *FakeMarket {
	t.Helper()
	f := &FakeMarket{
		bodies: map[string]string{},
		fail:   map[string]int{},
		calls:  map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Client returns a marketplace client pointed at the fake.
func (f *FakeMarket) Client() *marketplace.Client {
	return marketplace.NewClient(webconfig.MarketplaceConfig{BaseURL: f.Server.URL, APIPrefix: "/api"}, 5*time.Second)
}

// Set registers the body served for GET path (relative to /api).
func (f *FakeMarket) Set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

// Fail makes path answer with status until cleared with Fail(path, 0).
func (f *FakeMarket) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, path)
		return
	}
	f.fail[path] = status
}

// OnPut runs fn for every PUT, after it is recorded.
func (f *FakeMarket) OnPut(fn func(path string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPut = fn
}

// Puts returns the recorded PUT paths, sorted.
func (f *FakeMarket) Puts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.puts...)
	sort.Strings(out)
	return out
}

func (f *FakeMarket) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *FakeMarket) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")

	f.mu.Lock()
	f.calls[path]++
	status := f.fail[path]
	body, ok := f.bodies[path]
	var hook func(string)
	if r.Method == http.MethodPut && status == 0 {
		f.puts = append(f.puts, path)
		hook = f.onPut
	}
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, `{"error":"injected"}`, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodPut {
		if hook != nil {
			hook(path)
		}
		w.Write([]byte(`{"message":"ok"}`))
		return
	}
	if !ok {
		w.Write([]byte(`[]`))
		return
	}
	w.Write([]byte(body))
}
