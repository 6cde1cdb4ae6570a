package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/customer-core/internal/infrastructure/config"
)

// testLimiter creates a LoginLimiter backed by an in-process Redis.
func testLimiter(t *testing.T, attempts, windowSeconds int) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLoginLimiter(client, config.RateLimitConfig{
		Enabled:       true,
		LoginAttempts: attempts,
		WindowSeconds: windowSeconds,
	}), mr
}

func TestLoginLimiter_AllowsWithinBudget(t *testing.T) {
	limiter, _ := testLimiter(t, 3, 60)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() attempt %d error = %v", i+1, err)
		}
		if !ok {
			t.Errorf("attempt %d blocked, want allowed", i+1)
		}
	}

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if ok {
		t.Error("fourth attempt allowed, want blocked")
	}
}

func TestLoginLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := testLimiter(t, 1, 60)
	ctx := context.Background()

	if ok, _ := limiter.Allow(ctx, "10.0.0.1"); !ok { //nolint:errcheck // miniredis does not fail
		t.Fatal("first attempt for first key blocked")
	}
	if ok, _ := limiter.Allow(ctx, "10.0.0.2"); !ok { //nolint:errcheck // miniredis does not fail
		t.Error("first attempt for second key blocked")
	}
}

func TestLoginLimiter_WindowExpires(t *testing.T) {
	limiter, mr := testLimiter(t, 1, 60)
	ctx := context.Background()

	if ok, _ := limiter.Allow(ctx, "10.0.0.1"); !ok { //nolint:errcheck // miniredis does not fail
		t.Fatal("first attempt blocked")
	}
	if ok, _ := limiter.Allow(ctx, "10.0.0.1"); ok { //nolint:errcheck // miniredis does not fail
		t.Fatal("second attempt allowed, want blocked")
	}

	// Jump past the window
	mr.FastForward(61 * time.Second)

	if ok, _ := limiter.Allow(ctx, "10.0.0.1"); !ok { //nolint:errcheck // miniredis does not fail
		t.Error("attempt after window expiry blocked, want allowed")
	}
}

func TestLoginLimiter_Reset(t *testing.T) {
	limiter, _ := testLimiter(t, 1, 60)
	ctx := context.Background()

	limiter.Allow(ctx, "10.0.0.1")         //nolint:errcheck // spending the budget
	if ok, _ := limiter.Allow(ctx, "10.0.0.1"); ok { //nolint:errcheck // miniredis does not fail
		t.Fatal("budget not spent")
	}

	if err := limiter.Reset(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if ok, _ := limiter.Allow(ctx, "10.0.0.1"); !ok { //nolint:errcheck // miniredis does not fail
		t.Error("attempt after reset blocked, want allowed")
	}
}

// ─── Middleware Integration Tests ──────────────────────────────────

func TestLoginRateLimit_Returns429(t *testing.T) {
	srv := testServer(t)
	limiter, _ := testLimiter(t, 2, 60)
	srv.limiter = limiter
	router := srv.buildRouter()

	registerUser(t, router, "limited")

	body := `{"username":"limited","password":"wrong-password"}`
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want %d", i+1, w.Code, http.StatusUnauthorized)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("throttled status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}

func TestLoginRateLimit_SuccessResetsBudget(t *testing.T) {
	srv := testServer(t)
	limiter, _ := testLimiter(t, 3, 60)
	srv.limiter = limiter
	router := srv.buildRouter()

	registerUser(t, router, "tidy")

	// Two failures, then a success
	bad := `{"username":"tidy","password":"wrong-password"}`
	for n := 0; n < 2; n++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(bad)))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("failed attempt status = %d", w.Code)
		}
	}
	loginUser(t, router, "tidy")

	// Budget is fresh again: three more attempts pass the limiter
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(bad)))
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d throttled after reset", i+1)
		}
	}
}

func TestLoginRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	srv := testServer(t)
	limiter, mr := testLimiter(t, 1, 60)
	srv.limiter = limiter
	router := srv.buildRouter()

	registerUser(t, router, "open")
	mr.Close()

	// Redis is gone; logins still work
	loginUser(t, router, "open")
}
