package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

// Resilience tests verify that the auth subsystem handles failure scenarios
// gracefully. These tests use the TestResilience_ prefix for easy filtering:
//
//	go test -run TestResilience -race ./internal/auth/...

// TestResilience_ConcurrentReplace verifies that concurrent token issuance
// for the same user never leaves more than one live refresh token. SQLite
// serialises writes, but the UNIQUE(user_id) constraint must hold even if
// two logins race.
func TestResilience_ConcurrentReplace(t *testing.T) {
	db := testDB(t)
	tokenRepo := NewTokenRepository(db)
	ctx := context.Background()

	user := seedTestUser(t, db, "concurrent-user", RoleUser)

	var wg sync.WaitGroup
	results := make(chan error, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rt := &RefreshToken{
				UserID:    user.ID,
				TokenHash: HashToken("racing-token-" + string(rune('a'+n))),
				ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
			}
			results <- tokenRepo.Replace(ctx, rt)
		}(i)
	}

	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes == 0 {
		t.Error("expected at least one concurrent Replace to succeed")
	}

	// The invariant: exactly one token row for the user
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ?", user.ID).Scan(&count); err != nil {
		t.Fatalf("counting tokens: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 token after concurrent issuance, got %d", count)
	}
}

// TestResilience_ContextCancellation_RepositoryOps verifies that repository
// operations respect context cancellation and return clean errors rather
// than panicking or leaving partial state.
func TestResilience_ContextCancellation_RepositoryOps(t *testing.T) {
	db := testDB(t)
	userRepo := NewUserRepository(db)

	// Create a pre-cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	// All operations should return a context error, not panic
	_, err := userRepo.List(ctx)
	if err == nil {
		t.Error("List with cancelled context should return error")
	}

	_, err = userRepo.GetByUsername(ctx, "nonexistent")
	if err == nil {
		t.Error("GetByUsername with cancelled context should return error")
	}

	_, err = userRepo.Count(ctx)
	if err == nil {
		t.Error("Count with cancelled context should return error")
	}

	user := &User{
		Username:     "cancel-test",
		Email:        "cancel@example.com",
		FullName:     "Cancel Test",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$dGVzdHNhbHQ$dGVzdGhhc2g",
		Role:         RoleUser,
		IsActive:     true,
	}
	err = userRepo.Create(ctx, user)
	if err == nil {
		t.Error("Create with cancelled context should return error")
	}
}

// TestResilience_MalformedStoredHash verifies that a corrupted password
// hash in the store fails verification cleanly instead of panicking.
func TestResilience_MalformedStoredHash(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)
	ctx := context.Background()

	user := seedTestUser(t, db, "corrupted", RoleUser)

	if _, err := db.Exec("UPDATE users SET password_hash = 'garbage' WHERE id = ?", user.ID); err != nil {
		t.Fatalf("corrupting hash: %v", err)
	}

	_, _, err := svc.Login(ctx, "corrupted", "test-password")
	if err == nil {
		t.Error("login against a corrupted hash should fail")
	}
}
