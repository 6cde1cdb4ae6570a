package customer

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the customers schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "customer-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE customers (
			id TEXT PRIMARY KEY,
			customer_code TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT,
			address TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_customers_status ON customers(status);
		CREATE INDEX idx_customers_name ON customers(full_name);
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying customers migration: %v", err)
	}

	return db
}

// seedCustomer inserts a test customer and returns it.
func seedCustomer(t *testing.T, repo *SQLiteRepository, name, email string) *Customer {
	t.Helper()

	c := &Customer{
		FullName: name,
		Email:    email,
		Phone:    "0123456789",
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("creating test customer %s: %v", name, err)
	}
	return c
}

func TestCreate_GeneratesIDAndCode(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	c := seedCustomer(t, repo, "Ada Lovelace", "ada@example.com")

	if c.ID == "" {
		t.Error("Create() should generate an ID")
	}
	if c.CustomerCode == "" {
		t.Error("Create() should generate a customer code")
	}
	if c.Status != StatusActive {
		t.Errorf("Status = %q, want %q", c.Status, StatusActive)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	seedCustomer(t, repo, "First", "shared@example.com")

	dup := &Customer{FullName: "Second", Email: "shared@example.com"}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("Create() error = %v, want ErrEmailInUse", err)
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	first := seedCustomer(t, repo, "First", "first@example.com")

	dup := &Customer{
		CustomerCode: first.CustomerCode,
		FullName:     "Second",
		Email:        "second@example.com",
	}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrCodeExists) {
		t.Errorf("Create() error = %v, want ErrCodeExists", err)
	}
}

func TestGetByID_And_GetByCode(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedCustomer(t, repo, "Grace Hopper", "grace@example.com")

	byID, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Email != "grace@example.com" {
		t.Errorf("Email = %q, want %q", byID.Email, "grace@example.com")
	}

	byCode, err := repo.GetByCode(ctx, seeded.CustomerCode)
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if byCode.ID != seeded.ID {
		t.Errorf("ID = %q, want %q", byCode.ID, seeded.ID)
	}

	if _, err := repo.GetByID(ctx, "cst-ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() unknown error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_CodeImmutable(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	c := seedCustomer(t, repo, "Mutable", "mutable@example.com")
	originalCode := c.CustomerCode

	c.FullName = "Renamed"
	c.CustomerCode = "CUS-HACKED"
	c.Status = StatusSuspended

	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.FullName != "Renamed" {
		t.Errorf("FullName = %q, want %q", stored.FullName, "Renamed")
	}
	if stored.Status != StatusSuspended {
		t.Errorf("Status = %q, want %q", stored.Status, StatusSuspended)
	}
	if stored.CustomerCode != originalCode {
		t.Errorf("CustomerCode = %q, want %q (immutable)", stored.CustomerCode, originalCode)
	}
}

func TestUpdate_InvalidStatus(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	c := seedCustomer(t, repo, "Statusful", "statusful@example.com")
	c.Status = Status("deleted")

	if err := repo.Update(context.Background(), c); err == nil {
		t.Error("Update() with invalid status should fail")
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	c := seedCustomer(t, repo, "Doomed", "doomed@example.com")

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestList_Pagination(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, n := range []string{"one", "two", "three"} {
		seedCustomer(t, repo, n, n+"@example.com")
	}

	page, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}

	rest, _, err := repo.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List() second page error = %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("second page size = %d, want 1", len(rest))
	}
}

func TestSearch_Keyword(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedCustomer(t, repo, "Alice Anderson", "alice@widgets.com")
	seedCustomer(t, repo, "Bob Brown", "bob@gadgets.com")

	// Name match, case-insensitive
	results, err := repo.Search(ctx, "alice")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].FullName != "Alice Anderson" {
		t.Errorf("Search(alice) = %v, want Alice Anderson", results)
	}

	// Email match
	results, err = repo.Search(ctx, "gadgets")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].FullName != "Bob Brown" {
		t.Errorf("Search(gadgets) = %v, want Bob Brown", results)
	}

	// No match returns empty slice, not nil
	results, err = repo.Search(ctx, "zzz-nothing")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Search(no match) = %v, want empty slice", results)
	}
}

func TestAdvancedSearch(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := seedCustomer(t, repo, "Carol Clark", "carol@example.com")
	seedCustomer(t, repo, "Dave Davis", "dave@example.com")

	a.Status = StatusSuspended
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := []struct {
		name   string
		filter SearchFilter
		want   int
	}{
		{"by name", SearchFilter{FullName: "carol"}, 1},
		{"by email", SearchFilter{Email: "dave@"}, 1},
		{"by status", SearchFilter{Status: StatusSuspended}, 1},
		{"combined no match", SearchFilter{FullName: "carol", Status: StatusActive}, 0},
		{"combined match", SearchFilter{FullName: "carol", Status: StatusSuspended}, 1},
		{"empty filter returns all", SearchFilter{}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.AdvancedSearch(ctx, tt.filter)
			if err != nil {
				t.Fatalf("AdvancedSearch() error = %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("AdvancedSearch() = %d results, want %d", len(results), tt.want)
			}
		})
	}
}
