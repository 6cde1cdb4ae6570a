package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// customerColumns is the select list shared by every customer query.
const customerColumns = "id, customer_code, full_name, email, phone, address, status, created_at, updated_at"

// Repository defines the interface for customer record persistence.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]Customer, int, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, keyword string) ([]Customer, error)
	AdvancedSearch(ctx context.Context, filter SearchFilter) ([]Customer, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed customer repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new customer record. ID and customer code are
// generated if empty; status defaults to active.
func (r *SQLiteRepository) Create(ctx context.Context, c *Customer) error {
	if c.ID == "" {
		c.ID = "cst-" + uuid.NewString()[:8]
	}
	if c.CustomerCode == "" {
		c.CustomerCode = "CUS-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if c.Status == "" {
		c.Status = StatusActive
	}

	now := time.Now().UTC().Format(time.RFC3339)
	c.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (id, customer_code, full_name, email, phone, address, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CustomerCode, c.FullName, c.Email,
		nullString(c.Phone), nullString(c.Address), string(c.Status),
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err)
		}
		return fmt.Errorf("creating customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Customer, error) {
	return r.getCustomer(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
}

// GetByCode retrieves a customer by its customer code.
func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	return r.getCustomer(ctx, "SELECT "+customerColumns+" FROM customers WHERE customer_code = ?", code)
}

// List returns a page of customers ordered by creation date, along with
// the total record count for pagination.
func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]Customer, int, error) {
	if limit <= 0 {
		limit = 50 //nolint:mnd // default page size
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting customers: %w", err)
	}

	customers, err := r.queryCustomers(ctx,
		"SELECT "+customerColumns+" FROM customers ORDER BY created_at ASC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Update modifies a customer's mutable fields. The customer code is
// immutable and not part of the UPDATE.
func (r *SQLiteRepository) Update(ctx context.Context, c *Customer) error {
	if !IsValidStatus(c.Status) {
		return fmt.Errorf("invalid status %q", c.Status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE customers SET full_name = ?, email = ?, phone = ?, address = ?, status = ?, updated_at = ? WHERE id = ?`,
		c.FullName, c.Email, nullString(c.Phone), nullString(c.Address), string(c.Status), now, c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err)
		}
		return fmt.Errorf("updating customer: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a customer record by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns customers whose name, email, or code contains the
// keyword (case-insensitive).
func (r *SQLiteRepository) Search(ctx context.Context, keyword string) ([]Customer, error) {
	pattern := "%" + keyword + "%"
	return r.queryCustomers(ctx,
		"SELECT "+customerColumns+` FROM customers
		 WHERE full_name LIKE ? COLLATE NOCASE
		    OR email LIKE ? COLLATE NOCASE
		    OR customer_code LIKE ? COLLATE NOCASE
		 ORDER BY full_name ASC`,
		pattern, pattern, pattern)
}

// AdvancedSearch filters customers on individual fields. Empty filter
// fields are skipped; an empty filter returns everything.
func (r *SQLiteRepository) AdvancedSearch(ctx context.Context, filter SearchFilter) ([]Customer, error) {
	var conditions []string
	var args []any

	if filter.FullName != "" {
		conditions = append(conditions, "full_name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.FullName+"%")
	}
	if filter.Email != "" {
		conditions = append(conditions, "email LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Email+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + customerColumns + " FROM customers"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY full_name ASC"

	return r.queryCustomers(ctx, query, args...)
}

// getCustomer executes a query and scans a single customer result.
func (r *SQLiteRepository) getCustomer(ctx context.Context, query string, args ...any) (*Customer, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanCustomerFrom(row)
}

// queryCustomers executes a query returning multiple customer rows.
func (r *SQLiteRepository) queryCustomers(ctx context.Context, query string, args ...any) ([]Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomerFrom(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customers: %w", err)
	}

	if customers == nil {
		customers = []Customer{}
	}
	return customers, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanCustomerFrom scans a customer from any scanner (Row or Rows).
func scanCustomerFrom(s scanner) (*Customer, error) {
	var c Customer
	var phone, address sql.NullString
	var status string
	var createdAt, updatedAt string

	err := s.Scan(&c.ID, &c.CustomerCode, &c.FullName, &c.Email,
		&phone, &address, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning customer: %w", err)
	}

	c.Status = Status(status)
	if phone.Valid {
		c.Phone = phone.String
	}
	if address.Valid {
		c.Address = address.String
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &c, nil
}

// Helper functions.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}

// uniqueViolationError maps a UNIQUE constraint failure to the sentinel
// for the offending column.
func uniqueViolationError(err error) error {
	if strings.Contains(err.Error(), "customers.email") {
		return ErrEmailInUse
	}
	return ErrCodeExists
}
