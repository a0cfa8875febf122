package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contactbook/backend/internal/db"
	"github.com/contactbook/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Name, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// PostgresContactRepository provides PostgreSQL-backed persistence for contacts.
type PostgresContactRepository struct {
	pool db.Pool
}

// NewPostgresContactRepository constructs a contact repository backed by PostgreSQL.
func NewPostgresContactRepository(pool db.Pool) *PostgresContactRepository {
	return &PostgresContactRepository{pool: pool}
}

// Create persists a new contact record.
func (r *PostgresContactRepository) Create(ctx context.Context, contact models.Contact) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO contacts (id, owner_id, name, phone, email, photo, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, contact.ID, contact.OwnerID, contact.Name, contact.Phone,
		nullable(contact.Email), nullable(contact.Photo), contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert contact: %w", err)
	}

	return nil
}

// FindByID fetches a contact scoped to its owner.
func (r *PostgresContactRepository) FindByID(ctx context.Context, ownerID, id string) (models.Contact, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Contact{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, name, phone, email, photo, created_at, updated_at
        FROM contacts
        WHERE owner_id = $1 AND id = $2
    `, ownerID, id)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contact{}, ErrNotFound
		}
		return models.Contact{}, fmt.Errorf("select contact: %w", err)
	}

	return contact, nil
}

// Update persists all mutable fields of an existing contact. The owner id is
// part of the predicate, never the update set.
func (r *PostgresContactRepository) Update(ctx context.Context, contact models.Contact) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE contacts
        SET name = $3, phone = $4, email = $5, photo = $6, updated_at = $7
        WHERE owner_id = $1 AND id = $2
    `, contact.OwnerID, contact.ID, contact.Name, contact.Phone,
		nullable(contact.Email), nullable(contact.Photo), contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a contact scoped to its owner.
func (r *PostgresContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM contacts
        WHERE owner_id = $1 AND id = $2
    `, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns one page of an owner's contacts matching the filter, ordered
// by name then id, along with the total match count.
func (r *PostgresContactRepository) List(ctx context.Context, ownerID string, filter ContactFilter) ([]models.Contact, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where, args := contactPredicate(ownerID, filter)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	query := `
        SELECT id, owner_id, name, phone, email, photo, created_at, updated_at
        FROM contacts
        WHERE ` + where + `
        ORDER BY name ASC, id ASC
        LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate contacts: %w", err)
	}

	return contacts, total, nil
}

func contactPredicate(ownerID string, filter ContactFilter) (string, []any) {
	where := "owner_id = $1"
	args := []any{ownerID}

	if filter.Query == "" {
		return where, args
	}

	args = append(args, "%"+filter.Query+"%")
	cond := fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d", len(args), len(args))
	if filter.PhoneDigits != "" {
		args = append(args, "%"+filter.PhoneDigits+"%")
		cond += fmt.Sprintf(" OR phone LIKE $%d", len(args))
	}
	cond += ")"

	return where + " AND " + cond, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (models.Contact, error) {
	var (
		contact models.Contact
		email   sql.NullString
		photo   sql.NullString
	)

	if err := row.Scan(&contact.ID, &contact.OwnerID, &contact.Name, &contact.Phone,
		&email, &photo, &contact.CreatedAt, &contact.UpdatedAt); err != nil {
		return models.Contact{}, err
	}

	contact.Email = email.String
	contact.Photo = photo.String
	return contact, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: strings.TrimSpace(s) != ""}
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ContactRepository = (*PostgresContactRepository)(nil)
