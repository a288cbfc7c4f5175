package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MembershipStore holds User records.
type MembershipStore struct {
	db *Database
}

// NewMembershipStore creates a MembershipStore backed by the given database.
func NewMembershipStore(db *Database) *MembershipStore {
	return &MembershipStore{db: db}
}

const userColumns = `id, username, password_hash, role, email, phone, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create registers a new user with a bcrypt-hashed password.
func (s *MembershipStore) Create(u *User, password string) (int64, error) {
	if strings.TrimSpace(u.Username) == "" {
		return 0, fmt.Errorf("username is required: %w", ErrInvalidRange)
	}
	if password == "" {
		return 0, fmt.Errorf("password is required: %w", ErrInvalidRange)
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if u.Role != RoleAdmin && u.Role != RoleMember {
		return 0, fmt.Errorf("role %q: %w", u.Role, ErrInvalidRange)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.db.Exec(`INSERT INTO users (username, password_hash, role, email, phone)
        VALUES (?, ?, ?, ?, ?)`,
		u.Username, string(hash), u.Role, u.Email, u.Phone)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("username %q is already taken", u.Username)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	u.PasswordHash = string(hash)
	return id, nil
}

// GetByID fetches a single user by id.
func (s *MembershipStore) GetByID(id int64) (*User, error) {
	u, err := scanUser(s.db.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByUsername fetches a single user by username.
func (s *MembershipStore) GetByUsername(username string) (*User, error) {
	u, err := scanUser(s.db.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username=?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// List returns all users ordered by username.
func (s *MembershipStore) List() ([]*User, error) {
	return s.queryUsers(`SELECT ` + userColumns + ` FROM users ORDER BY username`)
}

// Search matches the term against username and email.
func (s *MembershipStore) Search(term string) ([]*User, error) {
	pattern := "%" + term + "%"
	return s.queryUsers(`SELECT `+userColumns+` FROM users
        WHERE username LIKE ? OR email LIKE ? ORDER BY username`, pattern, pattern)
}

func (s *MembershipStore) queryUsers(query string, args ...any) ([]*User, error) {
	rows, err := s.db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update rewrites a user's profile fields. The password is changed
// through SetPassword only.
func (s *MembershipStore) Update(u *User) error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required: %w", ErrInvalidRange)
	}
	if u.Role != RoleAdmin && u.Role != RoleMember {
		return fmt.Errorf("role %q: %w", u.Role, ErrInvalidRange)
	}
	res, err := s.db.db.Exec(`UPDATE users
        SET username=?, role=?, email=?, phone=?, updated_at=CURRENT_TIMESTAMP
        WHERE id=?`,
		u.Username, u.Role, u.Email, u.Phone, u.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("username %q is already taken", u.Username)
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a user. Users holding ISSUED or OVERDUE loans cannot be
// deleted; the check runs inside the delete transaction so no loan can
// be issued in the gap between the check and the delete.
func (s *MembershipStore) Delete(id int64) error {
	tx, err := s.db.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	active, err := countActiveLoans(tx, `user_id`, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("user %d has %d outstanding loans: %w", id, active, ErrHasActiveLoans)
	}

	res, err := tx.Exec(`DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// UsernameExists reports whether a username is taken.
func (s *MembershipStore) UsernameExists(username string) (bool, error) {
	var exists bool
	err := s.db.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE username=?)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords both come back as ErrNotFound so callers cannot tell
// which half failed.
func (s *MembershipStore) Authenticate(username, password string) (*User, error) {
	u, err := s.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, nil
}

// SetPassword replaces a user's credential.
func (s *MembershipStore) SetPassword(id int64, password string) error {
	if password == "" {
		return fmt.Errorf("password is required: %w", ErrInvalidRange)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := s.db.db.Exec(`UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		string(hash), id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}
