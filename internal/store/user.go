package store

import (
	"database/sql"
	"fmt"

	"github.com/wrenfield/polarkit/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var customerID sql.NullString
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &customerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		u.PolarCustomerID = &customerID.String
	}
	return &u, nil
}

const userCols = `id, email, name, polar_customer_id, created_at, updated_at`

func (s *UserStore) Create(email, name string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name) VALUES (?, ?)`,
		email, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail resolves a user by exact email match. Returns nil, nil when no
// user exists for the address.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdatePolarCustomerID(id int64, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE users SET polar_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("update polar customer id: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
