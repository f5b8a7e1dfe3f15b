package store

import (
	"database/sql"
	"fmt"

	"github.com/wrenfield/polarkit/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

// ReplaceAll swaps the cached catalog for the given snapshot in one
// transaction, so readers never observe a half-synced catalog.
func (s *ProductStore) ReplaceAll(products []*model.Product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM product_prices`); err != nil {
		return fmt.Errorf("clear prices: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	for _, p := range products {
		recurring := 0
		if p.IsRecurring {
			recurring = 1
		}
		_, err := tx.Exec(
			`INSERT INTO products (id, name, description, is_recurring, recurring_interval) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, recurring, p.RecurringInterval,
		)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", p.ID, err)
		}
		for i, price := range p.Prices {
			_, err := tx.Exec(
				`INSERT INTO product_prices (id, product_id, amount, currency, recurring_interval, position) VALUES (?, ?, ?, ?, ?, ?)`,
				price.ID, p.ID, price.Amount, price.Currency, price.RecurringInterval, i,
			)
			if err != nil {
				return fmt.Errorf("insert price %s: %w", price.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	return nil
}

// Upsert refreshes a single product, keeping the rest of the catalog.
// Used by the product lifecycle webhook.
func (s *ProductStore) Upsert(p *model.Product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin product upsert: %w", err)
	}
	defer tx.Rollback()

	recurring := 0
	if p.IsRecurring {
		recurring = 1
	}
	_, err = tx.Exec(
		`INSERT INTO products (id, name, description, is_recurring, recurring_interval)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   is_recurring = excluded.is_recurring,
		   recurring_interval = excluded.recurring_interval,
		   synced_at = CURRENT_TIMESTAMP`,
		p.ID, p.Name, p.Description, recurring, p.RecurringInterval,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM product_prices WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear product prices: %w", err)
	}
	for i, price := range p.Prices {
		_, err := tx.Exec(
			`INSERT INTO product_prices (id, product_id, amount, currency, recurring_interval, position) VALUES (?, ?, ?, ?, ?, ?)`,
			price.ID, p.ID, price.Amount, price.Currency, price.RecurringInterval, i,
		)
		if err != nil {
			return fmt.Errorf("insert price %s: %w", price.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit product upsert: %w", err)
	}
	return nil
}

func (s *ProductStore) GetByID(id string) (*model.Product, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, is_recurring, recurring_interval, synced_at FROM products WHERE id = ?`,
		id,
	)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := s.attachPrices(p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the full cached catalog with prices in list order.
func (s *ProductStore) List() ([]*model.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, is_recurring, recurring_interval, synced_at FROM products ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	for _, p := range products {
		if err := s.attachPrices(p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var recurring int
	var interval sql.NullString
	err := scanner.Scan(&p.ID, &p.Name, &p.Description, &recurring, &interval, &p.SyncedAt)
	if err != nil {
		return nil, err
	}
	p.IsRecurring = recurring != 0
	if interval.Valid {
		p.RecurringInterval = &interval.String
	}
	return &p, nil
}

func (s *ProductStore) attachPrices(p *model.Product) error {
	rows, err := s.db.Query(
		`SELECT id, amount, currency, recurring_interval FROM product_prices WHERE product_id = ? ORDER BY position`,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var price model.Price
		var interval sql.NullString
		if err := rows.Scan(&price.ID, &price.Amount, &price.Currency, &interval); err != nil {
			return fmt.Errorf("scan price: %w", err)
		}
		if interval.Valid {
			price.RecurringInterval = &interval.String
		}
		p.Prices = append(p.Prices, price)
	}
	return rows.Err()
}
