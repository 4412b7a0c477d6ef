package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"auction-marketplace/internal/domain"
)

type MySQLCategoryRepository struct {
	db *sql.DB
}

func NewMySQLCategoryRepository(db *sql.DB) *MySQLCategoryRepository {
	return &MySQLCategoryRepository{db: db}
}

func (r *MySQLCategoryRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	query := `INSERT INTO categories (id, name) VALUES (?, ?)`
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query, category.ID, category.Name)
	return err
}

func (r *MySQLCategoryRepository) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT id, name FROM categories WHERE name = ?`

	var category domain.Category
	err := dbFromContext(ctx, r.db).QueryRowContext(ctx, query, name).Scan(&category.ID, &category.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
		}
		return nil, err
	}
	return &category, nil
}

func (r *MySQLCategoryRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	query := `SELECT id, name FROM categories ORDER BY name ASC`

	rows, err := dbFromContext(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}
	return categories, rows.Err()
}
