package tables

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tablesidehq/tableside-backend/pkg/db/models"
)

// Repository handles dining table persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to dining table operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new dining table row.
func (r *Repository) Create(ctx context.Context, table *models.DiningTable) error {
	if table == nil {
		return fmt.Errorf("table is required")
	}
	return r.db.WithContext(ctx).Create(table).Error
}

// FindByID loads a dining table by the backend table id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// FindByQRToken loads a dining table by its QR token.
func (r *Repository) FindByQRToken(ctx context.Context, token string) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.WithContext(ctx).Where("qr_token = ?", token).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// List returns all dining tables ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.DiningTable, error) {
	var tables []models.DiningTable
	if err := r.db.WithContext(ctx).Order("id").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// Update saves the provided dining table.
func (r *Repository) Update(ctx context.Context, table *models.DiningTable) error {
	if table == nil {
		return fmt.Errorf("table is required")
	}
	return r.db.WithContext(ctx).Save(table).Error
}
