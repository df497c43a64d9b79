package tables

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tablesidehq/tableside-backend/pkg/db"
	"github.com/tablesidehq/tableside-backend/pkg/db/models"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

type tableRepository interface {
	Create(ctx context.Context, table *models.DiningTable) error
	FindByID(ctx context.Context, id int64) (*models.DiningTable, error)
	FindByQRToken(ctx context.Context, token string) (*models.DiningTable, error)
	List(ctx context.Context) ([]models.DiningTable, error)
	Update(ctx context.Context, table *models.DiningTable) error
}

// CreateTableDTO carries the admin input for registering a table.
type CreateTableDTO struct {
	ID    int64  `json:"id" validate:"required,gt=0"`
	Label string `json:"label" validate:"required,max=64"`
}

// Service manages the QR-to-table registry.
type Service interface {
	ResolveQR(ctx context.Context, token string) (*models.DiningTable, error)
	Create(ctx context.Context, dto CreateTableDTO) (*models.DiningTable, error)
	List(ctx context.Context) ([]models.DiningTable, error)
	Deactivate(ctx context.Context, id int64) error
	RotateToken(ctx context.Context, id int64) (*models.DiningTable, error)
}

type service struct {
	repo tableRepository
	logg *logger.Logger
}

// NewService builds the dining table service.
func NewService(repo tableRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("table repository is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// ResolveQR maps a scanned QR token to its table. Unknown and deactivated
// tokens read the same to the guest.
func (s *service) ResolveQR(ctx context.Context, token string) (*models.DiningTable, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qr token is required")
	}

	table, err := s.repo.FindByQRToken(ctx, token)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown table code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve qr token")
	}
	if !table.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown table code")
	}
	return table, nil
}

func (s *service) Create(ctx context.Context, dto CreateTableDTO) (*models.DiningTable, error) {
	if dto.ID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id must be positive")
	}
	if strings.TrimSpace(dto.Label) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}

	table := &models.DiningTable{
		ID:      dto.ID,
		Label:   strings.TrimSpace(dto.Label),
		QRToken: newToken(),
		Active:  true,
	}
	if err := s.repo.Create(ctx, table); err != nil {
		if db.IsUniqueViolation(err, "") || stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "table already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create table")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithTableID(ctx, table.ID), "tables.registered")
	}
	return table, nil
}

func (s *service) List(ctx context.Context) ([]models.DiningTable, error) {
	tables, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tables")
	}
	return tables, nil
}

// Deactivate retires a table. Its QR token stops resolving immediately.
func (s *service) Deactivate(ctx context.Context, id int64) error {
	table, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !table.Active {
		return nil
	}
	table.Active = false
	if err := s.repo.Update(ctx, table); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate table")
	}
	return nil
}

// RotateToken replaces the QR token, invalidating any printed codes.
func (s *service) RotateToken(ctx context.Context, id int64) (*models.DiningTable, error) {
	table, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	table.QRToken = newToken()
	rotated := time.Now().UTC()
	table.RotatedAt = &rotated
	if err := s.repo.Update(ctx, table); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate qr token")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithTableID(ctx, table.ID), "tables.token_rotated")
	}
	return table, nil
}

func (s *service) find(ctx context.Context, id int64) (*models.DiningTable, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id must be positive")
	}
	table, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load table")
	}
	return table, nil
}

func newToken() string {
	return uuid.NewString()
}
