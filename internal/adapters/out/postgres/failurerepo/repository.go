// Package failurerepo stores collaborator calls that failed after their transition
// committed, for the retry job.
package failurerepo

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FailureDTO struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	EventID      uuid.UUID  `gorm:"type:uuid;not null"`
	Collaborator string     `gorm:"size:32;not null"`
	Error        string     `gorm:"type:text"`
	Attempts     int        `gorm:"not null"`
	CreatedAt    time.Time  `gorm:"index;not null"`
	ResolvedAt   *time.Time `gorm:"index"`
}

func (FailureDTO) TableName() string {
	return "collaborator_failures"
}

// GormFailureRepository implements ports.FailureRepository. It always writes through
// the root connection, never through an order transaction.
type GormFailureRepository struct {
	db *gorm.DB
}

func NewGormFailureRepository(db *gorm.DB) *GormFailureRepository {
	return &GormFailureRepository{db: db}
}

func (r *GormFailureRepository) Add(ctx context.Context, f ports.CollaboratorFailure) error {
	id := f.ID
	if id.IsZero() {
		id = kernel.NewUUID()
	}
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	dto := FailureDTO{
		ID:           id.Bytes(),
		OrderID:      f.OrderID.Bytes(),
		EventID:      f.EventID.Bytes(),
		Collaborator: f.Collaborator,
		Error:        f.Error,
		Attempts:     f.Attempts,
		CreatedAt:    createdAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&dto).Error
}

func (r *GormFailureRepository) GetUnresolved(
	ctx context.Context,
	maxAttempts int,
	limit int,
) ([]ports.CollaboratorFailure, error) {
	var dtos []FailureDTO
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL AND attempts < ?", maxAttempts).
		Order("created_at").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	failures := make([]ports.CollaboratorFailure, 0, len(dtos))
	for _, dto := range dtos {
		f, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, nil
}

func (r *GormFailureRepository) RecordAttempt(ctx context.Context, id kernel.UUID, errMsg string) error {
	result := r.db.WithContext(ctx).
		Model(&FailureDTO{}).
		Where("id = ?", id.Bytes()).
		Updates(map[string]any{
			"attempts": gorm.Expr("attempts + 1"),
			"error":    errMsg,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("collaborator failure", id.String())
	}
	return nil
}

func (r *GormFailureRepository) MarkResolved(ctx context.Context, id kernel.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&FailureDTO{}).
		Where("id = ?", id.Bytes()).
		Update("resolved_at", at.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("collaborator failure", id.String())
	}
	return nil
}

func toDomain(dto FailureDTO) (ports.CollaboratorFailure, error) {
	id, err := kernel.UUIDFrom(dto.ID)
	if err != nil {
		return ports.CollaboratorFailure{}, err
	}
	orderID, err := kernel.UUIDFrom(dto.OrderID)
	if err != nil {
		return ports.CollaboratorFailure{}, err
	}
	eventID, err := kernel.UUIDFrom(dto.EventID)
	if err != nil {
		return ports.CollaboratorFailure{}, err
	}
	return ports.CollaboratorFailure{
		ID:           id,
		OrderID:      orderID,
		EventID:      eventID,
		Collaborator: dto.Collaborator,
		Error:        dto.Error,
		Attempts:     dto.Attempts,
		CreatedAt:    dto.CreatedAt,
		ResolvedAt:   dto.ResolvedAt,
	}, nil
}

var _ ports.FailureRepository = (*GormFailureRepository)(nil)
