package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
)

const defaultSearchLimit = 100

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

// Create stores an email. The deterministic ID makes this idempotent: a
// reprocessed message is detected and silently skipped.
func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	existingEmail := &models.Email{}
	err := r.db.WithContext(ctx).
		Where("id = ?", email.ID).
		First(existingEmail).Error

	if err == nil {
		span.SetTag("duplicate", true)
		return nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return err
	}

	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}

// GetByID retrieves an email by its ID
func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// Search retrieves emails matching the given filters, newest first.
func (r *emailRepository) Search(ctx context.Context, filters interfaces.EmailSearchFilters) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Search")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.LogObjectAsJson(span, "filters", filters)

	query := r.db.WithContext(ctx).Model(&models.Email{})

	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("subject ILIKE ? OR from_address ILIKE ? OR body_text ILIKE ?", like, like, like)
	}
	if filters.AccountID != "" {
		query = query.Where("account_id = ?", filters.AccountID)
	}
	if filters.Folder != "" {
		query = query.Where("folder = ?", filters.Folder)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.IsRead != nil {
		query = query.Where("is_read = ?", *filters.IsRead)
	}
	if filters.DateFrom != nil {
		query = query.Where("sent_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("sent_at <= ?", *filters.DateTo)
	}

	limit := filters.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	var emails []*models.Email
	err := query.
		Order("sent_at DESC NULLS LAST").
		Limit(limit).
		Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}

// UpdateCategory sets the classification outcome on an email record.
func (r *emailRepository) UpdateCategory(ctx context.Context, id string, category enum.IntentCategory, source enum.ClassificationSource) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateCategory")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":        category,
			"category_source": source,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}
