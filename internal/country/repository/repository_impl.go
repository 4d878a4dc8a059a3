package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nomadlabs/atlas/internal/country/domain"
	pkgdb "github.com/nomadlabs/atlas/pkg/db"
	"github.com/nomadlabs/atlas/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, country *domain.Country) (*domain.Country, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Country
		err := tx.Where("LOWER(name) = LOWER(?)", country.Name).First(&existing).Error
		switch {
		case err == nil:
			// Keep the stored identity, overwrite everything else.
			country.ID = existing.ID
			country.CreatedAt = existing.CreatedAt
			return tx.Model(&domain.Country{}).Where("id = ?", existing.ID).
				Select("*").Omit("id", "created_at").Updates(country).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			createErr := tx.Create(country).Error
			if createErr != nil && pkgdb.IsDuplicateKeyErr(createErr) {
				// A concurrent cycle inserted this name between the lookup
				// and the create. Last writer wins: overwrite that row.
				var winner domain.Country
				if err := tx.Where("LOWER(name) = LOWER(?)", country.Name).First(&winner).Error; err != nil {
					return createErr
				}
				country.ID = winner.ID
				country.CreatedAt = winner.CreatedAt
				return tx.Model(&domain.Country{}).Where("id = ?", winner.ID).
					Select("*").Omit("id", "created_at").Updates(country).Error
			}
			return createErr
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return country, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Country, error) {
	var country domain.Country
	err := db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&country).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &country, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Country, error) {
	var countries []*domain.Country
	stmt := db.WithContext(ctx).Model(&domain.Country{})
	if filter.Region != "" {
		stmt = stmt.Where("region = ?", filter.Region)
	}
	if filter.CurrencyCode != "" {
		stmt = stmt.Where("UPPER(currency_code) = UPPER(?)", filter.CurrencyCode)
	}

	switch filter.Sort {
	case domain.SortEstimatedGDPDesc:
		// NULL estimates sink to the bottom regardless of dialect default.
		stmt = stmt.Order("estimated_gdp IS NULL").Order("estimated_gdp DESC")
	case domain.SortNameAsc:
		stmt = stmt.Order("LOWER(name) ASC")
	}

	if page.PageSize > 0 {
		offset := 0
		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err != nil {
				return nil, domain.ErrInvalidPageToken
			}
			offset = cursor.Offset
		}
		// Fetch one extra row so the caller can detect another page.
		stmt = stmt.Offset(offset).Limit(page.PageSize + 1)
	}

	if err := stmt.Find(&countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}

func (r *repo) DeleteByName(ctx context.Context, db *gorm.DB, name string) (bool, error) {
	result := db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		Delete(&domain.Country{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Country{}).Count(&count).Error
	return count, err
}

func (r *repo) MaxLastRefreshedAt(ctx context.Context, db *gorm.DB) (*time.Time, error) {
	// Read the newest row instead of a raw MAX() aggregate so the
	// timestamp goes through gorm's field deserialization. sqlite
	// stores timestamps as TEXT and an aggregate column loses the
	// type information the driver needs to scan into time.Time.
	var country domain.Country
	err := db.WithContext(ctx).Model(&domain.Country{}).
		Order("last_refreshed_at DESC").
		Limit(1).
		First(&country).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &country.LastRefreshedAt, nil
}

func (r *repo) TopByEstimatedGDP(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Country, error) {
	var countries []*domain.Country
	err := db.WithContext(ctx).Model(&domain.Country{}).
		Where("estimated_gdp IS NOT NULL").
		Order("estimated_gdp DESC").
		Limit(limit).
		Find(&countries).Error
	if err != nil {
		return nil, err
	}
	return countries, nil
}
