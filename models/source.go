package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/greenloop/catalog_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Source is the tracking facet of a product: one external marketplace listing
// whose price and availability are refreshed by the sync pipeline. The
// affiliate tag doubles as the provider lookup key (an ASIN for Amazon).
type Source struct {
	ID           string              `gorm:"type:char(36);primary_key" json:"id"`
	ProductId    string              `gorm:"type:char(36);index" json:"product_id"`
	SourceName   string              `gorm:"index;size:50;not null" json:"source_name"`
	SourceUrl    string              `gorm:"size:2048;not null" json:"source_url"`
	AffiliateTag string              `gorm:"size:64" json:"affiliate_tag"`
	Price        decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"price"`
	Currency     string              `gorm:"size:3;default:'USD'" json:"currency"`
	Availability string              `gorm:"size:50;default:'in_stock'" json:"availability"`
	LastSynced   *time.Time          `json:"last_synced"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Source) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// GetSourcesByName returns every tracking facet for one provider class,
// e.g. "Amazon". Validation of lookup keys happens downstream.
func GetSourcesByName(ctx context.Context, sourceName string) ([]Source, error) {
	var sources []Source
	err := config.GetDB().WithContext(ctx).
		Where("source_name = ?", sourceName).
		Order("created_at").
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// UpdateSourceFields applies a partial update to one tracking facet.
func UpdateSourceFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	return config.GetDB().WithContext(ctx).
		Model(&Source{}).
		Where("id = ?", id).
		Updates(fields).Error
}
