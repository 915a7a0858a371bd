package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/greenloop/catalog_backend/config"
	"gorm.io/gorm"
)

type Product struct {
	ID           string     `gorm:"type:char(36);primary_key" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Slug         string     `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Barcode      string     `gorm:"uniqueIndex;size:64" json:"barcode"`
	Description  string     `gorm:"type:text" json:"description"`
	ImageUrl     string     `gorm:"size:2048" json:"image_url"`
	PlasticScore *int       `json:"plastic_score"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func GetProductById(ctx context.Context, id string) (*Product, error) {
	var product Product
	err := config.GetDB().WithContext(ctx).
		Where("id = ?", id).
		Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProductFields applies a partial update to one product. Callers pass
// only the columns that should change; updated_at is always bumped.
func UpdateProductFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	return config.GetDB().WithContext(ctx).
		Model(&Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}
