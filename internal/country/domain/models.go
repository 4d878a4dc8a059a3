package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Country is the current snapshot for one country. Identity is the name,
// compared case-insensitively; a refresh overwrites every field in place.
type Country struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Name            string       `gorm:"not null;index" json:"name"`
	Capital         *string      `json:"capital,omitempty"`
	Region          *string      `gorm:"index" json:"region,omitempty"`
	Population      int64        `gorm:"not null;default:0" json:"population"`
	CurrencyCode    *string      `gorm:"size:10;index" json:"currency_code"`
	ExchangeRate    *float64     `json:"exchange_rate"`
	EstimatedGDP    *float64     `gorm:"column:estimated_gdp" json:"estimated_gdp"`
	FlagURL         *string      `json:"flag_url,omitempty"`
	LastRefreshedAt time.Time    `gorm:"not null" json:"last_refreshed_at"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Country) TableName() string {
	return "countries"
}
