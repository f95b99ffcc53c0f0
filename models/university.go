package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// University represents a higher-education institution imported from an
// external directory (dges, eduportugal) or created manually by the admin.
// Imported rows are keyed by (source, source_key) so re-running a sync
// updates instead of duplicating.
type University struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Source    string `gorm:"size:50;not null;default:'manual';uniqueIndex:idx_universities_source_key" json:"source"`
	SourceKey string `gorm:"size:100;not null;uniqueIndex:idx_universities_source_key" json:"source_key"`
	Name      string `gorm:"not null" json:"name"`
	Type      string `gorm:"size:50" json:"type,omitempty"` // publica_universitario, privada_politecnico, ...
	Country   string `gorm:"size:50;default:'Portugal';index" json:"country"`
	Region    string `gorm:"size:100;index" json:"region,omitempty"`
	City      string `gorm:"size:100" json:"city,omitempty"`
	Website   string `gorm:"size:500" json:"website,omitempty"`
	SourceURL string `gorm:"size:500" json:"source_url,omitempty"`

	// Enrichment fields, filled by the enricher (HTML parsing first, AI fallback)
	LogoURL      string     `gorm:"size:500" json:"logo_url,omitempty"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	ContactEmail string     `gorm:"size:255" json:"contact_email,omitempty"`
	ContactPhone string     `gorm:"size:50" json:"contact_phone,omitempty"`
	InstagramURL string     `gorm:"size:500" json:"instagram_url,omitempty"`
	LinkedInURL  string     `gorm:"size:500" json:"linkedin_url,omitempty"`
	FacebookURL  string     `gorm:"size:500" json:"facebook_url,omitempty"`
	TwitterURL   string     `gorm:"size:500" json:"twitter_url,omitempty"`
	YouTubeURL   string     `gorm:"size:500" json:"youtube_url,omitempty"`
	EnrichedAt   *time.Time `json:"enriched_at,omitempty"`
	EnrichAIUsed bool       `gorm:"default:false" json:"enrich_ai_used"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Courses []Course `gorm:"foreignKey:UniversityID" json:"courses,omitempty"`
}

func (u *University) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Course represents a single course offered by a university.
type Course struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	UniversityID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_courses_university_key" json:"university_id"`
	Source       string `gorm:"size:50;not null;default:'manual'" json:"source"`
	SourceKey    string `gorm:"size:100;not null;uniqueIndex:idx_courses_university_key" json:"source_key"`
	Name         string `gorm:"not null" json:"name"`
	Level        string `gorm:"size:50;index" json:"level,omitempty"` // licenciatura, mestrado, doutorado, mba, ...
	Field        string `gorm:"size:100" json:"field,omitempty"`
	Duration     string `gorm:"size:50" json:"duration,omitempty"`
	Vacancies    int    `json:"vacancies,omitempty"`
	SourceURL    string `gorm:"size:500" json:"source_url,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	University University `gorm:"foreignKey:UniversityID" json:"university,omitempty"`
}

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
