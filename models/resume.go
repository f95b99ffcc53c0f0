package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resume stores an uploaded resume file and the raw text extracted from it.
type Resume struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	FileName string `gorm:"size:255;not null" json:"file_name"`
	MimeType string `gorm:"size:100;not null" json:"mime_type"`
	Size     int64  `json:"size"`
	RawText  string `gorm:"type:text" json:"raw_text,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Profile *ResumeProfile `gorm:"foreignKey:ResumeID" json:"profile,omitempty"`
}

func (r *Resume) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ResumeProfile stores the AI-extracted personal info for a resume. One
// profile per resume; re-running the analysis overwrites it.
type ResumeProfile struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	ResumeID string `gorm:"type:uuid;not null;uniqueIndex" json:"resume_id"`

	FullName string `gorm:"size:255" json:"full_name,omitempty"`
	Email    string `gorm:"size:255" json:"email,omitempty"`
	Phone    string `gorm:"size:50" json:"phone,omitempty"`
	Location string `gorm:"size:255" json:"location,omitempty"`
	Headline string `gorm:"size:500" json:"headline,omitempty"`
	Summary  string `gorm:"type:text" json:"summary,omitempty"`
	Skills   string `gorm:"type:text" json:"skills,omitempty"` // JSON array of skill strings

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Resume Resume `gorm:"foreignKey:ResumeID" json:"resume,omitempty"`
}

func (p *ResumeProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
