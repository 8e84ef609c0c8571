package store

import (
	"strings"

	"gorm.io/gorm"
)

// Visualization models a persisted attention visualization.
type Visualization struct {
	gorm.Model

	// ShareToken is the public identifier in the shareable URL.
	ShareToken string `gorm:"uniqueIndex"`

	ModelName string `gorm:"index"`
	InputText string
	ViewType  string

	// Tokens is a marshaled JSON array of the token strings.
	Tokens []byte

	// Attentions is the marshaled attention weights, indexed
	// [layer][head][from][to]. Kept for export.
	Attentions []byte

	// HTML is the rendered visualization document.
	HTML string

	// UserID is the owner, when the visualization was created by an
	// authenticated user.
	UserID *uint `gorm:"index"`
}

// CreateVisualization creates a new visualization.
func (s *S) CreateVisualization(v *Visualization) error {
	return s.db.Create(v).Error
}

// GetVisualizationByID gets a visualization by its ID.
func (s *S) GetVisualizationByID(id uint) (*Visualization, error) {
	var v Visualization
	if err := s.db.First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVisualizationByShareToken gets a visualization by its share token.
func (s *S) GetVisualizationByShareToken(token string) (*Visualization, error) {
	var v Visualization
	if err := s.db.Where("share_token = ?", token).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVisualizations lists visualizations, newest first, optionally
// filtered by a case-insensitive substring match on the model name or
// input text. It returns the page and the total number of matches.
func (s *S) ListVisualizations(query string, offset, limit int) ([]*Visualization, int64, error) {
	q := s.db.Model(&Visualization{})
	if query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(model_name) LIKE ? OR LOWER(input_text) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vs []*Visualization
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&vs).Error; err != nil {
		return nil, 0, err
	}
	return vs, total, nil
}
