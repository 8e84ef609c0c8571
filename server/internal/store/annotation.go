package store

import (
	"gorm.io/gorm"
)

// Annotation models a comment anchored to a token range of a
// visualization.
type Annotation struct {
	gorm.Model

	VisualizationID uint `gorm:"index"`
	UserID          uint `gorm:"index"`
	User            User

	Content string

	StartToken int
	EndToken   int
}

// CreateAnnotation creates a new annotation.
func (s *S) CreateAnnotation(a *Annotation) error {
	return s.db.Create(a).Error
}

// GetAnnotationByID gets an annotation by ID with its author.
func (s *S) GetAnnotationByID(id uint) (*Annotation, error) {
	var a Annotation
	if err := s.db.Preload("User").First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnnotationsByVisualizationID lists the annotations of a
// visualization with their authors, oldest first.
func (s *S) ListAnnotationsByVisualizationID(vizID uint) ([]*Annotation, error) {
	var as []*Annotation
	if err := s.db.Preload("User").Where("visualization_id = ?", vizID).Order("created_at ASC, id ASC").Find(&as).Error; err != nil {
		return nil, err
	}
	return as, nil
}

// UpdateAnnotationContent updates the content of an annotation.
func (s *S) UpdateAnnotationContent(id uint, content string) error {
	res := s.db.Model(&Annotation{}).
		Where("id = ?", id).
		Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAnnotation deletes the annotation of the ID.
func (s *S) DeleteAnnotation(id uint) error {
	res := s.db.Unscoped().Where("id = ?", id).Delete(&Annotation{})
	if err := res.Error; err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
