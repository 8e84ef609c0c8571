package store

import (
	"gorm.io/gorm"
)

// User models a registered user.
type User struct {
	gorm.Model

	Username string `gorm:"uniqueIndex"`
	Email    string

	// HashedPassword is the encoded Argon2id hash.
	HashedPassword string
}

// CreateUser creates a new user.
func (s *S) CreateUser(u *User) error {
	return s.db.Create(u).Error
}

// GetUserByID gets a user by ID.
func (s *S) GetUserByID(id uint) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername gets a user by username.
func (s *S) GetUserByUsername(username string) (*User, error) {
	var u User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
