package auth

import (
	"errors"
	"fmt"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// Credential administration failures.
var (
	ErrDuplicateAccess  = errors.New("auth: access key already exists")
	ErrUnknownComponent = errors.New("auth: unknown component")
)

// KeyListing is one row of the credential list. The secret is never
// included.
type KeyListing struct {
	Access    string `json:"access"`
	Component string `json:"component"`
	Cluster   string `json:"cluster"`
}

// CreateKey stores a new credential bound to a component.
func CreateKey(db *gorm.DB, access, secret, component string) error {
	var count int64
	if err := db.Model(&models.Component{}).Where("id = ?", component).Count(&count).Error; err != nil {
		return fmt.Errorf("auth: component lookup: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}
	key := models.APIKey{Access: access, Secret: secret, Component: component}
	if err := db.Create(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateAccess, access)
		}
		return fmt.Errorf("auth: create key %s: %w", access, err)
	}
	return nil
}

// DeleteKey removes a credential by access key.
func DeleteKey(db *gorm.DB, access string) error {
	if err := db.Delete(&models.APIKey{}, "access = ?", access).Error; err != nil {
		return fmt.Errorf("auth: delete key %s: %w", access, err)
	}
	return nil
}

// ListKeys returns all credentials with component and cluster display
// names, secrets omitted.
func ListKeys(db *gorm.DB) ([]KeyListing, error) {
	var rows []KeyListing
	err := db.Model(&models.APIKey{}).
		Select("apikeys.access, components.name AS component, clusters.name AS cluster").
		Joins("JOIN components ON components.id = apikeys.component").
		Joins("JOIN clusters ON clusters.id = components.cluster").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("auth: list keys: %w", err)
	}
	return rows, nil
}

// LastHeard returns the most recent lastused among a component's
// credentials, or nil if it has never been heard from.
func LastHeard(db *gorm.DB, component string) (*int64, error) {
	var keys []models.APIKey
	err := db.Where("component = ? AND lastused IS NOT NULL", component).
		Order("lastused DESC").Limit(1).Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("auth: lastheard for %s: %w", component, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return keys[0].LastUsed, nil
}
