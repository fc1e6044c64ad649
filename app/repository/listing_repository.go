package repository

import (
	"time"

	"github.com/FeWoHub/fewohub/app/models"
	"gorm.io/gorm"
)

// listingRepository implements the ListingRepository interface
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) GetByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) ListByHostID(hostID uint) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.Where("host_id = ?", hostID).Order("id").Find(&listings).Error
	return listings, err
}

func (r *listingRepository) Update(listing *models.Listing) error {
	return r.db.Save(listing).Error
}

func (r *listingRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Listing{}).Where("id = ?", id).
		Update("status", status).Error
}

// UpdateSlotProjection writes the denormalized slot fields in one statement.
// Passing nil pointers clears the projection (listing no longer has a slot).
func (r *listingRepository) UpdateSlotProjection(id uint, activeSlotID *uint, expiresAt *time.Time, doNotRenew, pastDue bool) error {
	return r.db.Model(&models.Listing{}).Where("id = ?", id).Updates(map[string]interface{}{
		"active_slot_id":    activeSlotID,
		"slot_expires_at":   expiresAt,
		"slot_do_not_renew": doNotRenew,
		"slot_past_due":     pastDue,
	}).Error
}
