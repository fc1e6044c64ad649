package repository

import (
	"time"

	"github.com/FeWoHub/fewohub/app/models"
	"gorm.io/gorm"
)

// slotRepository implements the SlotRepository interface
type slotRepository struct {
	db *gorm.DB
}

// NewSlotRepository creates a new slot repository instance
func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) Create(slot *models.AdSlot) error {
	return r.db.Create(slot).Error
}

func (r *slotRepository) GetByID(id uint) (*models.AdSlot, error) {
	var slot models.AdSlot
	if err := r.db.First(&slot, id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepository) GetByListingID(listingID uint) (*models.AdSlot, error) {
	var slot models.AdSlot
	if err := r.db.Where("listing_id = ?", listingID).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepository) ListByHostID(hostID uint) ([]models.AdSlot, error) {
	var slots []models.AdSlot
	err := r.db.Where("host_id = ?", hostID).Order("id").Find(&slots).Error
	return slots, err
}

func (r *slotRepository) ListEmptyByHostID(hostID uint) ([]models.AdSlot, error) {
	var slots []models.AdSlot
	err := r.db.
		Where("host_id = ? AND ad_model = ? AND listing_id IS NULL", hostID, models.AdModelSubscription).
		Order("id").
		Find(&slots).Error
	return slots, err
}

func (r *slotRepository) ListExpiredBefore(now time.Time, limit int) ([]models.AdSlot, error) {
	var slots []models.AdSlot
	err := r.db.
		Where("ad_model = ? AND expires_at IS NOT NULL AND expires_at < ?", models.AdModelSubscription, now).
		Order("expires_at").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

func (r *slotRepository) ListImmediateExpiry(limit int) ([]models.AdSlot, error) {
	var slots []models.AdSlot
	err := r.db.
		Where("ad_model = ? AND expire_immediately = ?", models.AdModelSubscription, true).
		Order("id").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

func (r *slotRepository) CountAttachedSubscriptionSlots(hostID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.AdSlot{}).
		Where("host_id = ? AND ad_model = ? AND listing_id IS NOT NULL", hostID, models.AdModelSubscription).
		Count(&count).Error
	return count, err
}

func (r *slotRepository) CountCommissionSlots(hostID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.AdSlot{}).
		Where("host_id = ? AND ad_model = ?", hostID, models.AdModelCommission).
		Count(&count).Error
	return count, err
}

func (r *slotRepository) Update(slot *models.AdSlot) error {
	return r.db.Save(slot).Error
}

func (r *slotRepository) Delete(id uint) error {
	return r.db.Delete(&models.AdSlot{}, id).Error
}

func (r *slotRepository) DeleteEmptyByHostID(hostID uint) (int64, error) {
	tx := r.db.
		Where("host_id = ? AND ad_model = ? AND listing_id IS NULL", hostID, models.AdModelSubscription).
		Delete(&models.AdSlot{})
	return tx.RowsAffected, tx.Error
}

// AttachListingIfEmpty performs a conditional write keyed on "currently
// empty". Two racing publishes targeting the same slot both run this; the
// WHERE clause guarantees exactly one of them observes RowsAffected == 1.
func (r *slotRepository) AttachListingIfEmpty(slotID, hostID, listingID uint) (bool, error) {
	tx := r.db.Model(&models.AdSlot{}).
		Where("id = ? AND host_id = ? AND ad_model = ? AND listing_id IS NULL",
			slotID, hostID, models.AdModelSubscription).
		Update("listing_id", listingID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *slotRepository) SetPastDueByHostID(hostID uint, pastDue bool) (int64, error) {
	tx := r.db.Model(&models.AdSlot{}).
		Where("host_id = ? AND ad_model = ?", hostID, models.AdModelSubscription).
		Update("past_due", pastDue)
	return tx.RowsAffected, tx.Error
}

func (r *slotRepository) SetImmediateExpiryByHostID(hostID uint) (int64, error) {
	tx := r.db.Model(&models.AdSlot{}).
		Where("host_id = ? AND ad_model = ?", hostID, models.AdModelSubscription).
		Update("expire_immediately", true)
	return tx.RowsAffected, tx.Error
}
