package repository

import (
	"github.com/FeWoHub/fewohub/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.HostSubscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByHostID(hostID uint) (*models.HostSubscription, error) {
	var sub models.HostSubscription
	if err := r.db.Where("host_id = ?", hostID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(providerSubID string) (*models.HostSubscription, error) {
	var sub models.HostSubscription
	if err := r.db.Where("provider_subscription_id = ?", providerSubID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByProviderCustomerID(providerCustomerID string) (*models.HostSubscription, error) {
	var sub models.HostSubscription
	if err := r.db.Where("provider_customer_id = ?", providerCustomerID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(sub *models.HostSubscription) error {
	return r.db.Save(sub).Error
}

func (r *subscriptionRepository) DeleteByProviderCustomerID(providerCustomerID string) error {
	return r.db.Where("provider_customer_id = ?", providerCustomerID).
		Delete(&models.HostSubscription{}).Error
}
