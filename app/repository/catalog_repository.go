package repository

import (
	"github.com/FeWoHub/fewohub/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// catalogRepository implements the CatalogRepository interface
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository instance
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) UpsertPlan(plan *models.BillingPlan) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"token_count",
			"active",
			"updated_at",
		}),
	}).Create(plan).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("provider_product_id = ?", plan.ProviderProductID).
		First(plan).Error
}

func (r *catalogRepository) UpsertPrice(price *models.BillingPrice) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_price_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_product_id",
			"billing_period",
			"active",
			"updated_at",
		}),
	}).Create(price).Error; err != nil {
		return err
	}

	return r.db.Where("provider_price_id = ?", price.ProviderPriceID).
		First(price).Error
}

func (r *catalogRepository) GetPlanByProductID(providerProductID string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.Where("provider_product_id = ?", providerProductID).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *catalogRepository) GetPriceByPriceID(providerPriceID string) (*models.BillingPrice, error) {
	var price models.BillingPrice
	if err := r.db.Where("provider_price_id = ?", providerPriceID).First(&price).Error; err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *catalogRepository) DeactivatePlan(providerProductID string) error {
	return r.db.Model(&models.BillingPlan{}).
		Where("provider_product_id = ?", providerProductID).
		Update("active", false).Error
}

func (r *catalogRepository) DeactivatePrice(providerPriceID string) error {
	return r.db.Model(&models.BillingPrice{}).
		Where("provider_price_id = ?", providerPriceID).
		Update("active", false).Error
}
