package controllers

import (
	"strconv"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
	"github.com/FeWoHub/fewohub/internal/pkg/billing"
	"github.com/FeWoHub/fewohub/internal/pkg/entitlements"
	"github.com/FeWoHub/fewohub/internal/pkg/featureflag"
	"github.com/FeWoHub/fewohub/internal/pkg/jobqueue"
	"github.com/FeWoHub/fewohub/internal/pkg/publisher"
)

var (
	entitlementEngine *entitlements.Engine
	listingPublisher  *publisher.Publisher
	billingSync       *billing.Synchronizer
	compensationFlag  *featureflag.Provider
)

// InitializeEntitlementServices wires the engine, publisher, synchronizer
// and job queue over the global repositories. Called once from the router
// setup.
func InitializeEntitlementServices() {
	repos := repository.GetGlobalRepositories()

	compensationFlag = featureflag.NewProvider(repos.Setting, featureflag.DefaultTTL)

	commissionLimit := entitlements.DefaultCommissionSlotLimit
	if raw, err := repos.Setting.GetValue(models.SettingCommissionSlotLimit); err == nil {
		if v, parseErr := strconv.Atoi(raw); parseErr == nil && v > 0 {
			commissionLimit = v
		}
	}

	entitlementEngine = entitlements.NewEngine(repos, compensationFlag, commissionLimit)
	listingPublisher = publisher.NewPublisher(repos, entitlementEngine)
	billingSync = billing.NewSynchronizer(repos, entitlementEngine, billing.NewProviderClientFromEnv())

	jobqueue.InitManager(jobqueue.NewProcessors(billingSync, listingPublisher))
}

// GetEntitlementEngine exposes the shared engine instance.
func GetEntitlementEngine() *entitlements.Engine {
	if entitlementEngine == nil {
		InitializeEntitlementServices()
	}
	return entitlementEngine
}

// GetListingPublisher exposes the shared publisher instance.
func GetListingPublisher() *publisher.Publisher {
	if listingPublisher == nil {
		InitializeEntitlementServices()
	}
	return listingPublisher
}

// GetBillingSynchronizer exposes the shared synchronizer instance.
func GetBillingSynchronizer() *billing.Synchronizer {
	if billingSync == nil {
		InitializeEntitlementServices()
	}
	return billingSync
}
