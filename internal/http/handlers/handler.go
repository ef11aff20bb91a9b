package handlers

import (
	"aroma-order-service/internal/config"
	"aroma-order-service/internal/payments"
	"aroma-order-service/internal/services"
	"aroma-order-service/internal/storage"

	"go.uber.org/zap"
)

// Handler serves the public and admin HTTP API. Payments and Uploads are nil
// when Stripe or the object store are not configured.
type Handler struct {
	Catalog   *services.Catalog
	Orders    *services.Orders
	Tables    *services.Tables
	Settings  *services.Settings
	Analytics *services.Analytics
	Payments  payments.IntentCreator
	Uploads   storage.Uploader
	Logger    *zap.Logger
	Config    config.Config
}
