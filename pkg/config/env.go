package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"
	EnvCORS     = "STOREFRONT_CORS_ORIGINS"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvUseSQLite   = "STOREFRONT_USE_SQLITE"
	EnvAutoMigrate = "STOREFRONT_AUTO_MIGRATE"

	EnvCheckoutCurrency   = "STOREFRONT_CHECKOUT_CURRENCY"
	EnvCheckoutDefaultVAT = "STOREFRONT_CHECKOUT_DEFAULT_VAT_PERCENT"
	EnvCheckoutDueDays    = "STOREFRONT_CHECKOUT_INVOICE_DUE_DAYS"
	EnvCartStockPolicy    = "STOREFRONT_CART_STOCK_POLICY"

	StockPolicyCreditLine = "credit_line"
	StockPolicyStrict     = "strict"

	defaultSQLiteDSN = "file:storefront.db?cache=shared&_foreign_keys=on"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
