package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and deploy tooling.
const (
	EnvAppEnv         = "PHARMALINE_APP_ENV"
	EnvPort           = "PHARMALINE_APP_PORT"
	EnvDataRoot       = "PHARMALINE_DATA_ROOT"
	EnvDataJSONPath   = "PHARMALINE_DATA_JSON_PATH"
	EnvCategoriesPath = "PHARMALINE_CATEGORIES_JSON_PATH"
	EnvImageRoot      = "PHARMALINE_IMAGE_ROOT"
	EnvPurgeRetention = "PHARMALINE_PURGE_RETENTION"
)
