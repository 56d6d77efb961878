package config

// EnvPrefix is passed to envconfig; individual fields carry fully prefixed
// names so the prefix is effectively documentation.
const EnvPrefix = "SAGEBROOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SAGEBROOK_DB_DSN"
	EnvDBHost = "SAGEBROOK_DB_HOST"
	EnvDBUser = "SAGEBROOK_DB_USER"
	EnvDBName = "SAGEBROOK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
