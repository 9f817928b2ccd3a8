package config

const (
	// EnvPrefix is empty because every variable carries the full SKLEPIO_ name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SKLEPIO_DB_DSN"
	EnvDBHost = "SKLEPIO_DB_HOST"
	EnvDBUser = "SKLEPIO_DB_USER"
	EnvDBName = "SKLEPIO_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
