package config

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
	UploadConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetStateFolder() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
	Upload
}

func New() Config {
	return mainConfig{}
}
