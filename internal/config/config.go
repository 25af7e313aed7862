package config

type Config interface {
	EnvConfig
	HTTPConfig
	CacheConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBaseURL() string
	GetDataFolder() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Cache
}

func New() Config {
	return mainConfig{}
}
