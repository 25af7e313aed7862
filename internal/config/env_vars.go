package config

import "os"

const (
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	dataFolderVar = "DATA_FOLDER"
	envVar        = "ENV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Bot Panel")
}

func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8002")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(dataFolderVar, ".botpanel")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "development")
}

func GetEnv(key string, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
