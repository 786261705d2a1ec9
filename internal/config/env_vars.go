package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "STATE_FOLDER"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "DevSecOps Dashboard")
}

// GetStateFolder returns the folder holding per-user session state
// (the persisted expiry timestamp shared across dashboard processes).
func (EnvVars) GetStateFolder() string {
	if folder := os.Getenv(folderEnvVar); folder != "" {
		return folder
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "devsecops-dashboard")
	}
	return "./data"
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
