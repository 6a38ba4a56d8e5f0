package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
	baseURLVar   = "BASE_URL"
)

// EnvVars holds the environment-derived values, captured once by NewEnvVars.
type EnvVars struct {
	port         string
	appName      string
	dataFolder   string
	baseURL      string
	smtpHost     string
	smtpPort     string
	smtpAccount  string
	smtpPassword string
	smtpFrom     string
	env          string
}

var _ EnvConfig = EnvVars{}

func NewEnvVars() EnvVars {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}

	return EnvVars{
		port:         port,
		appName:      GetEnv(appNameVar, "Ledgerly Auth"),
		dataFolder:   GetEnv(folderEnvVar, "./data"),
		baseURL:      GetEnv(baseURLVar, "http://localhost:8080"),
		smtpHost:     GetEnv("SMTP_HOST", "smtp.gmail.com"),
		smtpPort:     GetEnv("SMTP_PORT", "587"),
		smtpAccount:  GetEnv("SMTP_ACCOUNT", ""),
		smtpPassword: GetEnv("SMTP_PASSWORD", ""),
		smtpFrom:     GetEnv("SMTP_FROM", "no-reply@ledgerly.app"),
		env:          env,
	}
}

func (e EnvVars) GetPort() string {
	return e.port
}

func (e EnvVars) GetAppName() string {
	return e.appName
}

func (e EnvVars) GetDataFolder() string {
	return e.dataFolder
}

// GetBaseURL returns the externally visible base URL of the dashboard (e.g.
// "https://app.ledgerly.app"), used for email action links.
func (e EnvVars) GetBaseURL() string {
	return e.baseURL
}

func (e EnvVars) GetSmtpHost() string {
	return e.smtpHost
}

func (e EnvVars) GetSmtpPort() string {
	return e.smtpPort
}

func (e EnvVars) GetSmtpAccount() string {
	return e.smtpAccount
}

func (e EnvVars) GetSmtpPassword() string {
	return e.smtpPassword
}

func (e EnvVars) GetSmtpFrom() string {
	return e.smtpFrom
}

func (e EnvVars) GetEnv() string {
	return e.env
}

func (e EnvVars) IsProduction() bool {
	return e.env == "PROD" || e.env == "production"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
