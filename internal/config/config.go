package config

// Config is the process-wide configuration: read from the environment once
// at startup, immutable thereafter, and injected into the auth service and
// middleware rather than consulted from ambient global state.
type Config interface {
	EnvConfig
	AuthConfig
	SecurityConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetSmtpFrom() string
	GetEnv() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Auth
	Security
	Cors
}

func New() Config {
	return mainConfig{
		EnvVars:  NewEnvVars(),
		Auth:     NewAuth(),
		Security: NewSecurity(),
		Cors:     NewCors(),
	}
}
