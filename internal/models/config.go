package models

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Daraja   DarajaConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds ledger backend selection and SQLite connection settings
type DatabaseConfig struct {
	Backend         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// MongoConfig holds document store settings
type MongoConfig struct {
	URI         string
	Database    string
	PingTimeout time.Duration
}

// DarajaConfig holds payment provider credentials and endpoints
type DarajaConfig struct {
	BaseURL           string
	CallbackBaseURL   string
	ConsumerKey       string
	ConsumerSecret    string
	Passkey           string
	ShortCode         string
	B2CShortCode      string
	InitiatorName     string
	InitiatorPassword string
	SecurityCertPath  string
	HTTPTimeout       time.Duration
}

// SecurityConfig holds webhook guard settings
type SecurityConfig struct {
	AllowlistFile string
}
