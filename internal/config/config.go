/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mpesa-gateway-go/internal/models"
)

const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"

	defaultDarajaBaseURL = "https://sandbox.safaricom.co.ke"
)

func Load() (*models.Config, error) {
	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	httpTimeout, err := getEnvDuration("HTTP_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnvString("LEDGER_BACKEND", BackendSQLite))
	if backend != BackendSQLite && backend != BackendMongoDB {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: must be %q or %q", backend, BackendSQLite, BackendMongoDB)
	}

	return &models.Config{
		Server: models.ServerConfig{
			Port:            getEnvString("PORT", "3000"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Database: models.DatabaseConfig{
			Backend:         backend,
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Mongo: models.MongoConfig{
			URI:         getEnvString("MONGO_URI", "mongodb://localhost:27017"),
			Database:    getEnvString("MONGO_DATABASE", "mpesa"),
			PingTimeout: pingTimeout,
		},
		Daraja: models.DarajaConfig{
			BaseURL:           strings.TrimRight(getEnvString("BASE_URL", defaultDarajaBaseURL), "/"),
			CallbackBaseURL:   strings.TrimRight(getEnvString("API_BASE_URL", ""), "/"),
			ConsumerKey:       getEnvString("CONSUMER_KEY", ""),
			ConsumerSecret:    getEnvString("CONSUMER_SECRET", ""),
			Passkey:           getEnvString("PASSKEY", ""),
			ShortCode:         getEnvString("SHORTCODE", ""),
			B2CShortCode:      getEnvString("B2C_SHORTCODE", ""),
			InitiatorName:     getEnvString("INITIATOR_NAME", ""),
			InitiatorPassword: getEnvString("INITIATOR_PASSWORD", ""),
			SecurityCertPath:  getEnvString("SECURITY_CERT_PATH", ""),
			HTTPTimeout:       httpTimeout,
		},
		Security: models.SecurityConfig{
			AllowlistFile: getEnvString("ALLOWLIST_FILE", ""),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
