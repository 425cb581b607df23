package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	cfg := new(AppConfig)
	cfg.AppID = "learning"
	cfg.Env = EnvProduction
	cfg.Timezone = "UTC"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Host = "learning.db"
	cfg.Database.MaxConn = 10
	cfg.Logging.Level = "info"
	cfg.Security.IDLength = 24
	cfg.Security.JWTMethod = "HS256"
	cfg.Security.JWTSecret = "secret"
	cfg.Security.TokenName = "token"
	cfg.Catalogue.BaseURL = "http://catalogue:8082"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))

	cfg := validConfig()
	cfg.Env = "staging"
	cfg.Database.Driver = "oracle"
	cfg.Security.JWTSecret = ""
	cfg.Timezone = "Mars/Olympus_Mons"
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env must be one of (development production)")
	assert.Contains(t, err.Error(), "database.driver must be one of (mysql postgres sqlite)")
	assert.Contains(t, err.Error(), "security.jwt_secret is required")
	assert.Contains(t, err.Error(), "timezone")
}

func TestAppConfig_Location(t *testing.T) {
	cfg := validConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
