package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "GOAPP"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	Timezone       string        `mapstructure:"timezone" json:"timezone" yaml:"timezone" validate:"required"`      // zone the study week is computed in
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	Database       struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=mysql postgres sqlite"`   // driver name
		Host     string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`                            // server host, file path for sqlite
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                      // maximum opening connections number
		Password string `mapstructure:"password" json:"password" yaml:"password"`                                    // db password
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"` // connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema"`                                          // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username"`                                    // db username
		Migrate  bool   `mapstructure:"migrate" json:"migrate" yaml:"migrate"`                                       // create tables on startup
	} `mapstructure:"database" json:"database" yaml:"database"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength  int    `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated ID for entities
		JWTMethod string `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS384 HS512"`
		JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"jwt_secret" validate:"required"`
		TokenName string `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"` // jwt token name set in cookie
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host     string `mapstructure:"host" json:"host" yaml:"host"`      // bind host address
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`      // bind listen port
		Password string `mapstructure:"password" json:"-" yaml:"password"` // password for security reasons
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Catalogue struct {
		BaseURL  string        `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"required,url"` // course service address
		Timeout  time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`                            // per call timeout
		CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl"`                      // display info cache lifetime, 0 disables
	} `mapstructure:"catalogue" json:"catalogue" yaml:"catalogue"`
	Learning struct {
		RefreshFinishedPosition bool `mapstructure:"refresh_finished_position" json:"refresh_finished_position" yaml:"refresh_finished_position"`
	} `mapstructure:"learning" json:"learning" yaml:"learning"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// Location parsed Timezone
func (c *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	// app
	pflag.String("host", "", "binding address")
	pflag.String("app_id", "learning", "application identifier")
	pflag.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	pflag.Int("port", 8081, "listening port")
	pflag.String("timezone", "UTC", "IANA zone used to compute study weeks, eg.Asia/Shanghai")
	pflag.Duration("request_timeout", 30*time.Second, "abort requests running longer than this")

	// database
	pflag.String("database.driver", "mysql", "database driver to use, one of mysql, postgres, sqlite")
	pflag.String("database.host", "127.0.0.1", "database host, or database file path for sqlite")
	pflag.Int("database.port", 3306, "database server port")
	pflag.String("database.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	pflag.String("database.username", "", "database username")
	pflag.String("database.password", "", "database password")
	pflag.String("database.schema", "", "database schema")
	pflag.String("database.query", "", `additional DSN query parameters('?' is auto prefixed), if you work with mysql and wish to
work with time.Time, you must specify "parseTime=true"`)
	pflag.Int32("database.maxconn", 200, `max connection count, if you encounter a "too many connections" error, please consider
increasing the max_connection value of your db server, or lower this value`)
	pflag.Bool("database.migrate", false, "create missing tables on startup")

	// logging
	pflag.String("logging.level", "info", "logging level")
	pflag.String("logging.file_path", "", "log to file")

	// security
	pflag.Int("security.id_length", 24, "set length of generated ID for entities")
	pflag.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	pflag.String("security.jwt_secret", "", "JWT secret (required)")
	pflag.String("security.token_name", "token", "cookie name carrying the token")

	// kv storage
	pflag.String("kv.host", "127.0.0.1", "kv host, leave empty to keep cache and token blacklist in process")
	pflag.Int("kv.port", 6379, "kv server port")
	pflag.String("kv.password", "", "kv server password")

	// catalogue
	pflag.String("catalogue.base_url", "http://127.0.0.1:8082", "course service base url")
	pflag.Duration("catalogue.timeout", 3*time.Second, "course service call timeout")
	pflag.Duration("catalogue.cache_ttl", 10*time.Minute, "course display info cache lifetime, 0 disables caching")

	// learning
	pflag.Bool("learning.refresh_finished_position", true, "keep updating the playback position of finished video sections")

	// DevOp
	pflag.Bool("devop.apm", false, "enable apm metrics")

	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config = new(AppConfig)
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

// ValidateConfig check config against its validate tags
func ValidateConfig(config *AppConfig) error {
	v := validator.New()
	v.RegisterTagNameFunc(validate.JSONTagName)
	err := v.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	var msg []string
	fields, _ := err.(validator.ValidationErrors)
	for _, field := range fields {
		namespace := field.Namespace()
		fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
		switch field.Tag() {
		case "required":
			msg = append(msg, fmt.Sprintf("%s is required", fieldName))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
		default:
			msg = append(msg, fmt.Sprintf("%s failed on %s=%s", fieldName, field.Tag(), field.Param()))
		}
	}
	if config.Timezone != "" {
		if _, err := time.LoadLocation(config.Timezone); err != nil {
			msg = append(msg, fmt.Sprintf("timezone: %s", err))
		}
	}
	if len(msg) == 0 {
		return nil
	}
	return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
}
