// Package config assembles the service configuration from, in increasing
// priority: built-in defaults, an optional JSON file, environment variables
// (including a .env file) and command-line flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
)

// Config holds every tunable of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	MongoURI            string        `env:"MONGO_URI" json:"mongo_uri" validate:"omitempty,uri"`
	MongoDatabase       string        `env:"MONGO_DATABASE" json:"mongo_database" validate:"required"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"gt=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" json:"-" validate:"gt=0"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" json:"-" validate:"gt=0"`
	ConfigFile          string        `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	GRPCAddr:            "",
	LogLevel:            "info",
	MongoURI:            "",
	MongoDatabase:       "userapi",
	DatabaseDSN:         "",
	DBFileName:          "",
	DBConnectionTimeout: 10 * time.Second,
	TrustedSubnet:       "",
	HealthCheckInterval: 5 * time.Second,
	ShutdownTimeout:     10 * time.Second,
}

var allowedLogLevels = []string{
	"debug",
	"info",
	"warn",
	"error",
	"fatal",
}

// InitOption tunes how New collects configuration.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing makes New ignore os.Args. Tests use it.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// applyDefaults fills zero-valued fields of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	merged := defaults
	override(&merged, values)
	*values = merged
}

// override copies every non-zero field of src into dst.
func override(dst, src *Config) {
	if src.RunAddr != "" {
		dst.RunAddr = src.RunAddr
	}
	if src.GRPCAddr != "" {
		dst.GRPCAddr = src.GRPCAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.MongoURI != "" {
		dst.MongoURI = src.MongoURI
	}
	if src.MongoDatabase != "" {
		dst.MongoDatabase = src.MongoDatabase
	}
	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if src.DBFileName != "" {
		dst.DBFileName = src.DBFileName
	}
	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.TrustedSubnet != "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if src.HealthCheckInterval != 0 {
		dst.HealthCheckInterval = src.HealthCheckInterval
	}
	if src.ShutdownTimeout != 0 {
		dst.ShutdownTimeout = src.ShutdownTimeout
	}
	if src.ConfigFile != "" {
		dst.ConfigFile = src.ConfigFile
	}
}

func parseFlags(args []string) (*Config, error) {
	values := &Config{}

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run HTTP server")
	flags.StringVar(&values.GRPCAddr, "g", "", "address and port to run gRPC health server")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.MongoURI, "m", "", "MongoDB connection URI")
	flags.StringVar(&values.MongoDatabase, "n", "", "MongoDB database name")
	flags.StringVar(&values.DatabaseDSN, "d", "", "A string with the PostgreSQL connection details")
	flags.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flags.StringVar(&values.TrustedSubnet, "t", "", "trusted subnet in CIDR notation for internal endpoints")
	flags.StringVar(&values.ConfigFile, "c", "", "path to the JSON configuration file")

	if err := flags.Parse(args[1:]); err != nil {
		return nil, err
	}

	return values, nil
}

func parseJSONFile(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/parseJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}

	values := &Config{}
	if err := json.Unmarshal(data, values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/parseJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	return values, nil
}

// New collects and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	fromFlags := &Config{}
	if !options.disableFlagsParsing {
		fromFlags, err = parseFlags(os.Args)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	err = env.Parse(&fromEnv)
	if err != nil {
		return nil, err
	}

	values := defaultConfig

	configFile := fromEnv.ConfigFile
	if fromFlags.ConfigFile != "" {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		fromJSON, err := parseJSONFile(configFile)
		if err != nil {
			return nil, err
		}
		override(&values, fromJSON)
		values.ConfigFile = configFile
	}

	override(&values, &fromEnv)
	override(&values, fromFlags)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}
