package platform

import (
	"errors"
	"io/fs"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	apperrors "datanorm-pricing/pkg/errors"
)

// EnvPrefix prefixes every configuration variable
const EnvPrefix = "DATANORM"

// Store backends
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the runtime settings shared by all commands
type Config struct {
	File           string  `envconfig:"FILE" default:"docs/task_description/DATANORM.001"`
	InputEncoding  string  `envconfig:"INPUT_ENCODING" default:"latin-1" validate:"required"`
	OutputEncoding string  `envconfig:"OUTPUT_ENCODING" default:"utf-8" validate:"required"`
	OutputFolder   string  `envconfig:"OUTPUT_FOLDER" default:"output/"`
	RoundDigits    float64 `envconfig:"ROUND_DIGITS" default:"2" validate:"digits"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=json console"`

	Store    string `envconfig:"STORE" default:"memory" validate:"oneof=memory sqlite postgres"`
	StoreDSN string `envconfig:"STORE_DSN" validate:"required_unless=Store memory"`
}

var validate = func() *validator.Validate {
	v := validator.New()
	// Digit counts are truncated toward zero before use, so -0.5 means 0.
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return math.Trunc(fl.Field().Float()) >= 0
	})
	return v
}()

// LoadConfig reads .env files (when present) and the DATANORM_* environment.
// Variables already set in the environment win over .env entries.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewConfigError(err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError(err)
	}
	return nil
}
