package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gowave/domain/core"
	"gowave/internal/errors"
	"gowave/internal/regression"
	"gowave/internal/significance"
	"gowave/internal/wavelet"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Wavelet      WaveletConfig      `validate:"required"`
	Significance SignificanceConfig `validate:"required"`
	Regression   RegressionConfig   `validate:"required"`
	Data         DataConfig
	Log          LogConfig
}

// WaveletConfig holds transform and coherence smoothing settings
type WaveletConfig struct {
	Family      string  `validate:"oneof=morlet paul dog mexicanhat"`
	W0          float64 `validate:"gte=0"`
	Order       int     `validate:"gte=0"`
	DJ          float64 `validate:"gt=0,lte=1"`
	S0          float64 `validate:"gte=0"`
	Standardize bool
	TimeWidth   float64 `validate:"gte=0"`
	ScaleWidth  float64 `validate:"gte=0"`
}

// SignificanceConfig holds red noise and Monte Carlo settings
type SignificanceConfig struct {
	Confidence float64 `validate:"gt=0,lt=1"`
	Draws      int     `validate:"gte=1"`
	RedNoise   string  `validate:"oneof=lag1 ols"`
	Seed       int64
	Smoothed   bool
}

// RegressionConfig holds scale regression settings
type RegressionConfig struct {
	IV             bool
	SE             string  `validate:"oneof=robust newey_west"`
	MinFirstStageF float64 `validate:"gt=0"`
	NeweyWestLags  int     `validate:"gte=0"`
	ConeScale      string  `validate:"oneof=smallest central largest"`
	BandsFile      string
}

// DataConfig holds series file loading settings
type DataConfig struct {
	DateColumn string `validate:"required"`
	DateLayout string `validate:"required"`
	Sheet      string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string `validate:"omitempty,oneof=text json"`
}

var validate = validator.New()

// Load reads an optional .env file (or the given files), then configuration
// from environment variables, and validates it
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to read env file")
	}

	family := strings.ToLower(getEnvOrDefault("WAVELET_FAMILY", "morlet"))
	config := &Config{
		Wavelet: WaveletConfig{
			Family:      family,
			W0:          getEnvFloatOrDefault("WAVELET_W0", 6),
			Order:       getEnvIntOrDefault("WAVELET_ORDER", 0),
			DJ:          getEnvFloatOrDefault("WAVELET_DJ", 0.25),
			S0:          getEnvFloatOrDefault("WAVELET_S0", 0),
			Standardize: getEnvBoolOrDefault("WAVELET_STANDARDIZE", false),
			TimeWidth:   getEnvFloatOrDefault("COHERENCE_TIME_WIDTH", 0),
			ScaleWidth:  getEnvFloatOrDefault("COHERENCE_SCALE_WIDTH", 0),
		},
		Significance: SignificanceConfig{
			Confidence: getEnvFloatOrDefault("SIGNIFICANCE_CONFIDENCE", 0.95),
			Draws:      getEnvIntOrDefault("MONTE_CARLO_DRAWS", significance.DefaultDraws),
			RedNoise:   strings.ToLower(getEnvOrDefault("RED_NOISE_METHOD", string(significance.RedNoiseLag1))),
			Seed:       int64(getEnvIntOrDefault("RNG_SEED", 1)),
			Smoothed:   getEnvBoolOrDefault("SIGNIFICANCE_SMOOTHED", false),
		},
		Regression: RegressionConfig{
			IV:             getEnvBoolOrDefault("REGRESSION_IV", true),
			SE:             strings.ToLower(getEnvOrDefault("REGRESSION_SE", string(regression.CovNeweyWest))),
			MinFirstStageF: getEnvFloatOrDefault("MIN_FIRST_STAGE_F", regression.DefaultMinFirstStageF),
			NeweyWestLags:  getEnvIntOrDefault("NEWEY_WEST_LAGS", 0),
			ConeScale:      strings.ToLower(getEnvOrDefault("CONE_SCALE", string(regression.ConeCentral))),
			BandsFile:      getEnvOrDefault("BANDS_FILE", ""),
		},
		Data: DataConfig{
			DateColumn: getEnvOrDefault("DATE_COLUMN", "date"),
			DateLayout: getEnvOrDefault("DATE_LAYOUT", "2006-01-02"),
			Sheet:      getEnvOrDefault("EXCEL_SHEET", "Sheet1"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks struct tags and cross-field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "configuration validation failed"))
	}
	if _, err := c.WaveletConfig().Basis(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// WaveletConfig converts to the transform configuration.
func (c *Config) WaveletConfig() wavelet.Config {
	family, order, _ := wavelet.ParseFamily(c.Wavelet.Family)
	if c.Wavelet.Order > 0 {
		order = c.Wavelet.Order
	}
	return wavelet.Config{
		Family:      family,
		W0:          c.Wavelet.W0,
		Order:       order,
		DJ:          c.Wavelet.DJ,
		S0:          c.Wavelet.S0,
		Standardize: c.Wavelet.Standardize,
		Smoothing: wavelet.Smoothing{
			TimeWidth:  c.Wavelet.TimeWidth,
			ScaleWidth: c.Wavelet.ScaleWidth,
		},
	}
}

// SignificanceOptions converts to significance test options.
func (c *Config) SignificanceOptions() significance.Options {
	opts := significance.DefaultOptions()
	opts.Confidence = c.Significance.Confidence
	opts.Draws = c.Significance.Draws
	opts.RedNoise = significance.RedNoiseMethod(c.Significance.RedNoise)
	opts.Seed = c.Significance.Seed
	opts.Smoothed = c.Significance.Smoothed
	opts.Smoothing = c.WaveletConfig().Smoothing
	return opts
}

// RegressionOptions converts to scale regression options.
func (c *Config) RegressionOptions() regression.Options {
	return regression.Options{
		IV:             c.Regression.IV,
		SE:             regression.CovarianceType(c.Regression.SE),
		MinFirstStageF: c.Regression.MinFirstStageF,
		NeweyWestLags:  c.Regression.NeweyWestLags,
		ConeScale:      regression.ConeScale(c.Regression.ConeScale),
		Wavelet:        c.WaveletConfig(),
	}
}

// bandFile is the YAML layout of a band profile.
type bandFile struct {
	Bands []regression.ScaleBand `yaml:"bands" validate:"required,min=1,dive"`
}

// LoadBands reads scale bands from a YAML file; an empty path gives the defaults.
func LoadBands(path string) ([]regression.ScaleBand, error) {
	if path == "" {
		return regression.DefaultBands(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound("bands file " + path)
		}
		return nil, errors.Wrapf(err, "failed to read bands file %s", path)
	}
	var f bandFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse bands file %s", path))
	}
	if len(f.Bands) == 0 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("bands file %s declares no bands", path))
	}
	for i := range f.Bands {
		label, err := core.ParseBandLabel(f.Bands[i].Label.String())
		if err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		f.Bands[i].Label = label
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "invalid bands in %s", path))
	}
	return f.Bands, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
