package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"income-predictor/internal/common"
	"income-predictor/internal/features"
)

// Settings is the resolved configuration shared by the train, serve and
// predict binaries.
type Settings struct {
	DataPath     string
	ModelPath    string
	ModelVersion string // pin a bundle version instead of the active one
	ReportPath   string

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	TestRatio       float64
	RandomState     int64

	ListenAddr      string
	Vocabulary      string
	EducationPolicy string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogPretty bool
}

type ConfigFile struct {
	Data struct {
		Path string `yaml:"path"`
	} `yaml:"data"`

	Model struct {
		Path    string `yaml:"path"`
		Version string `yaml:"version"`
	} `yaml:"model"`

	Reports struct {
		Path string `yaml:"path"`
	} `yaml:"reports"`

	Training struct {
		NEstimators     int     `yaml:"nEstimators"`
		MaxDepth        int     `yaml:"maxDepth"`
		MinSamplesSplit int     `yaml:"minSamplesSplit"`
		MinSamplesLeaf  int     `yaml:"minSamplesLeaf"`
		MaxFeatures     int     `yaml:"maxFeatures"`
		Bootstrap       bool    `yaml:"bootstrap"`
		TestRatio       float64 `yaml:"testRatio"`
		RandomState     int64   `yaml:"randomState"`
	} `yaml:"training"`

	Serving struct {
		ListenAddr      string `yaml:"listenAddr"`
		Vocabulary      string `yaml:"vocabulary"`
		EducationPolicy string `yaml:"educationPolicy"`
		ReadTimeout     string `yaml:"readTimeout"`
		WriteTimeout    string `yaml:"writeTimeout"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"serving"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load resolves settings from .env, an optional YAML file named by
// CONFIG_FILE, and the environment, in increasing precedence.
func Load() (Settings, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv exports variables from path without overriding ones already
// set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func defaultConfig() ConfigFile {
	var c ConfigFile
	c.Data.Path = common.DefaultDataPath
	c.Model.Path = common.DefaultModelPath
	c.Reports.Path = common.DefaultReportPath
	c.Training.NEstimators = common.DefaultNEstimators
	c.Training.MaxDepth = common.DefaultMaxDepth
	c.Training.MinSamplesSplit = common.DefaultMinSamplesSplit
	c.Training.MinSamplesLeaf = common.DefaultMinSamplesLeaf
	c.Training.MaxFeatures = common.DefaultMaxFeatures
	c.Training.Bootstrap = common.DefaultBootstrap
	c.Training.TestRatio = common.DefaultTestRatio
	c.Training.RandomState = common.DefaultRandomState
	c.Serving.ListenAddr = common.DefaultListenAddr
	c.Serving.Vocabulary = common.DefaultVocabulary
	c.Serving.EducationPolicy = common.DefaultEducationPolicy
	c.Serving.ReadTimeout = "10s"
	c.Serving.WriteTimeout = "10s"
	c.Serving.ShutdownTimeout = "15s"
	c.Log.Level = common.DefaultLogLevel
	return c
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return resolve(config)
}

func loadFromEnv() (Settings, error) {
	return resolve(defaultConfig())
}

// resolve applies environment overrides on top of config and validates.
func resolve(config ConfigFile) (Settings, error) {
	readTimeout, err := time.ParseDuration(config.Serving.ReadTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid read timeout %q: %w", config.Serving.ReadTimeout, err)
	}
	writeTimeout, err := time.ParseDuration(config.Serving.WriteTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid write timeout %q: %w", config.Serving.WriteTimeout, err)
	}
	shutdownTimeout, err := time.ParseDuration(config.Serving.ShutdownTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid shutdown timeout %q: %w", config.Serving.ShutdownTimeout, err)
	}

	settings := Settings{
		DataPath:     getEnvOrDefault(common.EnvDataPath, config.Data.Path),
		ModelPath:    getEnvOrDefault(common.EnvModelPath, config.Model.Path),
		ModelVersion: getEnvOrDefault(common.EnvModelVersion, config.Model.Version),
		ReportPath:   getEnvOrDefault(common.EnvReportPath, config.Reports.Path),

		NEstimators:     getIntOrDefault(common.EnvNEstimators, config.Training.NEstimators),
		MaxDepth:        getIntOrDefault(common.EnvMaxDepth, config.Training.MaxDepth),
		MinSamplesSplit: getIntOrDefault(common.EnvMinSamplesSplit, config.Training.MinSamplesSplit),
		MinSamplesLeaf:  getIntOrDefault(common.EnvMinSamplesLeaf, config.Training.MinSamplesLeaf),
		MaxFeatures:     getIntOrDefault(common.EnvMaxFeatures, config.Training.MaxFeatures),
		Bootstrap:       getBoolOrDefault(common.EnvBootstrap, config.Training.Bootstrap),
		TestRatio:       getFloatOrDefault(common.EnvTestRatio, config.Training.TestRatio),
		RandomState:     int64(getIntOrDefault(common.EnvRandomState, int(config.Training.RandomState))),

		ListenAddr:      getEnvOrDefault(common.EnvListenAddr, config.Serving.ListenAddr),
		Vocabulary:      getEnvOrDefault(common.EnvVocabulary, config.Serving.Vocabulary),
		EducationPolicy: getEnvOrDefault(common.EnvEducationPolicy, config.Serving.EducationPolicy),
		ReadTimeout:     getDurationOrDefault(common.EnvReadTimeout, readTimeout),
		WriteTimeout:    getDurationOrDefault(common.EnvWriteTimeout, writeTimeout),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, shutdownTimeout),

		LogLevel:  getEnvOrDefault(common.EnvLogLevel, config.Log.Level),
		LogPretty: getBoolOrDefault(common.EnvLogPretty, config.Log.Pretty),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// validateSettings checks ranges and enumerations
func validateSettings(settings *Settings) error {
	if settings.ModelPath == "" {
		return errors.New(common.ErrMsgModelPathNeeded)
	}
	if settings.DataPath == "" {
		return errors.New(common.ErrMsgDataPathNeeded)
	}
	if settings.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	switch settings.Vocabulary {
	case "artifact", "fixed":
	default:
		return fmt.Errorf("serving vocabulary must be artifact or fixed, got %q", settings.Vocabulary)
	}
	switch settings.EducationPolicy {
	case "reject", "default":
	default:
		return fmt.Errorf("education policy must be reject or default, got %q", settings.EducationPolicy)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	// Training parameters
	if settings.NEstimators <= 0 || settings.NEstimators > common.MaxNEstimators {
		return fmt.Errorf("n_estimators must be between 1 and %d, got %d", common.MaxNEstimators, settings.NEstimators)
	}
	if settings.MaxDepth < 0 {
		return fmt.Errorf("max depth cannot be negative, got %d", settings.MaxDepth)
	}
	if settings.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be at least 2, got %d", settings.MinSamplesSplit)
	}
	if settings.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be at least 1, got %d", settings.MinSamplesLeaf)
	}
	if settings.MaxFeatures < 0 || settings.MaxFeatures > features.NumFeatures {
		return fmt.Errorf("max features must be between 0 and %d, got %d", features.NumFeatures, settings.MaxFeatures)
	}
	if settings.TestRatio < common.MinTestRatio || settings.TestRatio > common.MaxTestRatio {
		return fmt.Errorf("test ratio must be between %.2f and %.2f, got %f", common.MinTestRatio, common.MaxTestRatio, settings.TestRatio)
	}

	// Server timeouts
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout < time.Second || settings.ShutdownTimeout > 2*time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 2m, got %v", settings.ShutdownTimeout)
	}

	return nil
}
