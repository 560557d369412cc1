package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvDataPath        = "DATA_PATH"
	EnvModelPath       = "MODEL_PATH"
	EnvReportPath      = "REPORT_PATH"
	EnvModelVersion    = "MODEL_VERSION"
	EnvListenAddr      = "LISTEN_ADDR"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogPretty       = "LOG_PRETTY"
	EnvVocabulary      = "SERVING_VOCABULARY"
	EnvEducationPolicy = "EDUCATION_POLICY"
	EnvNEstimators     = "N_ESTIMATORS"
	EnvMaxDepth        = "MAX_DEPTH"
	EnvMinSamplesSplit = "MIN_SAMPLES_SPLIT"
	EnvMinSamplesLeaf  = "MIN_SAMPLES_LEAF"
	EnvMaxFeatures     = "MAX_FEATURES"
	EnvBootstrap       = "BOOTSTRAP"
	EnvTestRatio       = "TEST_RATIO"
	EnvRandomState     = "RANDOM_STATE"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Configuration defaults
const (
	DefaultDataPath        = "data/adult.csv"
	DefaultModelPath       = "models/model.db"
	DefaultReportPath      = "reports"
	DefaultListenAddr      = ":5000"
	DefaultLogLevel        = "info"
	DefaultVocabulary      = "artifact"
	DefaultEducationPolicy = "reject"
	DefaultNEstimators     = 100
	DefaultMaxDepth        = 0 // unlimited
	DefaultMinSamplesSplit = 2
	DefaultMinSamplesLeaf  = 1
	DefaultMaxFeatures     = 0 // sqrt(n_features)
	DefaultBootstrap       = true
	DefaultTestRatio       = 0.2
	DefaultRandomState     = 42
)

// Validation constants
const (
	MaxNEstimators = 1000
	MinTestRatio   = 0.05
	MaxTestRatio   = 0.5
)

// Common error messages
const (
	ErrMsgNoData          = "no data received"
	ErrMsgModelPathNeeded = "model path is required"
	ErrMsgDataPathNeeded  = "data path is required"
)
