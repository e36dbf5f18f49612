// Package config загружает конфигурацию сервиса из .env и переменных окружения
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/analytics"
)

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	SensorID           string
	Location           string
	Stations           []string
	PollingInterval    time.Duration
	AnomalyProbability float64

	ZScoreThreshold float64
	MinSamples      int
	WindowCapacity  int
	UseZScore       bool

	WorkerCount int
	BufferSize  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EnableExplainer  bool
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	ExplainerTimeout time.Duration

	EnableVoice   bool
	MiniMaxAPIKey string
	MiniMaxURL    string
	VoiceDir      string

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	LogLevel  string
	LogFormat string
}

// Load читает .env (если есть) и переменные окружения
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,

		SensorID:           getEnv("SENSOR_ID", "HAWKINS-LAB-001"),
		Location:           getEnv("LOCATION", "main_lab"),
		Stations:           getEnvList("STATIONS"),
		PollingInterval:    getEnvDuration("POLLING_INTERVAL", 5*time.Second),
		AnomalyProbability: getEnvFloat("ANOMALY_PROBABILITY", 0.04),

		ZScoreThreshold: getEnvFloat("ZSCORE_THRESHOLD", analytics.DefaultZScoreThreshold),
		MinSamples:      getEnvInt("MIN_SAMPLES", analytics.DefaultMinSamples),
		WindowCapacity:  getEnvInt("WINDOW_CAPACITY", analytics.DefaultWindowCapacity),
		UseZScore:       getEnvBool("USE_ZSCORE", true),

		WorkerCount: getEnvInt("WORKER_COUNT", runtime.NumCPU()),
		BufferSize:  getEnvInt("BUFFER_SIZE", 1000),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EnableExplainer:  getEnvBool("ENABLE_EXPLAINER", true),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ExplainerTimeout: getEnvDuration("EXPLAINER_TIMEOUT", 20*time.Second),

		EnableVoice:   getEnvBool("ENABLE_VOICE_ALERT", true),
		MiniMaxAPIKey: getEnv("MINIMAX_API_KEY", ""),
		MiniMaxURL:    getEnv("MINIMAX_URL", "https://api.minimax.io/v1/t2a_v2"),
		VoiceDir:      getEnv("VOICE_DIR", os.TempDir()),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "lab.alerts"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "anomaly.detected"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", "voice-alerts"),
		S3UseSSL:    getEnvBool("S3_USE_SSL", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// DetectorOptions собирает конфигурацию детектора
func (c *Config) DetectorOptions() analytics.Options {
	opts := analytics.DefaultOptions()
	opts.ZScoreThreshold = c.ZScoreThreshold
	opts.MinSamples = c.MinSamples
	opts.WindowCapacity = c.WindowCapacity
	opts.UseZScore = c.UseZScore
	return opts
}

// AllStations возвращает основную станцию и дополнительные без повторов
func (c *Config) AllStations() []string {
	out := []string{c.SensorID}
	seen := map[string]bool{c.SensorID: true}
	for _, s := range c.Stations {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid float, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid bool, using default")
	}
	return defaultValue
}

// getEnvDuration принимает "5s" или число секунд ("5", "2.5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
