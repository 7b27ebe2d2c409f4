package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB holds alarm registrations and patient devices.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration. The ledger DB also carries trigger leases and
	// snooze tags; the queue DB is owned by asynq.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisLedgerDB int    `mapstructure:"REDIS_LEDGER_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// MediMind REST backend.
	BackendBaseURL string `mapstructure:"BACKEND_BASE_URL"`

	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Reminder pipeline.
	DefaultTimezone   string        `mapstructure:"DEFAULT_TIMEZONE"`
	TriggerBudget     time.Duration `mapstructure:"TRIGGER_BUDGET"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
	AlarmSweepCron    string        `mapstructure:"ALARM_SWEEP_CRON"`
}

var AppConfig Config

func LoadConfig() {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "medimind")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_LEDGER_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8080")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "firebase-service-account.json")
	v.SetDefault("DEFAULT_TIMEZONE", "Asia/Singapore")
	v.SetDefault("TRIGGER_BUDGET", "30s")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("ALARM_SWEEP_CRON", "0 2 * * *")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
