package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"databases"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
	Chat struct {
		RateLimitSeconds       int `yaml:"rate_limit_seconds"`
		OnlineThresholdMinutes int `yaml:"online_threshold_minutes"`
		HeartbeatSeconds       int `yaml:"heartbeat_seconds"`
		TypingDebounceMs       int `yaml:"typing_debounce_ms"`
		TypingTimeoutMs        int `yaml:"typing_timeout_ms"`
	} `yaml:"chat"`
}

var AppConfig *ConfigSchema

// LoadConfig читает yaml конфиг и применяет переопределения из окружения
func LoadConfig(filePath string) error {
	// .env не обязателен, ошибку игнорируем
	_ = godotenv.Load()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var conf ConfigSchema
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return err
	}

	// Секреты из окружения имеют приоритет над файлом
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		conf.Databases.Master.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		conf.Redis.Password = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		conf.RabbitMQ.URL = v
	}

	applyChatDefaults(&conf)

	AppConfig = &conf
	return nil
}

func applyChatDefaults(conf *ConfigSchema) {
	if conf.Chat.RateLimitSeconds <= 0 {
		conf.Chat.RateLimitSeconds = 10
	}
	if conf.Chat.OnlineThresholdMinutes <= 0 {
		conf.Chat.OnlineThresholdMinutes = 5
	}
	if conf.Chat.HeartbeatSeconds <= 0 {
		conf.Chat.HeartbeatSeconds = 30
	}
	if conf.Chat.TypingDebounceMs <= 0 {
		conf.Chat.TypingDebounceMs = 300
	}
	if conf.Chat.TypingTimeoutMs <= 0 {
		conf.Chat.TypingTimeoutMs = 1500
	}
}

// RateLimitWindow - окно между попытками случайного поиска
func RateLimitWindow() time.Duration {
	if AppConfig == nil {
		return 10 * time.Second
	}
	return time.Duration(AppConfig.Chat.RateLimitSeconds) * time.Second
}

// OnlineThreshold - порог для fallback-определения онлайна по last_seen_at
func OnlineThreshold() time.Duration {
	if AppConfig == nil {
		return 5 * time.Minute
	}
	return time.Duration(AppConfig.Chat.OnlineThresholdMinutes) * time.Minute
}

func TypingDebounce() time.Duration {
	if AppConfig == nil {
		return 300 * time.Millisecond
	}
	return time.Duration(AppConfig.Chat.TypingDebounceMs) * time.Millisecond
}

func TypingTimeout() time.Duration {
	if AppConfig == nil {
		return 1500 * time.Millisecond
	}
	return time.Duration(AppConfig.Chat.TypingTimeoutMs) * time.Millisecond
}

func HeartbeatInterval() time.Duration {
	if AppConfig == nil {
		return 30 * time.Second
	}
	return time.Duration(AppConfig.Chat.HeartbeatSeconds) * time.Second
}
