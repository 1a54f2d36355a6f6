// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек биллингового ядра
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	TelegramBotToken        string `yaml:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	AdminToken              string `yaml:"admin_token" env:"ADMIN_TOKEN"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	Tribute                 `yaml:"tribute"`
	Entitlement             `yaml:"entitlement"`
	Limits                  `yaml:"limits"`
}

// HTTPServer структура для настройки сервера вебхука
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Tribute параметры интеграции с платёжным провайдером Tribute
type Tribute struct {
	WebhookSecret string `yaml:"webhook_secret" env:"TRIBUTE_WEBHOOK_SECRET"`
	ProductID     string `yaml:"product_id" env:"TRIBUTE_PRODUCT_ID"`
	PaymentLink   string `yaml:"payment_link"`
}

// Entitlement параметры жизненного цикла подписки
type Entitlement struct {
	TrialDays    int           `yaml:"trial_days" env-default:"3"`
	PremiumDays  int           `yaml:"premium_days" env-default:"30"`
	PremiumPrice int           `yaml:"premium_price" env-default:"77000"` // в копейках
	ScanInterval time.Duration `yaml:"scan_interval" env-default:"1h"`
}

// Limits дневные лимиты free-версии, читаются коллабораторами ядра
type Limits struct {
	FreeTextLimit  int `yaml:"free_text_limit" env-default:"20"`
	FreeVoiceLimit int `yaml:"free_voice_limit" env-default:"5"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH, при ошибке завершает процесс
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RabbitMQURL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Tribute:\n"+
			"  ProductID: %s\n"+
			"Entitlement:\n"+
			"  TrialDays: %d\n"+
			"  PremiumDays: %d\n"+
			"  ScanInterval: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.RabbitMQURL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.ProductID,
		c.TrialDays,
		c.PremiumDays,
		c.ScanInterval,
	)
}
