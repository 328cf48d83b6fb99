package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	// PublicBaseURL - базовый адрес, на который провайдеры шлют вебхуки
	PublicBaseURL string `yaml:"public_base_url"`

	Payments struct {
		DefaultProvider    string `yaml:"default_provider"` // "anypay" | "nicepay"
		SettlementCurrency string `yaml:"settlement_currency"`
		// FXRates - курс к валюте расчета для сумм, пришедших в чужой валюте.
		// Приблизительный, задается оператором; точность FX - не контракт.
		FXRates map[string]float64 `yaml:"fx_rates"`
		// AmountTolerancePercent - допустимое расхождение суммы вебхука
		// с суммой заказа; выше порога - warning, но не отказ.
		AmountTolerancePercent float64 `yaml:"amount_tolerance_percent"`
		// ExpiryAnchor - откуда считать срок ключа: "sale" или "activation"
		ExpiryAnchor string `yaml:"expiry_anchor"`
		// StaleOrderTTLHours - через сколько часов брошенный waiting-заказ
		// отменяется воркером с возвратом ключа в пул
		StaleOrderTTLHours int `yaml:"stale_order_ttl_hours"`
	} `yaml:"payments"`

	Anypay struct {
		ProjectID      string `yaml:"project_id"`
		APIID          string `yaml:"api_id"`
		APIKey         string `yaml:"api_key"`
		Currency       string `yaml:"currency"`
		Method         string `yaml:"method"`
		SuccessURL     string `yaml:"success_url"`
		FailURL        string `yaml:"fail_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"anypay"`

	Nicepay struct {
		MerchantID     string `yaml:"merchant_id"`
		SecretKey      string `yaml:"secret_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"nicepay"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		// AdminIDs - telegram id админов, разделенные запятой
		AdminIDs string `yaml:"admin_ids"`
	} `yaml:"telegram"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		// AlertTo - адрес для писем о проблемных платежах; пусто = не слать
		AlertTo string `yaml:"alert_to"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // минуты
	} `yaml:"jwt"`

	// Admin - учетка первого администратора; создается при старте,
	// если админов еще нет. Пусто - сидинг пропускается.
	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Режим теста: конфиг из переменных окружения
	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.PublicBaseURL = "http://localhost"
	cfg.Payments.DefaultProvider = "anypay"
	cfg.Payments.SettlementCurrency = "RUB"
	cfg.Anypay.ProjectID = "1"
	cfg.Anypay.APIID = "test-api-id"
	cfg.Anypay.APIKey = "test-api-key"
	cfg.Nicepay.MerchantID = "test-merchant"
	cfg.Nicepay.SecretKey = "test-secret"

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Payments.SettlementCurrency == "" {
		cfg.Payments.SettlementCurrency = "RUB"
	}
	if cfg.Payments.AmountTolerancePercent == 0 {
		cfg.Payments.AmountTolerancePercent = 2.0
	}
	if cfg.Payments.ExpiryAnchor == "" {
		cfg.Payments.ExpiryAnchor = "activation"
	}
	if cfg.Payments.StaleOrderTTLHours == 0 {
		cfg.Payments.StaleOrderTTLHours = 24
	}
	if cfg.Anypay.Currency == "" {
		cfg.Anypay.Currency = "RUB"
	}
	if cfg.Anypay.Method == "" {
		cfg.Anypay.Method = "card"
	}
	if cfg.Anypay.TimeoutSeconds == 0 {
		cfg.Anypay.TimeoutSeconds = 20
	}
	if cfg.Nicepay.TimeoutSeconds == 0 {
		cfg.Nicepay.TimeoutSeconds = 30
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
