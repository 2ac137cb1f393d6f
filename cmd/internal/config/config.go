package config

import (
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

// CalcServiceConfig настройки расчётного сервиса (Python backend).
type CalcServiceConfig struct {
	URL     string        `yaml:"url" env:"CALC_SERVICE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"CALC_SERVICE_TIMEOUT" env-default:"5m"`

	// Клиентское ограничение частоты запросов к сервису.
	// 0 означает "без ограничения".
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env-default:"0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env-default:"1"`
}

type HistoryConfig struct {
	Path string `yaml:"path" env:"HISTORY_DB_PATH" env-default:"./peni_history.db"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	IsDebug *bool `yaml:"is_debug" env-required:"true"`
	Listen  struct {
		Type   string `yaml:"type" env-default:"port"`
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"8080"`
	} `yaml:"listen"`
	CalcService CalcServiceConfig `yaml:"calc_service"`
	History     HistoryConfig     `yaml:"history"`
	CORS        CORSConfig        `yaml:"cors"`
}

var instance *Config
var once sync.Once

func GetConfig() *Config {
	once.Do(func() {
		logger := logging.GetLogger()
		logger.Info("read application configuration")
		instance = &Config{}
		if err := cleanenv.ReadConfig("./cmd/config/config.yml", instance); err != nil {
			help, _ := cleanenv.GetDescription(instance, nil)
			logger.Info(help)
			logger.Fatal(err)
		}
	})

	return instance
}
