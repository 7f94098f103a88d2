package config

import (
	"github.com/spf13/viper"
	"sync"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("poll_interval_seconds", "POLL_INTERVAL_SECONDS")
		viper.BindEnv("fmp_api_key", "FMP_API_KEY")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("whatsapp_access_token", "WHATSAPP_ACCESS_TOKEN")
		viper.BindEnv("whatsapp_phone_number_id", "WHATSAPP_PHONE_NUMBER_ID")
		viper.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
		viper.BindEnv("resend_api_key", "RESEND_API_KEY")
		viper.BindEnv("email_from", "EMAIL_FROM")
		viper.BindEnv("frontend_url", "FRONTEND_URL")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("db_path", "/app/data/marketwatch.db")
		viper.SetDefault("poll_interval_seconds", 30)
		viper.SetDefault("email_from", "MarketWatch AI <alerts@marketwatchai.com>")
		viper.SetDefault("frontend_url", "http://localhost:3000")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
