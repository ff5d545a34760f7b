package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret           string `env:"JWT_SECRET,required"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRememberTTLHours int    `env:"JWT_REMEMBER_TTL_HOURS" envDefault:"24"`
	JWTRefreshTTLHours  int    `env:"JWT_REFRESH_TTL_HOURS" envDefault:"168"`

	BcryptCost           int  `env:"BCRYPT_COST" envDefault:"12"`
	PasswordMinLength    int  `env:"PASSWORD_MIN_LENGTH" envDefault:"6"`
	PasswordRequireMixed bool `env:"PASSWORD_REQUIRE_MIXED" envDefault:"false"`

	LockoutThreshold int `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutMinutes   int `env:"LOCKOUT_MINUTES" envDefault:"30"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GoogleClientID    string `env:"GOOGLE_CLIENT_ID"`
	FacebookAppID     string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"FACEBOOK_APP_SECRET"`
	RecaptchaSecret   string `env:"RECAPTCHA_SECRET_KEY"`
}

// IsProduction indica si las cookies deben marcarse Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
