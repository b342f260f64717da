package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Log        `yaml:"log"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Signup     `yaml:"signup"`
	Signin     `yaml:"signin"`
	Session    `yaml:"session"`
	Mail       `yaml:"mail"`
}

type Log struct {
	MaskSecrets bool `yaml:"mask_secrets" env:"LOG_MASK_SECRETS" env-default:"true"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"mail"`
}

type Signup struct {
	VerifyURL   string `yaml:"verify_url" env-default:"http://localhost:8080/sign/up/{token}?code={code}"`
	MaxAttempts int    `yaml:"max_attempts" env-default:"5"`
}

type Signin struct {
	VerifyURL   string        `yaml:"verify_url" env-default:"http://localhost:8080/sign/in/{token}?code={code}"`
	TokenTTL    time.Duration `yaml:"token_ttl" env-default:"1h"`
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
}

type Session struct {
	TTL               time.Duration `yaml:"ttl" env-default:"8760h"`
	AccessTokenTTL    time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	AccessTokenSecret string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	CookieSecure      bool          `yaml:"cookie_secure" env-default:"true"`
}

type Mail struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"MAIL_FROM" env-default:"noreply@hackers.pub"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &os.PathError{Op: "config", Path: configPath, Err: os.ErrNotExist}
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// * Path: флаг -config > переменная CONFIG_PATH > ./config/config.yaml
func Path(fs *flag.FlagSet, args []string) string {
	path, _ := ParsePath(fs, args)
	return path
}

// * ParsePath как Path, но возвращает ошибку разбора флагов.
// Остальные флаги регистрируются в fs до вызова; позиционные аргументы берутся из fs.Args()
func ParsePath(fs *flag.FlagSet, args []string) (string, error) {
	var path string

	fs.StringVar(&path, "config", "", "path to config file")
	err := fs.Parse(args)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	return path, err
}
