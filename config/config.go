package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Port     string `mapstructure:"port"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type StorageConfig struct {
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Region  string `mapstructure:"s3_region"`
	PublicURL string `mapstructure:"public_url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type UnsplashConfig struct {
	AccessKey string `mapstructure:"access_key"`
	BaseURL   string `mapstructure:"base_url"`
}

type DiagnosisConfig struct {
	TopN      int    `mapstructure:"top_n"`
	TablePath string `mapstructure:"table_path"`
	MaxLabels int    `mapstructure:"max_labels"`
}

type AdvisorConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type ChatConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	MaxTurns   int           `mapstructure:"max_turns"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type NotifyConfig struct {
	SNSTopicARN    string `mapstructure:"sns_topic_arn"`
	SNSPlatformARN string `mapstructure:"sns_platform_arn"`
	EmailFrom      string `mapstructure:"email_from"`
	EmailTo        string `mapstructure:"email_to"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the whole service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Unsplash  UnsplashConfig  `mapstructure:"unsplash"`
	Diagnosis DiagnosisConfig `mapstructure:"diagnosis"`
	Advisor   AdvisorConfig   `mapstructure:"advisor"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.port", "5432")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("unsplash.base_url", "https://api.unsplash.com")
	v.SetDefault("diagnosis.top_n", 5)
	v.SetDefault("diagnosis.max_labels", 20)
	v.SetDefault("advisor.enabled", true)
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("chat.session_ttl", 30*time.Minute)
	v.SetDefault("chat.max_turns", 40)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("metrics.enabled", true)

	// Keys without a default still need registering so env overrides reach Unmarshal.
	for _, k := range []string{
		"db.dsn", "db.host", "db.user", "db.password", "db.name",
		"aws.region", "storage.s3_bucket", "storage.s3_region", "storage.public_url",
		"gemini.api_key", "unsplash.access_key", "diagnosis.table_path",
		"notify.sns_topic_arn", "notify.sns_platform_arn", "notify.email_from", "notify.email_to", "auth.jwt_secret",
	} {
		v.SetDefault(k, "")
	}
}

// Load reads an optional .env file, an optional config file and HASIRU_* environment
// variables, in increasing order of precedence. An empty path searches for
// config.yaml in the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("HASIRU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyLegacyEnv()
	return &cfg, nil
}

// applyLegacyEnv honours the unprefixed variable names used by earlier deployments.
func (c *Config) applyLegacyEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&c.DB.Host, "DB_HOST")
	fill(&c.DB.User, "DB_USER")
	fill(&c.DB.Password, "DB_PASSWORD")
	fill(&c.DB.Name, "DB_NAME")
	fill(&c.AWS.Region, "AWS_REGION")
	fill(&c.Storage.S3Bucket, "S3_BUCKET")
	fill(&c.Storage.S3Region, "S3_REGION")
	fill(&c.Storage.PublicURL, "CLOUDFRONT_URL")
	fill(&c.Gemini.APIKey, "GEMINI_API_KEY")
	fill(&c.Unsplash.AccessKey, "UNSPLASH_ACCESS_KEY")
	fill(&c.Auth.JWTSecret, "JWT_SECRET")
	fill(&c.Notify.EmailFrom, "SES_EMAIL")
	fill(&c.Notify.SNSPlatformARN, "SNS_FCM_ARN")
	if c.Storage.S3Region == "" {
		c.Storage.S3Region = c.AWS.Region
	}
}
