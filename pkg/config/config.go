package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	DB          DBConfig          `yaml:"db"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// ServerConfig HTTP 服务相关配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
	Env     string `yaml:"env"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// SearchConfig 三路搜索来源配置，任一凭证缺失时该来源降级为空结果
type SearchConfig struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Naver   NaverConfig   `yaml:"naver"`
	News    NewsConfig    `yaml:"news"`
	Limit   int           `yaml:"limit"` // 每路来源最多返回条数
}

// YouTubeConfig YouTube Data API 配置
type YouTubeConfig struct {
	APIKey string `yaml:"api_key"`
}

// NaverConfig Naver 开放平台配置
type NaverConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// NewsConfig NewsAPI 配置
type NewsConfig struct {
	APIKey string `yaml:"api_key"`
}

// DBConfig 数据库相关配置，DSN 为空时使用内存存储
type DBConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig LLM 调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// LoadConfig 从指定路径加载配置，文件缺失时仅使用环境变量与默认值
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv 环境变量优先于配置文件
func (c *Config) applyEnv() {
	setIfEnv(&c.LLM.APIKey, "OPENAI_API_KEY")
	setIfEnv(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setIfEnv(&c.LLM.Model, "OPENAI_MODEL")
	setIfEnv(&c.Search.YouTube.APIKey, "YOUTUBE_API_KEY")
	setIfEnv(&c.Search.Naver.ClientID, "NAVER_CLIENT_ID")
	setIfEnv(&c.Search.Naver.ClientSecret, "NAVER_CLIENT_SECRET")
	setIfEnv(&c.Search.News.APIKey, "NEWS_API_KEY")
	setIfEnv(&c.DB.DSN, "DATABASE_URL")
	setIfEnv(&c.Server.Env, "APP_ENV")

	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Server.Addr = ":" + port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.Timeout == "" {
		c.Server.Timeout = "120s"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 2
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
