package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Chatbot   ChatbotConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chatbot, err := loadChatbotConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chatbot: chatbot, RateLimit: rateLimit}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr              string
	WidgetEnabled     bool
	WidgetStoreDriver string
	WidgetStorePath   string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	widget, err := parseBoolEnv("WIDGET_ENABLED", true)
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		WidgetEnabled:     widget,
		WidgetStoreDriver: strings.ToLower(getEnvOrDefault("WIDGET_STORE", "sqlite")),
		WidgetStorePath:   getEnvOrDefault("WIDGET_STORE_PATH", filepath.Join("data", "widget.db")),
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// ChatbotConfig 描述聊天客户端（终端与挂件桥接）的配置。
type ChatbotConfig struct {
	Endpoint    string
	Timeout     time.Duration
	StoreDriver string
	StorePath   string
}

func loadChatbotConfig() (ChatbotConfig, error) {
	timeout, err := parseDurationEnv("CHATBOT_TIMEOUT", 0)
	if err != nil {
		return ChatbotConfig{}, err
	}
	if timeout < 0 {
		return ChatbotConfig{}, fmt.Errorf("invalid CHATBOT_TIMEOUT value %q: must not be negative", os.Getenv("CHATBOT_TIMEOUT"))
	}

	driver := strings.ToLower(getEnvOrDefault("CHATBOT_STORE", "file"))
	defaultPath := filepath.Join(defaultDataDir(), "chatbot.json")
	if driver == "sqlite" {
		defaultPath = filepath.Join(defaultDataDir(), "chatbot.db")
	}

	return ChatbotConfig{
		Endpoint:    getEnvOrDefault("CHATBOT_ENDPOINT", "http://localhost:8080/api/chatbot/ask"),
		Timeout:     timeout,
		StoreDriver: driver,
		StorePath:   getEnvOrDefault("CHATBOT_STORE_PATH", defaultPath),
	}, nil
}

// RateLimitConfig 控制问答接口的限流。
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Enabled 表示是否开启限流。
func (c RateLimitConfig) Enabled() bool {
	return c.PerSecond > 0 && c.Burst > 0
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{PerSecond: 1, Burst: 5}

	perSecond, err := parseOptionalFloatEnv("ASK_RATE_PER_SEC")
	if err != nil {
		return RateLimitConfig{}, err
	}
	if perSecond != nil {
		cfg.PerSecond = *perSecond
	}

	burst, err := parseOptionalIntEnv("ASK_RATE_BURST")
	if err != nil {
		return RateLimitConfig{}, err
	}
	if burst != nil {
		cfg.Burst = *burst
	}

	return cfg, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pawshop")
	}
	return ".pawshop"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
