package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Limits  LimitsConfig
	Memory  MemoryConfig
	Voice   VoiceConfig
	Log     LogConfig
	Content string // optional YAML content file
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	limits, err := loadLimitsConfig()
	if err != nil {
		return nil, err
	}

	memory, err := loadMemoryConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	color, err := parseBoolEnv("LOG_COLOR", true)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		LLM:    llm,
		Limits: limits,
		Memory: memory,
		Voice:  voice,
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
			Color:  color,
		},
		Content: strings.TrimSpace(os.Getenv("CONTENT_FILE")),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	MaxConcurrent int
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	maxConcurrent, err := parsePositiveIntEnv("MAX_CONCURRENT_REQUESTS", 64)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, MaxConcurrent: maxConcurrent}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, MaxConcurrent: maxConcurrent}, nil
}

// Provider 选择上游传输方式。
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderArk        Provider = "ark"
)

// LLMConfig 描述上游补全服务配置。Keys 从不写入日志。
type LLMConfig struct {
	Provider    Provider
	Keys        []string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	SiteURL     string
	SiteName    string
	Region      string
}

func loadLLMConfig() (LLMConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("LLM_PROVIDER", string(ProviderOpenRouter))))
	switch provider {
	case ProviderOpenRouter, ProviderArk:
	default:
		return LLMConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q: want openrouter or ark", provider)
	}

	maxTokens, err := parsePositiveIntEnv("LLM_MAX_TOKENS", 50)
	if err != nil {
		return LLMConfig{}, err
	}

	temperature := 0.5
	if override, err := parseOptionalFloatEnv("LLM_TEMPERATURE"); err != nil {
		return LLMConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	timeout, err := parseDurationEnv("LLM_TIMEOUT", 15*time.Second)
	if err != nil {
		return LLMConfig{}, err
	}

	keysRaw := os.Getenv("OPENROUTER_API_KEYS")
	if strings.TrimSpace(keysRaw) == "" {
		keysRaw = os.Getenv("LLM_API_KEYS")
	}

	defaultBase := "https://openrouter.ai/api/v1"
	defaultModel := "openai/gpt-3.5-turbo"
	if provider == ProviderArk {
		defaultBase = "https://ark.cn-beijing.volces.com/api/v3"
		defaultModel = ""
	}

	return LLMConfig{
		Provider:    provider,
		Keys:        splitList(keysRaw),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", defaultBase),
		Model:       getEnvOrDefault("LLM_MODEL", defaultModel),
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Timeout:     timeout,
		SiteURL:     strings.TrimSpace(os.Getenv("LLM_SITE_URL")),
		SiteName:    strings.TrimSpace(os.Getenv("LLM_SITE_NAME")),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}, nil
}

// LimitsConfig 汇总各组件的容量与时间窗口。
type LimitsConfig struct {
	CredentialCooldown  time.Duration
	DuplicateWindow     time.Duration
	DuplicateCapacity   int
	ConversationCap     int
	ConversationContext int
}

func loadLimitsConfig() (LimitsConfig, error) {
	var (
		cfg LimitsConfig
		err error
	)
	if cfg.CredentialCooldown, err = parseDurationEnv("CREDENTIAL_COOLDOWN", 60*time.Second); err != nil {
		return LimitsConfig{}, err
	}
	if cfg.DuplicateWindow, err = parseDurationEnv("DUPLICATE_WINDOW", 15*time.Second); err != nil {
		return LimitsConfig{}, err
	}
	if cfg.DuplicateCapacity, err = parsePositiveIntEnv("DUPLICATE_CAPACITY", 1000); err != nil {
		return LimitsConfig{}, err
	}
	if cfg.ConversationCap, err = parsePositiveIntEnv("CONVERSATION_CAP", 20); err != nil {
		return LimitsConfig{}, err
	}
	if cfg.ConversationContext, err = parsePositiveIntEnv("CONVERSATION_CONTEXT", 10); err != nil {
		return LimitsConfig{}, err
	}
	return cfg, nil
}

// MemoryConfig 选择对话存储后端。
type MemoryConfig struct {
	Backend string // file | sqlite
	Path    string
	DBPath  string
}

func loadMemoryConfig() (MemoryConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("MEMORY_BACKEND", "file"))
	if backend != "file" && backend != "sqlite" {
		return MemoryConfig{}, fmt.Errorf("invalid MEMORY_BACKEND value %q: want file or sqlite", backend)
	}
	return MemoryConfig{
		Backend: backend,
		Path:    getEnvOrDefault("MEMORY_PATH", "chat_memory.json"),
		DBPath:  getEnvOrDefault("MEMORY_DB_PATH", "data/bzik.db"),
	}, nil
}

// VoiceConfig 描述语音会话计时。
type VoiceConfig struct {
	ListenDuration time.Duration
	SilenceTimeout time.Duration
	SilenceGrace   time.Duration
	SweepInterval  time.Duration
}

func loadVoiceConfig() (VoiceConfig, error) {
	var (
		cfg VoiceConfig
		err error
	)
	if cfg.ListenDuration, err = parseDurationEnv("VOICE_LISTEN_DURATION", 120*time.Second); err != nil {
		return VoiceConfig{}, err
	}
	if cfg.SilenceTimeout, err = parseDurationEnv("VOICE_SILENCE_TIMEOUT", 25*time.Second); err != nil {
		return VoiceConfig{}, err
	}
	if cfg.SilenceGrace, err = parseDurationEnv("VOICE_SILENCE_GRACE", 5*time.Second); err != nil {
		return VoiceConfig{}, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("VOICE_SWEEP_INTERVAL", 30*time.Second); err != nil {
		return VoiceConfig{}, err
	}
	return cfg, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
	Color  bool
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

// splitList 解析逗号分隔的列表，忽略空项。
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, strconv.Itoa(*val))
	}
	return *val, nil
}

// parseDurationEnv 接受 Go duration（"15s"）或纯数字秒数（"15"）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, value)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, value)
	}
	return d, nil
}
