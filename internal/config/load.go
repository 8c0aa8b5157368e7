package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load builds the configuration in ascending precedence: built-in defaults,
// then the optional config file, then environment variables. A missing .env
// file or config file is not an error.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("crawlchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/crawlchat")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// decode maps the merged settings onto the typed config. Weak typing
// matters here: environment values always arrive as strings.
func decode(settings map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(settings)
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"app.name":        "crawlchat",
		"app.version":     "dev",
		"app.environment": "development",
		"app.debug":       false,

		"logger.level":        "info",
		"logger.encoding":     "json",
		"logger.output_paths": []string{"stdout"},
		"logger.caller":       true,

		"server.address":          ":8080",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.allowed_origins":  []string{"*"},

		"proxy.base_url":     "https://api.scrapingant.com/v2/general",
		"proxy.country_code": "usa",
		"proxy.timeout":      "90s",
		"proxy.cache_ttl":    "1h",
		"proxy.user_agent":   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",

		"object_store.endpoint": "localhost:9000",
		"object_store.region":   "us-east-1",
		"object_store.bucket":   "crawlchat",
		"object_store.use_ssl":  false,

		"metadata.uri":      "mongodb://localhost:27017",
		"metadata.database": "crawlchat",

		"redis.url":           "redis://localhost:6379/0",
		"redis.stream_prefix": "crawlchat",

		"vector.provider": "chromem",
		"vector.host":     "localhost",
		"vector.port":     6334,
		"vector.use_tls":  false,

		"embedding.base_url":   "https://api.openai.com/v1",
		"embedding.model":      "text-embedding-3-small",
		"embedding.dimension":  1536,
		"embedding.batch_size": 100,
		"embedding.timeout":    "30s",

		"llm.model":          "gpt-4o-mini",
		"llm.max_tokens":     4000,
		"llm.temperature":    0.1,
		"llm.context_window": 16000,

		"ocr.region": "us-east-1",

		"crawler.max_documents":  10,
		"crawler.max_depth":      2,
		"crawler.max_pages":      50,
		"crawler.max_threads":    3,
		"crawler.batch_delay":    "3s",
		"crawler.respect_robots": true,

		"chat.history_limit":     5,
		"chat.max_passages":      15,
		"chat.numeric_cache_ttl": "30m",

		"worker.concurrency":   3,
		"worker.claim_idle":    "30s",
		"worker.block_timeout": "5s",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// bindEnvVars maps the environment variables deployments actually set onto
// config keys whose dotted form does not line up with the variable name.
func bindEnvVars(v *viper.Viper) {
	binds := map[string]string{
		"app.environment": "APP_ENV",

		"server.address": "SERVER_ADDRESS",

		"proxy.api_key":      "PROXY_API_KEY",
		"proxy.country_code": "DEFAULT_COUNTRY_CODE",

		"object_store.endpoint":   "OBJECT_STORE_ENDPOINT",
		"object_store.region":     "OBJECT_STORE_REGION",
		"object_store.bucket":     "OBJECT_STORE_BUCKET",
		"object_store.access_key": "OBJECT_STORE_ACCESS_KEY",
		"object_store.secret_key": "OBJECT_STORE_SECRET_KEY",
		"object_store.use_ssl":    "OBJECT_STORE_USE_SSL",

		"metadata.uri":      "METADATA_URI",
		"metadata.database": "METADATA_DB",

		"redis.url": "WORKER_QUEUE_URL",

		"vector.provider": "VECTOR_PROVIDER",
		"vector.host":     "VECTOR_HOST",
		"vector.port":     "VECTOR_PORT",
		"vector.api_key":  "VECTOR_API_KEY",

		"embedding.api_key":   "EMBEDDING_API_KEY",
		"embedding.base_url":  "EMBEDDING_BASE_URL",
		"embedding.model":     "EMBEDDING_MODEL",
		"embedding.dimension": "EMBEDDING_DIMENSION",

		"llm.api_key":     "LLM_API_KEY",
		"llm.base_url":    "LLM_BASE_URL",
		"llm.model":       "LLM_MODEL",
		"llm.max_tokens":  "LLM_MAX_TOKENS",
		"llm.temperature": "LLM_TEMPERATURE",

		"ocr.region": "OCR_REGION",
	}
	for key, env := range binds {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key, env)
	}
}
