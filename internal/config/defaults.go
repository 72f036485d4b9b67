package config

const (
	defaultLogDir    = "~/.local/share/llmcall/logs"
	defaultCacheFile = "~/.local/share/llmcall/llm_cache.json"

	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com"
	defaultGeminiModel          = "models/gemini-2.5-pro"
	defaultGeminiTimeoutSeconds = 180

	defaultMaxRetries                = 20
	defaultBaseWaitSeconds           = 15
	defaultMaxWaitSeconds            = 60
	defaultConnectionErrorThreshold  = 10
	defaultConnectionCooldownSeconds = 180

	defaultMaxChunkSize        = 200000
	defaultChunkTimeoutSeconds = 180
	defaultChunkRetries        = 3

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			CacheFile: defaultCacheFile,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Retry: Retry{
			MaxRetries:                defaultMaxRetries,
			BaseWaitSeconds:           defaultBaseWaitSeconds,
			MaxWaitSeconds:            defaultMaxWaitSeconds,
			ConnectionErrorThreshold:  defaultConnectionErrorThreshold,
			ConnectionCooldownSeconds: defaultConnectionCooldownSeconds,
		},
		Chunking: Chunking{
			MaxChunkSize:        defaultMaxChunkSize,
			ChunkTimeoutSeconds: defaultChunkTimeoutSeconds,
			ChunkRetries:        defaultChunkRetries,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
