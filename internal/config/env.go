package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultMusicAPIBaseURL = "https://api.kie.ai"
	defaultVideoAPIBaseURL = "https://api.wavespeed.ai"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	supabaseConnStr := os.Getenv("SUPABASE_CONNECTION_STRING")
	redisURL := os.Getenv("REDIS_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	environment := os.Getenv("ENVIRONMENT")

	if supabaseConnStr == "" {
		return nil, fmt.Errorf("SUPABASE_CONNECTION_STRING environment variable is required")
	}

	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL environment variable is required")
	}

	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if environment == "" {
		environment = "development"
	}

	musicBaseURL := os.Getenv("MUSIC_API_BASE_URL")
	if musicBaseURL == "" {
		musicBaseURL = defaultMusicAPIBaseURL
	}

	videoBaseURL := os.Getenv("VIDEO_API_BASE_URL")
	if videoBaseURL == "" {
		videoBaseURL = defaultVideoAPIBaseURL
	}

	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = nil
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	rateLimit := os.Getenv("RATE_LIMIT")
	if rateLimit == "" {
		rateLimit = "60-H"
	}

	return &Config{
		SupabaseConnString: supabaseConnStr,
		RedisURL:           redisURL,
		JWTSecret:          jwtSecret,
		Environment:        environment,
		MusicAPIKeys:       LoadKeyList("SUNO_API_KEYS", "SUNO_API_KEY"),
		VideoAPIKeys:       LoadKeyList("WAVESPEED_API_KEYS", "WAVESPEED_API_KEY"),
		MusicAPIBaseURL:    musicBaseURL,
		VideoAPIBaseURL:    videoBaseURL,
		AllowedOrigins:     origins,
		RateLimit:          rateLimit,
	}, nil
}

// reads an ordered list of upstream API keys from the environment.
// listVar holds a comma or newline separated list; legacyVar is the old
// single-key variable kept for backwards compatibility. Blank and
// placeholder entries are dropped. An empty result is not an error here -
// the dispatcher reports exhaustion when the pool is actually used.
func LoadKeyList(listVar, legacyVar string) []string {
	raw := os.Getenv(listVar)

	if raw == "" {
		if legacy := strings.TrimSpace(os.Getenv(legacyVar)); legacy != "" && !isPlaceholder(legacy) {
			return []string{legacy}
		}
		return nil
	}

	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	keys := make([]string, 0, len(split))
	for _, entry := range split {
		entry = strings.TrimSpace(entry)
		if entry == "" || isPlaceholder(entry) {
			continue
		}
		keys = append(keys, entry)
	}

	return keys
}

// filters out values copied straight from example env files
func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)

	return lower == "changeme" ||
		strings.HasPrefix(lower, "your-") ||
		strings.HasPrefix(lower, "your_") ||
		strings.Contains(lower, "api-key-here") ||
		strings.Contains(lower, "api_key_here")
}
