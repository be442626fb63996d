package config

// holds all runtime configuration for the server
type Config struct {
	SupabaseConnString string
	RedisURL           string
	JWTSecret          string
	Environment        string

	// upstream credentials, already filtered of blanks and placeholders
	MusicAPIKeys []string
	VideoAPIKeys []string

	// base URLs are overridable for staging and tests
	MusicAPIBaseURL string
	VideoAPIBaseURL string

	// CORS origins allowed to call the API
	AllowedOrigins []string

	// per-user request rate in ulule formatted notation, e.g. "60-H"
	RateLimit string
}
