package cfg

type Cfg struct {
	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Fetch pipeline configuration
	UserAgent      string
	RequestTimeout int // seconds
	CacheSize      int
	CacheTTL       int // seconds
	CacheSweep     int // seconds
	DenylistFile   string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
