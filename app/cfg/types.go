package cfg

type Cfg struct {
	// Storage configuration
	SourcesDir string
	DBPath     string

	// Application configuration
	Port           string
	WorkerCount    int
	APIAccessKey   string
	RequestTimeout int

	// Telegram user session for channel sources
	TelegramAPIID   int
	TelegramAPIHash string
	TelegramSession string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
