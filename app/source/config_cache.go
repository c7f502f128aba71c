package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lysyi3m/mail-comb/app/channel"
	"github.com/lysyi3m/mail-comb/app/feed"
	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source loaded", "source", sourceName, "kind", config.Kind)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = sourceName

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
}

// GetConfigs returns the loaded sources ordered by name.
func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		configs = append(configs, v)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
	return configs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if s := sourceConfig.Feed; s != nil {
		if s.Format == "" {
			s.Format = feed.FormatJSON
		}
		if s.Scan == "" {
			s.Scan = feed.ScanBody
		}
		if s.PageSize == 0 {
			s.PageSize = feed.DefaultPageSize
		}
		if s.Concurrency == 0 {
			s.Concurrency = feed.DefaultConcurrency
		}
		if s.PageDelay == 0 {
			s.PageDelay = 1
		}
		if s.RetryDelay == 0 {
			s.RetryDelay = 1
		}
	}

	if s := sourceConfig.Channel; s != nil {
		if s.Mode == "" {
			s.Mode = string(channel.ModeText)
		}
		if s.DocumentExt == "" {
			s.DocumentExt = channel.DefaultDocumentExt
		}
		if s.SectionStart == "" {
			s.SectionStart = channel.DefaultSectionStart
		}
		if s.SectionEnd == "" {
			s.SectionEnd = channel.DefaultSectionEnd
		}
		if s.PreviewURL == "" {
			s.PreviewURL = channel.DefaultPreviewURL
		}
		if s.RequestsPerSecond == 0 {
			s.RequestsPerSecond = 1
		}
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}
	if sourceConfig.Name == "" {
		return fmt.Errorf("source name is required")
	}

	switch sourceConfig.Kind {
	case KindFeed:
		return validateFeed(sourceConfig.Feed)
	case KindChannel:
		return validateChannel(sourceConfig.Channel)
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind: %s", sourceConfig.Kind)
	}
}

func validateFeed(s *FeedSettings) error {
	if s == nil {
		return fmt.Errorf("feed settings are required")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("feed base URL is required")
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for i, category := range s.Categories {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("category at index %d is empty", i)
		}
	}

	if _, err := feed.NewDecoder(s.Format); err != nil {
		return err
	}
	if _, err := feed.NewPageScanner(s.Scan); err != nil {
		return err
	}

	nonNegativeFields := map[string]float64{
		"page size":   float64(s.PageSize),
		"concurrency": float64(s.Concurrency),
		"page delay":  s.PageDelay,
		"retry delay": s.RetryDelay,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func validateChannel(s *ChannelSettings) error {
	if s == nil {
		return fmt.Errorf("channel settings are required")
	}
	if s.Name == "" {
		return fmt.Errorf("channel name is required")
	}

	switch channel.Mode(s.Mode) {
	case channel.ModeText, channel.ModeDocument:
	default:
		return fmt.Errorf("unknown channel mode: %s", s.Mode)
	}

	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be non-negative")
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}
