package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "MARKET_DIGEST_CONFIG"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
	geminiModelEnv   = "GEMINI_MODEL"
	smtpPasswordEnv  = "SMTP_PASSWORD"
	cefEmailEnv      = "CEF_EMAIL"
	cefPasswordEnv   = "CEF_PASSWORD"
	marketDBPathEnv  = "MARKET_DB_PATH"
	newsDBPathEnv    = "NEWS_DB_PATH"
	outputDirPathEnv = "OUTPUT_DIR"
)

// Config holds every setting shared across collectors, the news pipeline and
// the report. It is built once at startup and passed by reference, so tests
// can inject their own thresholds.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	News      NewsConfig      `yaml:"news"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Translate TranslateConfig `yaml:"translate"`
	Mail      MailConfig      `yaml:"mail"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	CEF       CEFConnectAuth  `yaml:"cefconnect"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig locates the two sqlite files and the report directory.
type StorageConfig struct {
	MarketDBPath string `yaml:"marketDbPath"`
	NewsDBPath   string `yaml:"newsDbPath"`
	OutputDir    string `yaml:"outputDir"`
}

// NewsConfig drives the RSS pipeline.
type NewsConfig struct {
	Feeds           []string         `yaml:"feeds"`
	Days            int              `yaml:"days"`
	TargetLanguage  string           `yaml:"targetLanguage"`
	BlockedKeywords []string         `yaml:"blockedKeywords"`
	Categories      []CategoryConfig `yaml:"categories"`
}

// CategoryConfig maps a report category to the keywords that select it.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// GeminiConfig defines how to contact the Gemini API. An empty APIKey
// disables LLM classification and falls back to plain translation.
type GeminiConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// TranslateConfig points at a LibreTranslate-compatible endpoint.
type TranslateConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// MailConfig wires SMTP delivery of the finished report.
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	From     string   `yaml:"from"`
	Password string   `yaml:"password"`
	To       []string `yaml:"to"`
}

// StrategyConfig groups the per-strategy thresholds.
type StrategyConfig struct {
	CEF   CEFConfig   `yaml:"cef"`
	SPAC  SPACConfig  `yaml:"spac"`
	LOF   FundConfig  `yaml:"lof"`
	QDII  FundConfig  `yaml:"qdii"`
	Cbond CbondConfig `yaml:"cbond"`
}

// CEFConfig filters closed-end funds on discount, z-score and liquidity.
type CEFConfig struct {
	MinDiscount  float64 `yaml:"minDiscount"`
	MaxZScore    float64 `yaml:"maxZscore"`
	MinVolumeUSD float64 `yaml:"minVolumeUsd"`
}

// SPACConfig filters SPACs on yield-to-redemption and entry price range.
type SPACConfig struct {
	MinYield float64 `yaml:"minYield"`
	MinPrice float64 `yaml:"minPrice"`
	MaxPrice float64 `yaml:"maxPrice"`
}

// FundConfig filters LOF/QDII funds on premium and liquidity. Share and
// turnover thresholds are absolute values; vendors report both in units of
// 10,000 (wan).
type FundConfig struct {
	MinPremiumRate float64 `yaml:"minPremiumRate"`
	MinFundShare   float64 `yaml:"minFundShare"`
	MinTurnover    float64 `yaml:"minTurnover"`
}

// MinFundShareWan converts the share threshold to the vendor's wan unit.
func (f FundConfig) MinFundShareWan() float64 { return f.MinFundShare / 10000.0 }

// MinTurnoverWan converts the turnover threshold to the vendor's wan unit.
func (f FundConfig) MinTurnoverWan() float64 { return f.MinTurnover / 10000.0 }

// CbondConfig filters convertible bonds on double-low and putback proximity.
type CbondConfig struct {
	MaxDoubleLow    float64 `yaml:"maxDblow"`
	MaxPutbackPrice float64 `yaml:"maxPutbackPrice"`
	MaxPutbackYears float64 `yaml:"maxPutbackYears"`
}

// CEFConnectAuth carries the cefconnect.com login.
type CEFConnectAuth struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// PacingConfig bounds the random sleeps between vendor requests.
type PacingConfig struct {
	MinSeconds float64 `yaml:"minSeconds"`
	MaxSeconds float64 `yaml:"maxSeconds"`
}

// SchedulerConfig defines the daemon-mode rerun interval and timezone.
type SchedulerConfig struct {
	IntervalHours int            `yaml:"intervalHours"`
	Timezone      string         `yaml:"timezone"`
	location      *time.Location `yaml:"-"`
}

// Interval returns the rerun period, defaulting to one day.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.IntervalHours) * time.Hour
}

// Location resolves the configured timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) and applies .env plus
// environment overrides.
func Load() *Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.News.Feeds) == 0 {
		cfg.News.Feeds = defaultConfig().News.Feeds
	}
	if len(cfg.News.Categories) == 0 {
		cfg.News.Categories = defaultConfig().News.Categories
	}

	return &cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv(cefEmailEnv); v != "" {
		c.CEF.Email = v
	}
	if v := os.Getenv(cefPasswordEnv); v != "" {
		c.CEF.Password = v
	}
	if v := os.Getenv(marketDBPathEnv); v != "" {
		c.Storage.MarketDBPath = v
	}
	if v := os.Getenv(newsDBPathEnv); v != "" {
		c.Storage.NewsDBPath = v
	}
	if v := os.Getenv(outputDirPathEnv); v != "" {
		c.Storage.OutputDir = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			MarketDBPath: "data/finance_data.db",
			NewsDBPath:   "data/news_data.db",
			OutputDir:    "output",
		},
		News: NewsConfig{
			Feeds: []string{
				"https://techcrunch.com/category/artificial-intelligence/feed/",
				"https://cn.nytimes.com/rss/",
				"https://www.lefigaro.fr/rss/figaro_actualites.xml",
				"https://plink.anyfeeder.com/bbc/world",
			},
			Days:           1,
			TargetLanguage: "en",
			Categories: []CategoryConfig{
				{Name: "Tech", Keywords: []string{"ai", "chip", "startup", "software", "robot", "semiconductor"}},
				{Name: "Economy", Keywords: []string{"market", "inflation", "economy", "trade", "tariff", "bank", "stocks"}},
				{Name: "Politics", Keywords: []string{"election", "government", "president", "parliament", "minister", "sanction"}},
				{Name: "Others", Keywords: nil},
			},
		},
		Gemini: GeminiConfig{
			Endpoint: "https://generativelanguage.googleapis.com",
			Model:    "gemini-2.0-flash",
		},
		Translate: TranslateConfig{Endpoint: "https://libretranslate.com/translate"},
		Mail: MailConfig{
			Host: "smtp.gmail.com",
			Port: 465,
		},
		Strategy: StrategyConfig{
			CEF:   CEFConfig{MinDiscount: -8.0, MaxZScore: -2.0, MinVolumeUSD: 500000},
			SPAC:  SPACConfig{MinYield: 0.01, MinPrice: 9.5, MaxPrice: 9.99},
			LOF:   FundConfig{MinPremiumRate: 5.0, MinFundShare: 20000000, MinTurnover: 1000000},
			QDII:  FundConfig{MinPremiumRate: 5.0, MinFundShare: 20000000, MinTurnover: 1000000},
			Cbond: CbondConfig{MaxDoubleLow: 195.0, MaxPutbackPrice: 103.0, MaxPutbackYears: 2.0},
		},
		Pacing:    PacingConfig{MinSeconds: 1, MaxSeconds: 3},
		Scheduler: SchedulerConfig{IntervalHours: 24, Timezone: defaultTimezone, location: tz},
	}
}
