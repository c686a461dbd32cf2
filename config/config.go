package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL"`
	Postgres          Postgres
	Telegram          Telegram
	Redis             Redis
	API               API
	Cache             Cache
	Jobs              Jobs
	GoogleDrive       GoogleDrive
	Ledger            Ledger
	Advisor           Advisor
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Telegram struct {
	Token      string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT"`
	// OwnerChatID is the only chat the bot talks to. The ledger is
	// single-user, everyone else gets rejected by the middleware.
	OwnerChatID int64 `env:"TELEGRAM_OWNER_CHAT_ID"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug     bool          `env:"API_DEBUG"`
	Timeout   time.Duration `env:"API_TIMEOUT"`
	MarketApi MarketApi
}

type MarketApi struct {
	Url            string          `env:"MARKET_API_URL"`
	FxTicker       string          `env:"MARKET_API_FX_TICKER" envDefault:"KRW=X"`
	FallbackFxRate decimal.Decimal `env:"MARKET_API_FALLBACK_FX_RATE" envDefault:"1450"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION"`
}

type Jobs struct {
	AdvisorInterval      time.Duration `env:"ADVISOR_JOB_INTERVAL"`
	DriveCleanupInterval time.Duration `env:"DRIVE_CLEANUP_JOB_INTERVAL"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL"`
}

type Ledger struct {
	ResetEpsilonUSD decimal.Decimal `env:"LEDGER_RESET_EPSILON_USD" envDefault:"0.1"`
	TaxAllowanceKRW decimal.Decimal `env:"LEDGER_TAX_ALLOWANCE_KRW" envDefault:"2500000"`
	TaxRate         decimal.Decimal `env:"LEDGER_TAX_RATE" envDefault:"0.22"`
	StrictUnderflow bool            `env:"LEDGER_STRICT_UNDERFLOW" envDefault:"false"`
}

type Advisor struct {
	// GapRatioThreshold: alert when spot rate / average cost drops below it.
	GapRatioThreshold decimal.Decimal `env:"ADVISOR_GAP_RATIO_THRESHOLD" envDefault:"0.985"`
	MinIdleKRW        decimal.Decimal `env:"ADVISOR_MIN_IDLE_KRW" envDefault:"100000"`
	ExchangeFraction  decimal.Decimal `env:"ADVISOR_EXCHANGE_FRACTION" envDefault:"0.5"`
	IdleUSDThreshold  decimal.Decimal `env:"ADVISOR_IDLE_USD_THRESHOLD" envDefault:"500"`
	DipChangePct      decimal.Decimal `env:"ADVISOR_DIP_CHANGE_PCT" envDefault:"-2.0"`
	HighRateKRW       decimal.Decimal `env:"ADVISOR_HIGH_RATE_KRW" envDefault:"1460"`
	WatchTicker       string          `env:"ADVISOR_WATCH_TICKER" envDefault:"QQQM"`
	ParkTicker        string          `env:"ADVISOR_PARK_TICKER" envDefault:"SGOV"`
	// TargetRatios drive the rebalance plan, e.g. SGOV:0.30,SPYM:0.35,QQQM:0.35
	TargetRatios map[string]float64 `env:"ADVISOR_TARGET_RATIOS" envDefault:"SGOV:0.30,SPYM:0.35,QQQM:0.35"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
