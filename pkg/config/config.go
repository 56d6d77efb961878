package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Retention     RetentionConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	GoogleAds     GoogleAdsConfig
	Meta          MetaConversionsConfig
	Conversions   ConversionsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SAGEBROOK_APP_ENV" required:"true"`
	Port         string `envconfig:"SAGEBROOK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SAGEBROOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAGEBROOK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SAGEBROOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SAGEBROOK_DB_DSN"`
	Driver string `envconfig:"SAGEBROOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SAGEBROOK_DB_HOST"`
	LegacyPort     int    `envconfig:"SAGEBROOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SAGEBROOK_DB_USER"`
	LegacyPassword string `envconfig:"SAGEBROOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SAGEBROOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SAGEBROOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAGEBROOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAGEBROOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAGEBROOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAGEBROOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAGEBROOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SAGEBROOK_REDIS_ADDR"`
	Password     string        `envconfig:"SAGEBROOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAGEBROOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAGEBROOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAGEBROOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAGEBROOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAGEBROOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAGEBROOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SAGEBROOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SAGEBROOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SAGEBROOK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SAGEBROOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SAGEBROOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SAGEBROOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SAGEBROOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SAGEBROOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SAGEBROOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SAGEBROOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"SAGEBROOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"SAGEBROOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LeadWindow      time.Duration `envconfig:"SAGEBROOK_AUTH_RATE_LIMIT_LEAD_WINDOW" default:"5m"`
	LeadIPLimit     int           `envconfig:"SAGEBROOK_AUTH_RATE_LIMIT_LEAD_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SAGEBROOK_AUTO_MIGRATE" default:"false"`
}

type RetentionConfig struct {
	LeadPIIDays          int `envconfig:"SAGEBROOK_RETENTION_LEAD_PII_DAYS" default:"395"`
	NotificationDays     int `envconfig:"SAGEBROOK_RETENTION_NOTIFICATION_DAYS" default:"90"`
	RetentionScrubBatch  int `envconfig:"SAGEBROOK_RETENTION_SCRUB_BATCH" default:"500"`
	NotificationBatchCap int `envconfig:"SAGEBROOK_RETENTION_NOTIFICATION_BATCH" default:"1000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SAGEBROOK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SAGEBROOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SAGEBROOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SiteEventsTopic        string        `envconfig:"SAGEBROOK_PUBSUB_SITE_EVENTS_TOPIC" default:"sb-site-events"`
	SiteEventsSubscription string        `envconfig:"SAGEBROOK_PUBSUB_SITE_EVENTS_SUBSCRIPTION" required:"true"`
	EventIdempotencyTTL    time.Duration `envconfig:"SAGEBROOK_PUBSUB_EVENT_IDEMPOTENCY_TTL" default:"168h"`
}

type BigQueryConfig struct {
	Dataset                 string `envconfig:"SAGEBROOK_BIGQUERY_DATASET" default:"sagebrook"`
	SiteEventsTable         string `envconfig:"SAGEBROOK_BIGQUERY_SITE_EVENTS_TABLE" default:"site_events"`
	ConversionOutcomesTable string `envconfig:"SAGEBROOK_BIGQUERY_CONVERSION_OUTCOMES_TABLE" default:"conversion_outcomes"`
}

// GoogleAdsConfig carries the enhanced-conversion upload credentials. All
// fields empty means the environment has no Google ads configured, which the
// adapter treats as a non-fatal configuration condition.
type GoogleAdsConfig struct {
	DeveloperToken     string `envconfig:"SAGEBROOK_GOOGLE_ADS_DEVELOPER_TOKEN"`
	CustomerID         string `envconfig:"SAGEBROOK_GOOGLE_ADS_CUSTOMER_ID"`
	ConversionActionID string `envconfig:"SAGEBROOK_GOOGLE_ADS_CONVERSION_ACTION_ID"`
	LoginCustomerID    string `envconfig:"SAGEBROOK_GOOGLE_ADS_LOGIN_CUSTOMER_ID"`
	OAuthClientID      string `envconfig:"SAGEBROOK_GOOGLE_ADS_OAUTH_CLIENT_ID"`
	OAuthClientSecret  string `envconfig:"SAGEBROOK_GOOGLE_ADS_OAUTH_CLIENT_SECRET"`
	OAuthRefreshToken  string `envconfig:"SAGEBROOK_GOOGLE_ADS_OAUTH_REFRESH_TOKEN"`
	APIVersion         string `envconfig:"SAGEBROOK_GOOGLE_ADS_API_VERSION" default:"v21"`

	Timeout time.Duration `envconfig:"SAGEBROOK_GOOGLE_ADS_TIMEOUT" default:"10s"`
}

// Configured reports whether every credential needed for an upload is present.
func (g GoogleAdsConfig) Configured() bool {
	for _, v := range []string{
		g.DeveloperToken,
		g.CustomerID,
		g.ConversionActionID,
		g.OAuthClientID,
		g.OAuthClientSecret,
		g.OAuthRefreshToken,
	} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// MetaConversionsConfig carries the Conversions API credentials.
type MetaConversionsConfig struct {
	PixelID       string        `envconfig:"SAGEBROOK_META_PIXEL_ID"`
	AccessToken   string        `envconfig:"SAGEBROOK_META_ACCESS_TOKEN"`
	APIVersion    string        `envconfig:"SAGEBROOK_META_API_VERSION" default:"v21.0"`
	TestEventCode string        `envconfig:"SAGEBROOK_META_TEST_EVENT_CODE"`
	Timeout       time.Duration `envconfig:"SAGEBROOK_META_TIMEOUT" default:"10s"`
}

// Configured reports whether the pixel id and access token are both present.
func (m MetaConversionsConfig) Configured() bool {
	return strings.TrimSpace(m.PixelID) != "" && strings.TrimSpace(m.AccessToken) != ""
}

type ConversionsConfig struct {
	DefaultCountryCode string `envconfig:"SAGEBROOK_CONVERSIONS_DEFAULT_COUNTRY_CODE" default:"1"`
	DefaultCurrency    string `envconfig:"SAGEBROOK_CONVERSIONS_DEFAULT_CURRENCY" default:"USD"`
	DefaultLeadValue   string `envconfig:"SAGEBROOK_CONVERSIONS_DEFAULT_LEAD_VALUE" default:"50"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
