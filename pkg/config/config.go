package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = "CARTFOLD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Config aggregates every runtime setting the services need.
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Media         MediaConfig
	GCS           GCSConfig
	GCP           GCPConfig
	FeatureFlags  FeatureFlagsConfig
}

// Load reads the full configuration from the environment.
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
	Env          string `envconfig:"CARTFOLD_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTFOLD_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CARTFOLD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTFOLD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"CARTFOLD_DB_DSN"`

	Host     string `envconfig:"CARTFOLD_DB_HOST"`
	Port     int    `envconfig:"CARTFOLD_DB_PORT" default:"5432"`
	User     string `envconfig:"CARTFOLD_DB_USER"`
	Password string `envconfig:"CARTFOLD_DB_PASSWORD"`
	Name     string `envconfig:"CARTFOLD_DB_NAME"`
	SSLMode  string `envconfig:"CARTFOLD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTFOLD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTFOLD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTFOLD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTFOLD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTFOLD_REDIS_URL" required:"true"`
	Password     string        `envconfig:"CARTFOLD_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTFOLD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTFOLD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTFOLD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTFOLD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTFOLD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTFOLD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CARTFOLD_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CARTFOLD_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CARTFOLD_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"CARTFOLD_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARTFOLD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARTFOLD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARTFOLD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARTFOLD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARTFOLD_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CARTFOLD_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CARTFOLD_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CARTFOLD_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CARTFOLD_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CARTFOLD_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CARTFOLD_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"CARTFOLD_MAX_UPLOAD_MB" default:"5"`
}

// MaxUploadBytes converts the configured limit into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) << 20
}

type GCSConfig struct {
	BucketName string `envconfig:"CARTFOLD_GCS_BUCKET_NAME"`
}

type GCPConfig struct {
	CredentialsJSON        string `envconfig:"CARTFOLD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARTFOLD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTFOLD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"CARTFOLD_DB_HOST": db.Host,
		"CARTFOLD_DB_USER": db.User,
		"CARTFOLD_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either CARTFOLD_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
