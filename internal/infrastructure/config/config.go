package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	ImageProviderCloudinary = "cloudinary"
	ImageProviderS3         = "s3"
)

type Config struct {
	Port        string        `env:"PORT,         default=4000"`
	Env         string        `env:"ENV,          default=development"`
	LogLevel    string        `env:"LOG_LEVEL,    default=info"`
	JWTSecret   string        `env:"JWT_SECRET,   required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=24h"`
	BodyLimit   string        `env:"BODY_LIMIT,   default=20M"`
	CORSOrigins []string      `env:"CORS_ORIGINS, default=*"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Images    ImageConfig
	Cars      CarsConfig
	RateLimit RateLimitConfig
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=car_marketplace"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

// RedisConfig: an empty Addr disables the car cache.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,  default=0"`
	CacheTTL time.Duration `env:"CACHE_TTL, default=5m"`
}

type ImageConfig struct {
	Provider    string `env:"IMAGE_PROVIDER,           default=cloudinary"`
	Folder      string `env:"IMAGE_FOLDER,             default=cars_images"`
	Concurrency int    `env:"IMAGE_UPLOAD_CONCURRENCY, default=4"`
	MaxBytes    int64  `env:"IMAGE_MAX_BYTES,          default=10485760"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION, default=us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

type CarsConfig struct {
	// ZeroOverwrites: when false, update treats 0 and "" as "not supplied".
	ZeroOverwrites bool `env:"UPDATE_ZERO_OVERWRITES, default=false"`
	SearchLimit    int  `env:"SEARCH_LIMIT,           default=100"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `env:"AUTH_RATE_LIMIT_RPS,   default=5"`
	AuthBurst int     `env:"AUTH_RATE_LIMIT_BURST, default=10"`

	// TrustProxy keys clients on X-Forwarded-For from private-range proxies.
	TrustProxy bool `env:"TRUST_PROXY, default=false"`
}

// IsDevelopment reports whether pretty logging and swagger defaults apply.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the process environment using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from an arbitrary lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Images.Concurrency < 1 {
		errs = append(errs, errors.New("IMAGE_UPLOAD_CONCURRENCY must be at least 1"))
	}
	if c.Images.MaxBytes < 1 {
		errs = append(errs, errors.New("IMAGE_MAX_BYTES must be positive"))
	}
	if c.Cars.SearchLimit < 1 {
		errs = append(errs, errors.New("SEARCH_LIMIT must be at least 1"))
	}

	switch strings.ToLower(c.Images.Provider) {
	case ImageProviderCloudinary:
		if c.Images.CloudinaryCloudName == "" || c.Images.CloudinaryAPIKey == "" || c.Images.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("cloudinary provider requires CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET"))
		}
	case ImageProviderS3:
		if c.Images.S3Bucket == "" {
			errs = append(errs, errors.New("s3 provider requires S3_BUCKET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_PROVIDER %q", c.Images.Provider))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
