package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/postboard/internal/logger"
)

const (
	defaultListenAddr           = "localhost:8000"
	defaultLoggingLevel         = logger.LevelInfo
	defaultEnvironment          = logger.EnvProduction
	defaultHashAlgorithm        = "HS256"
	defaultAccessTokenLifetime  = 15   // minutes
	defaultRefreshTokenLifetime = 1440 // minutes
	defaultDatabasePort         = "5432"
	defaultLoginRateLimit       = 10 // attempts per minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	// If empty it is assembled from DatabaseHost, DatabasePort etc.
	DatabaseDSN      string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string

	// Secret key to sign tokens
	SecretKey string

	// HMAC algorithm to sign tokens with: HS256, HS384 or HS512
	HashAlgorithm string

	// Token lifetimes in minutes
	AccessTokenLifetime  int
	RefreshTokenLifetime int

	// Environment
	Environment string

	// Redis to throttle login attempts. Throttling disabled if empty
	RedisAddr string

	// Login attempts per minute from one IP
	LoginRateLimit int

	// Broker to publish domain events to. Events are dropped if empty
	AMQPURL        string
	EventsExchange string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:             defaultLoggingLevel,
		ListenAddr:           defaultListenAddr,
		Environment:          defaultEnvironment,
		HashAlgorithm:        defaultHashAlgorithm,
		AccessTokenLifetime:  defaultAccessTokenLifetime,
		RefreshTokenLifetime: defaultRefreshTokenLifetime,
		DatabasePort:         defaultDatabasePort,
		LoginRateLimit:       defaultLoginRateLimit,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"DATABASE_HOST":          setString(&c.DatabaseHost),
		"DATABASE_PORT":          setString(&c.DatabasePort),
		"DATABASE_USER":          setString(&c.DatabaseUser),
		"DATABASE_PASSWORD":      setString(&c.DatabasePassword),
		"DATABASE_DB":            setString(&c.DatabaseName),
		"SECRET_KEY":             setString(&c.SecretKey),
		"HASH_ALGORITHM":         setString(&c.HashAlgorithm),
		"ACCESS_TOKEN_LIFETIME":  setInt(&c.AccessTokenLifetime),
		"REFRESH_TOKEN_LIFETIME": setInt(&c.RefreshTokenLifetime),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"REDIS_ADDR":             setString(&c.RedisAddr),
		"LOGIN_RATE_LIMIT":       setInt(&c.LoginRateLimit),
		"AMQP_URL":               setString(&c.AMQPURL),
		"EVENTS_EXCHANGE":        setString(&c.EventsExchange),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("postboard", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVar(&c.HashAlgorithm, "hash-algorithm", c.HashAlgorithm, "Token signing algorithm (HS256, HS384, HS512)")
	fs.IntVar(&c.AccessTokenLifetime, "access-lifetime", c.AccessTokenLifetime, "Access token lifetime in minutes")
	fs.IntVar(&c.RefreshTokenLifetime, "refresh-lifetime", c.RefreshTokenLifetime, "Refresh token lifetime in minutes")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address to throttle login attempts")
	fs.IntVar(&c.LoginRateLimit, "login-rate-limit", c.LoginRateLimit, "Login attempts per minute from one IP")
	fs.StringVar(&c.AMQPURL, "amqp", c.AMQPURL, "AMQP broker URL to publish events to")
	fs.StringVar(&c.EventsExchange, "events-exchange", c.EventsExchange, "AMQP exchange for events")

	return fs.Parse(args)
}

// DSN returns DatabaseDSN or assembles it from database parts
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" || c.DatabaseHost == "" {
		return c.DatabaseDSN
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:   net.JoinHostPort(c.DatabaseHost, c.DatabasePort),
		Path:   "/" + c.DatabaseName,
	}
	return u.String()
}

func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.DSN() == "" {
		errs = append(errs, errors.New("database is required"))
	}
	switch c.HashAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("hash algorithm %q is not supported", c.HashAlgorithm))
	}
	if c.AccessTokenLifetime <= 0 || c.RefreshTokenLifetime <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("login rate limit must be positive"))
	}

	return errors.Join(errs...)
}
