package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64 // requests per second per account on write endpoints
		RateBurst                 int
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // memory, postgres, sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file; ":memory:" allowed
	}

	RedisConfig struct {
		Address  string // leaderboard cache is disabled when empty
		Password string
		DB       int
	}

	LedgerConfig struct {
		RatingPolicy    string // unique, unlimited
		AutoWeeklyReset bool
	}

	Config struct {
		Env              string
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		defaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Ledger   LedgerConfig
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Darasi")
	v.SetDefault("secretKey", "d7#rk2!pq0$wl9x)a3+f^m5zq*e1v8b4c&y6h(o")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Darasi <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("debugHost", ":4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("rateLimit", 5.0)
	v.SetDefault("rateBurst", 10)
	v.SetDefault("disableReqLogs", false)

	v.SetDefault("dbEngine", "memory")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "darasi")
	v.SetDefault("dbUser", "darasi")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "darasi.db")

	v.SetDefault("redisAddress", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)

	v.SetDefault("ratingPolicy", "unique")
	v.SetDefault("autoWeeklyReset", false)
}

// NewConfig reads the configuration of the current environment.
// ENV selects the environment (DEV by default) and is used as the env vars prefix,
// e.g. DEV_DBENGINE=postgres.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("disableReqLogs", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:                   v.GetString("serverAddress"),
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("debugHost"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetFloat64("rateLimit"),
			RateBurst:                 v.GetInt("rateBurst"),
			DisableReqLogs:            v.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redisAddress"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Ledger: LedgerConfig{
			RatingPolicy:    v.GetString("ratingPolicy"),
			AutoWeeklyReset: v.GetBool("autoWeeklyReset"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: in-memory storage, no request logs.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.TestMode = true
	conf.Debug = true
	conf.Server.DisableReqLogs = true
	conf.Database.Engine = "memory"
	conf.Redis.Address = ""
	return conf
}
