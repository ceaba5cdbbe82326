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
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		SessionTTL                time.Duration
		SessionCookieName         string
		SessionCookieSecure       bool
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
		MaxIdleConns  int
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	Config struct {
		AppName                   string
		Build                     string
		Env                       string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration
		SendgridApiKey            string
		ExpoAccessToken           string
		RollbarToken              string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "Lanes")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "k2#v7u!f@x9q0w$e-lanes-insecure-dev-key-r8t&p3z")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Lanes")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("expoAccessToken", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server.sessionTTL", 14*24*time.Hour)
	v.SetDefault("server.sessionCookieName", "lanes_session")
	v.SetDefault("server.sessionCookieSecure", false)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "lanes")
	v.SetDefault("database.user", "lanes")
	v.SetDefault("database.password", "lanes")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// NewConfig loads the configuration from the environment.
// ENV selects the variables prefix: DEV (local; default), TEST, QA, PROD.
// e.g. PROD_DATABASE_HOST overrides database.host when ENV=PROD.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		ExpoAccessToken:           v.GetString("expoAccessToken"),
		RollbarToken:              v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			SessionTTL:                v.GetDuration("server.sessionTTL"),
			SessionCookieName:         v.GetString("server.sessionCookieName"),
			SessionCookieSecure:       v.GetBool("server.sessionCookieSecure"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: quiet, deterministic, no external services.
func NewTestConfig() *Config {
	return &Config{
		AppName:                   "Lanes",
		Build:                     "test",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Lanes", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			Host:                      "localhost",
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			SessionTTL:                time.Hour,
			SessionCookieName:         "lanes_session",
			DisableReqLogs:            true,
		},
		Database: DatabaseConfig{Engine: "sqlite", Name: "file::memory:"},
	}
}

// workDir walks up from the working directory to the module root (the dir holding go.mod).
// go test runs in the package dir, so .env files are looked up from there otherwise.
func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd
		}
		dir = parent
	}
}
