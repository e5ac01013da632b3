package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string
		KitchenEmail     string
		Location         *time.Location

		Prices   PriceConfig
		Server   ServerConfig
		Database DatabaseConfig
	}

	// PriceConfig holds the fixed unit prices used for billing, in euros.
	PriceConfig struct {
		StudentMenu float64
		TeacherMeal float64
		Water       float64
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		Name          string // file path for sqlite
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (dbc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dbc.Host, dbc.Port)
}

func (dbc DatabaseConfig) IsSQLite() bool {
	return dbc.Engine == "sqlite"
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Comedor")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k2r7-bq)nfa$+12=ud&vojc5(s!x)#*q9(#mh4k^$tzad1wpe")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Comedor <noreply@localhost>")
	v.SetDefault("kitchenEmail", "cocina@localhost")
	v.SetDefault("timezone", "Europe/Madrid")

	v.SetDefault("priceStudentMenu", 4.50)
	v.SetDefault("priceTeacherMeal", 4.50)
	v.SetDefault("priceWater", 0.50)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "comedor")
	v.SetDefault("dbUser", "comedor")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
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

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		log.Printf("config: unknown timezone %q, falling back to UTC", v.GetString("timezone"))
		loc = time.UTC
	}

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		KitchenEmail:     v.GetString("kitchenEmail"),
		Location:         loc,
		Prices: PriceConfig{
			StudentMenu: v.GetFloat64("priceStudentMenu"),
			TeacherMeal: v.GetFloat64("priceTeacherMeal"),
			Water:       v.GetFloat64("priceWater"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
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
		},
	}
}

// NewTestConfig returns a Config suitable for tests: sqlite engine, UTC, fixed secret.
func NewTestConfig(dbPath string) *Config {
	return &Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Comedor",
		Build:            "test",
		SecretKey:        "test-secret",
		defaultFromEmail: "noreply@test.local",
		KitchenEmail:     "cocina@test.local",
		Location:         time.UTC,
		Prices:           PriceConfig{StudentMenu: 4.50, TeacherMeal: 5.00, Water: 0.50},
		Server: ServerConfig{
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "sqlite", Name: dbPath},
	}
}
