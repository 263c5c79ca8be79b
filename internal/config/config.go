package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to sign session tokens
	SessionTTL      time.Duration // lifetime of a login session
	BcryptCost      int           // bcrypt cost for password hashing
	CookieSecure    bool          // set the Secure flag on the auth cookie
	LogLevel        string        // logrus level name
	AllowedOrigin   string        // websocket Origin allowed to connect; empty allows any
	RabbitURL       string        // AMQP URL for the activity feed; empty disables it
	ActivityLogPath string        // file the activity consumer appends to
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		SessionTTL:      time.Duration(mustInt("SESSION_TTL_HOURS")) * time.Hour,
		BcryptCost:      mustInt("BCRYPT_COST"),
		CookieSecure:    envBool("COOKIE_SECURE", false),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AllowedOrigin:   os.Getenv("ALLOWED_ORIGIN"),
		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		ActivityLogPath: envStr("ACTIVITY_LOG_PATH", "logs/room-activity.log"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
