package config // loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable: strings for identifiers and secrets, ints
// for durations, costs and booking limits.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing

    CronSecret string // shared secret guarding the internal cleanup endpoint

    EmailAPIEndpoint string // delivery API URL for confirmation emails
    EmailAPIKey      string // bearer key for the delivery API
    EmailFrom        string // sender address on outgoing confirmations

    SportsMaxDurationHours int // upper bound for sports facility bookings
    EventMaxTickets        int // upper bound for event ticket counts
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Booking limits
// default to the venue policy values when unset.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        CronSecret: must("CRON_SECRET"),

        EmailAPIEndpoint: envStr("EMAIL_API_ENDPOINT", "https://api.resend.com/emails"),
        EmailAPIKey:      must("EMAIL_API_KEY"),
        EmailFrom:        envStr("EMAIL_FROM", "Bookings <bookings@example.com>"),

        SportsMaxDurationHours: envInt("SPORTS_MAX_DURATION_HOURS", 4),
        EventMaxTickets:        envInt("EVENT_MAX_TICKETS", 10),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
