// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/classhub/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// AppConfig is where everything specific to classhub lives: the database,
// token signing, the mail and event backends, and request throttles.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string        // HMAC signing key, at least 32 characters
	JWTTTL    time.Duration // token lifetime

	// AdminEmail receives join requests and contact messages, and is given
	// the admin role when it registers.
	AdminEmail string

	// Account email codes
	VerifyCodeTTL        time.Duration // lifetime of verification and reset codes
	RequireVerifiedEmail bool          // refuse sign-in until the email is verified

	// Email delivery
	MailBackend    string // log | smtp | sendgrid
	MailSMTPHost   string
	MailSMTPPort   int
	MailSMTPUser   string
	MailSMTPPass   string
	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	// Base URL for links in outgoing email
	BaseURL string

	// Event transport between the services and the notifier
	EventsBackend string // memory | amqp
	EventsBuffer  int    // memory backend queue size
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string

	// Browser origins allowed to call the API
	CORSAllowedOrigins []string

	// Throttles, in attempts per minute
	CheckInRateLimit int // per user
	LoginRateLimit   int // per client IP (half of this per email per five minutes)
	ContactRateLimit int // per client IP

	// Database operation timeouts (zero keeps the built-in default)
	Timeouts timeouts.Config
}
