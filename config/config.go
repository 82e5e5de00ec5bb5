package config

import "github.com/pitabwire/frame"

type StorefrontConfig struct {
	frame.ConfigurationDefault

	MpesaConsumerKey    string `envDefault:"" env:"MPESA_CONSUMER_KEY"`
	MpesaConsumerSecret string `envDefault:"" env:"MPESA_CONSUMER_SECRET"`
	MpesaShortCode      string `envDefault:"174379" env:"MPESA_SHORT_CODE"`
	MpesaPasskey        string `envDefault:"" env:"MPESA_PASSKEY"`
	MpesaBaseURL        string `envDefault:"https://sandbox.safaricom.co.ke" env:"MPESA_BASE_URL"`
	MpesaCallbackURL    string `envDefault:"" env:"MPESA_CALLBACK_URL"`
	// Timeout for gateway calls, in seconds.
	MpesaTimeoutSeconds int `envDefault:"10" env:"MPESA_TIMEOUT_SECONDS"`

	DefaultCurrency string `envDefault:"KES" env:"DEFAULT_CURRENCY"`

	RedisHost     string `envDefault:"localhost" env:"REDIS_HOST"`
	RedisPort     string `envDefault:"6379" env:"REDIS_PORT"`
	RedisPassword string `envDefault:"" env:"REDIS_PASSWORD"`
	RedisDatabase int    `envDefault:"0" env:"REDIS_DATABASE"`

	// TTL for server held cart snapshots, in seconds.
	CartExpirySeconds int `envDefault:"86400" env:"CART_EXPIRY_SECONDS"`

	SecurelyRunService bool `envDefault:"false" env:"SECURELY_RUN_SERVICE"`
}
