package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   HTTP bind address, empty disables REST
//	-m string   storage backend: memory, postgres, s3
//	-d string   PostgreSQL DSN
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-o int      storage timeout, seconds
//	-s string   session token HMAC secret
//	-t int      session validity, minutes
//	-k string   signature scheme: rsa-sha256, ed25519, ml-dsa-65
//	-x string   vault cipher: aes-gcm, xchacha20poly1305
//	-z int      max message size, bytes
//	-j string   log backend: slog, zap
//
// Unknown flags are ignored so that -c/-config can share the command line.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.StorageBackend, "m", config.StorageBackend, "storage backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	storageTimeout := fs.Int("o", int(config.StorageTimeout.Seconds()), "storage timeout (in seconds)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session validity (in minutes)")
	fs.StringVar(&config.SignatureScheme, "k", config.SignatureScheme, "signature scheme")
	fs.StringVar(&config.Cipher, "x", config.Cipher, "vault cipher")
	fs.IntVar(&config.MaxMessageSize, "z", config.MaxMessageSize, "max message size (in bytes)")
	fs.StringVar(&config.LogBackend, "j", config.LogBackend, "log backend")

	if err := flagx.ParseKnown(fs, args); err != nil {
		panic(err)
	}

	// Durations are only touched when given explicitly, so sub-unit values
	// from the JSON file survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			config.StorageTimeout = time.Duration(*storageTimeout) * time.Second
		case "t":
			config.SessionTokenValidityDuration = time.Duration(*sessionValidity) * time.Minute
		}
	})
}
