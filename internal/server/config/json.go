package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sealvault/internal/flagx"
	"github.com/dmitrijs2005/sealvault/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept "5s"-style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	StorageBackend               *string         `json:"storage_backend"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	StorageTimeout               *timex.Duration `json:"storage_timeout"`
	SecretKey                    *string         `json:"secret_key"`
	SessionTokenValidityDuration *timex.Duration `json:"session_token_validity_duration"`
	SignatureScheme              *string         `json:"signature_scheme"`
	Cipher                       *string         `json:"cipher"`
	MaxMessageSize               *int            `json:"max_message_size"`
	LogBackend                   *string         `json:"log_backend"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys absent from the file keep their current values. Unreadable
// or invalid files cause a panic, as the server cannot start misconfigured.
func parseJson(config *Config, args []string) {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.StorageBackend, c.StorageBackend)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.S3RootUser, c.S3RootUser)
	setIf(&config.S3RootPassword, c.S3RootPassword)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.SignatureScheme, c.SignatureScheme)
	setIf(&config.Cipher, c.Cipher)
	setIf(&config.MaxMessageSize, c.MaxMessageSize)
	setIf(&config.LogBackend, c.LogBackend)

	if c.StorageTimeout != nil {
		config.StorageTimeout = c.StorageTimeout.Duration
	}
	if c.SessionTokenValidityDuration != nil {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
