package storage

import "github.com/Dzhud/issue-tracker/internal/config"

// Config holds S3-compatible object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// FromConfig extracts the storage section of the application config.
func FromConfig(c config.StorageConfig) Config {
	return Config{
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		UseSSL:    c.UseSSL,
		Bucket:    c.Bucket,
	}
}
