package miniostore

// Config holds the MinIO connection and layout of stored objects.
type Config struct {
	Endpoint        string `yaml:"endpoint"          validate:"required"`
	AccessKeyID     string `yaml:"access_key_id"     validate:"required"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required" mask:"true"`
	UseSSL          bool   `yaml:"use_ssl"`

	Bucket string `yaml:"bucket" default:"statebus-messages"`
	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix" default:"messages"`
}
