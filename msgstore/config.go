package msgstore

import (
	"github.com/code19m/errx"
)

const (
	DriverNone      = "none"
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverWatermill = "watermill"
	DriverKafka     = "kafka"
	DriverMinio     = "minio"
)

// Config selects the message store a bus appends to.
// Backend specific settings live in the backend packages.
type Config struct {
	Driver string `yaml:"driver" default:"none" validate:"oneof=none memory postgres watermill kafka minio"`
}

// Open builds the in-process stores. Persistent drivers are built by their own packages
// (pgstore, wmstore, kafkastore, miniostore) because they need connections.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Nop(), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, errx.New("[msgstore]: driver must be built by its backend package",
			errx.WithCode(CodeUnknownDriver),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"driver": cfg.Driver}),
		)
	}
}
