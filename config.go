package statebus

import (
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// Config is the part of a bus that can live in a YAML file loaded with cfgloader.
type Config struct {
	// ExecutorWorkers sizes the pool async command handlers run on.
	ExecutorWorkers int `yaml:"executor_workers" default:"1" validate:"gte=1"`

	// SerializeDispatch applies events one at a time. See WithSerializedDispatch.
	SerializeDispatch bool `yaml:"serialize_dispatch"`

	Logger logger.Config `yaml:"logger"`

	// Store selects an in-process message store for both commands and events.
	// Persistent drivers are passed with WithCommandStore and WithEventStore instead.
	Store msgstore.Config `yaml:"store"`
}
