package cfgloader

// Options holds configuration options for Load and MustLoad.
type Options struct {
	// Silent disables printing the loaded config.
	Silent bool

	// Path overrides ./config/${ENVIRONMENT}.yaml.
	Path string

	// Environment overrides the ENVIRONMENT variable.
	Environment string

	// EnvFiles are the dotenv files loaded before the config file is expanded.
	EnvFiles []string
}

// Option is a functional option for configuring Load behavior.
type Option func(*Options)

// WithSilent disables config printing.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithPath reads the config from path instead of the environment-derived one.
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

// WithEnvironment sets the environment instead of reading ENVIRONMENT.
func WithEnvironment(env string) Option {
	return func(o *Options) {
		o.Environment = env
	}
}

// WithEnvFiles loads the given dotenv files instead of ./.env.
func WithEnvFiles(paths ...string) Option {
	return func(o *Options) {
		o.EnvFiles = paths
	}
}
