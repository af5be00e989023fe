// Package cfgloader loads and validates configuration at the start of an application.
package cfgloader

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rise-and-shine/statebus/observability/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

const (
	CodeInvalidEnvironment = "CONFIG_INVALID_ENVIRONMENT"
	CodeFileNotFound       = "CONFIG_FILE_NOT_FOUND"
	CodeInvalidFile        = "CONFIG_INVALID_FILE"
	CodeInvalidConfig      = "CONFIG_VALIDATION_FAILED"
)

// Load reads ${ENVIRONMENT}.yaml from ./config, expands ${VAR} references, applies
// `default` tags and validates `validate` tags.
//
// Example:
//
//	type Config struct {
//	    Workers int             `yaml:"workers" default:"1" validate:"gte=1"`
//	    Store   msgstore.Config `yaml:"store"`
//	}
//
// Fields missing from the YAML file get their default before validation.
func Load[T any](opts ...Option) (T, error) {
	var config T

	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	if reflect.ValueOf(&config).Elem().Kind() == reflect.Pointer {
		return config, errx.New("[cfgloader]: type argument must not be a pointer", errx.WithType(errx.T_Validation))
	}

	_ = godotenv.Load(o.EnvFiles...)

	env := o.Environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	path := o.Path
	if path == "" {
		if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
			return config, errx.New(
				"[cfgloader]: ENVIRONMENT is not set or invalid; choices are production, staging, dev, local, test",
				errx.WithCode(CodeInvalidEnvironment),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"environment": env}),
			)
		}
		path = fmt.Sprintf("./config/%s.yaml", env)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, errx.New("[cfgloader]: config file not found",
			errx.WithCode(CodeFileNotFound),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	if err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	data = []byte(os.ExpandEnv(string(data)))

	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, errx.Wrap(err,
			errx.WithCode(CodeInvalidFile),
			errx.WithDetails(errx.D{"path": path}),
		)
	}

	if err = defaults.Set(&config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	if err = validate(&config); err != nil {
		return config, err
	}

	if !o.Silent {
		printConfig(config)
	}
	return config, nil
}

// MustLoad is Load that logs the failure and exits the process.
func MustLoad[T any](opts ...Option) T {
	config, err := Load[T](opts...)
	if err != nil {
		logger.Named("cfgloader").Errorx(err)
		_ = logger.Sync()
		os.Exit(1)
	}
	return config
}

func validate(config any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	failedFields := make([]string, 0, len(errs))
	for _, fe := range errs {
		tagErr := fe.Tag()
		if fe.Param() != "" {
			tagErr += "=" + fe.Param()
		}
		failedFields = append(failedFields, fmt.Sprintf("%s: %s", fe.Namespace(), tagErr))
	}

	return errx.New("[cfgloader]: invalid config fields",
		errx.WithCode(CodeInvalidConfig),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"fields": strings.Join(failedFields, ", ")}),
	)
}
