package client

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/kelseyhightower/envconfig"
)

// Defaults applied by [Build] and [ConfigFromEnv].
const (
	DefaultHost        = "localhost"
	DefaultPort        = 9200
	DefaultReadTimeout = 5 * time.Second
	DefaultOpenTimeout = 2 * time.Second
	DefaultAdapter     = AdapterNetHTTP
)

// Config holds the connection settings of a [Client]. When URL is set it
// wins over Host and Port, which are then derived from it.
type Config struct {
	Host        string        `json:"host" envconfig:"HOST" default:"localhost" validate:"required_without=URL"`
	Port        int           `json:"port" envconfig:"PORT" default:"9200" validate:"min=1,max=65535"`
	URL         string        `json:"url" envconfig:"URL" validate:"omitempty,url"`
	ReadTimeout time.Duration `json:"read_timeout" envconfig:"READ_TIMEOUT" default:"5s" validate:"gte=0"`
	OpenTimeout time.Duration `json:"open_timeout" envconfig:"OPEN_TIMEOUT" default:"2s" validate:"gte=0"`
	Adapter     string        `json:"adapter" envconfig:"ADAPTER" default:"nethttp" validate:"required"`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		ReadTimeout: DefaultReadTimeout,
		OpenTimeout: DefaultOpenTimeout,
		Adapter:     DefaultAdapter,
	}
}

// ConfigFromEnv loads a Config from environment variables named
// PREFIX_HOST, PREFIX_PORT, PREFIX_URL, PREFIX_READ_TIMEOUT,
// PREFIX_OPEN_TIMEOUT and PREFIX_ADAPTER. Durations use Go syntax ("5s").
func ConfigFromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config from env: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against its declared constraints.
func (c Config) Validate() error {
	return validateStruct(c)
}

// baseURL resolves the server root, deriving it from Host and Port unless
// URL overrides them.
func (c Config) baseURL() (*url.URL, error) {
	raw := c.URL
	if raw == "" {
		raw = "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q must be absolute", ErrInvalidArgument, raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return u, nil
}

// /////////////////////////////////////////////////////////////////

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("client: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

func validateStruct(val any) error {
	if err := validate.Struct(val); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		var fields FieldErrors
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   verror.Translate(translator),
			})
		}
		return fields
	}

	return nil
}

// FieldError represents a single invalid configuration field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match FieldErrors against ErrInvalidArgument.
func (fe FieldErrors) Unwrap() error {
	return ErrInvalidArgument
}
