package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Parser ParserConfig `yaml:"parser"`
	Web    WebConfig    `yaml:"web"`
	Export ExportConfig `yaml:"export"`
}

type StoreConfig struct {
	Path        string        `yaml:"path" validate:"required"`
	TablePrefix string        `yaml:"table_prefix" validate:"identifier"`
	BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`
}

type ParserConfig struct {
	StrictRoot bool `yaml:"strict_root"`
	MaxDepth   int  `yaml:"max_depth" validate:"min=1,max=1024"`
}

type WebConfig struct {
	Listen         string `yaml:"listen" validate:"required"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" validate:"gt=0"`
	LogLines       int    `yaml:"log_lines" validate:"gt=0"`
}

type ExportConfig struct {
	Indent        bool   `yaml:"indent"`
	DefaultFormat string `yaml:"default_format" validate:"oneof=geojson osm gpx"`
}

const (
	defaultStorePath      = "gpxtab.db"
	defaultTablePrefix    = "gpx"
	defaultBusyTimeout    = 5 * time.Second
	defaultMaxDepth       = 64
	defaultListen         = ":8080"
	defaultMaxUploadBytes = 32 << 20
	defaultLogLines       = 2000
	defaultExportFormat   = "geojson"
)

// Default is the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Store.Path = defaultStorePath
	applyDefaults(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Store.Path == "" {
		return Config{}, fmt.Errorf("store.path is required")
	}
	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.TablePrefix == "" {
		cfg.Store.TablePrefix = defaultTablePrefix
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = defaultBusyTimeout
	}
	if cfg.Parser.MaxDepth == 0 {
		cfg.Parser.MaxDepth = defaultMaxDepth
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = defaultListen
	}
	if cfg.Web.MaxUploadBytes == 0 {
		cfg.Web.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Web.LogLines == 0 {
		cfg.Web.LogLines = defaultLogLines
	}
	if cfg.Export.DefaultFormat == "" {
		cfg.Export.DefaultFormat = defaultExportFormat
	}
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validate = func() func(Config) error {
	v := validator.New()
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierRe.MatchString(fl.Field().String())
	})

	return func(cfg Config) error {
		err := v.Struct(cfg)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		fe := verrs[0]
		// Namespace is "Config.section.field".
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "oneof":
			return fmt.Errorf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		case "identifier":
			return fmt.Errorf("%s must be letters, digits and underscores", field)
		case "min", "gte":
			return fmt.Errorf("%s must be >= %s", field, fe.Param())
		case "max":
			return fmt.Errorf("%s must be <= %s", field, fe.Param())
		case "gt":
			return fmt.Errorf("%s must be > %s", field, fe.Param())
		default:
			return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
		}
	}
}()
