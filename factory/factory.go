// Package factory builds asset clients from configuration records.
package factory

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/backends/ftp"
	"github.com/recommerce/asset/backends/localfs"
	"github.com/recommerce/asset/backends/s3"
	"github.com/recommerce/asset/backends/scp"
	"github.com/recommerce/asset/backends/sftp"
	"github.com/recommerce/asset/core"
	"github.com/recommerce/asset/core/log"
)

// secretParams are masked before parameters are logged.
var secretParams = map[string]bool{
	"key":        true,
	"secret":     true,
	"password":   true,
	"passphrase": true,
	"privatekey": true,
}

// Record identifies an adapter and its arguments. Either Factory/Params or
// Name/Args may be used; Args is a keyed map or a positional list.
type Record struct {
	Factory string         `koanf:"factory" mapstructure:"factory"`
	Params  map[string]any `koanf:"params" mapstructure:"params"`
	Name    string         `koanf:"name" mapstructure:"name"`
	Args    any            `koanf:"args" mapstructure:"args"`
}

// Identifier returns the adapter identifier of the record.
func (r Record) Identifier() string {
	if r.Factory != "" {
		return r.Factory
	}
	return r.Name
}

// BuildFunc creates an adapter from decoded parameters.
type BuildFunc func(ctx context.Context, params map[string]any, logger *zap.Logger) (backends.Adapter, error)

// Builder describes how to build one adapter type.
type Builder struct {
	// Positional names the arguments of a list-shaped Args, in order
	Positional []string
	Build      BuildFunc
}

// Factory resolves identifiers to adapter builders.
type Factory struct {
	builders map[string]Builder
	logger   *zap.Logger
}

// New creates a factory with every shipped adapter registered.
func New(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Factory{
		builders: make(map[string]Builder),
		logger:   logger,
	}

	f.Register(backends.TypeFilesystem, Builder{
		Positional: []string{"repository", "options"},
		Build:      buildFilesystem,
	}, "FilesystemClient", "FilesystemClientFactory")

	f.Register(backends.TypeFTP, Builder{
		Positional: []string{"hostname", "username", "password", "port", "options"},
		Build:      buildFTP,
	}, "FtpClient", "FtpClientFactory")

	f.Register(backends.TypeSFTP, Builder{
		Positional: []string{"hostname", "username", "password", "port", "options"},
		Build:      buildSFTP,
	}, "SftpSecLib")

	f.Register(backends.TypeSCP, Builder{
		Positional: []string{"hostname", "username", "password", "port", "methods", "options"},
		Build:      buildSCP,
	}, "SftpClient", "SftpClientFactory")

	f.Register(backends.TypeS3, Builder{
		Positional: []string{"key", "secret", "bucket", "options"},
		Build:      buildS3,
	}, "S3Client", "S3ClientFactory")

	return f
}

// Register adds a builder under name and its aliases, case-insensitively.
func (f *Factory) Register(name string, builder Builder, aliases ...string) {
	for _, id := range append([]string{name}, aliases...) {
		f.builders[normalize(id)] = builder
	}
}

// Create builds the adapter described by record, connects it when it is
// session based, and wraps it in a core.Client.
func (f *Factory) Create(ctx context.Context, record Record) (*core.Client, error) {
	id := record.Identifier()
	if id == "" {
		return nil, fmt.Errorf("%w: asset configuration was not found", core.ErrInvalidConfiguration)
	}

	builder, ok := f.builders[normalize(id)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown asset adapter %q", core.ErrInvalidConfiguration, id)
	}

	params, err := arguments(record, builder.Positional)
	if err != nil {
		return nil, err
	}

	var opts core.Options
	if err := decode(params, &opts); err != nil {
		return nil, err
	}

	adapter, err := builder.Build(ctx, params, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter: %w", id, err)
	}

	if c, ok := adapter.(backends.Connector); ok {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	f.logger.Info("Asset adapter created",
		zap.String("backend", adapter.Type()),
		zap.Any("params", maskParams(params)))

	return core.NewClient(adapter, opts, f.logger), nil
}

// maskParams copies params with every credential replaced by a mask.
func maskParams(params map[string]any) map[string]any {
	masked := make(map[string]any, len(params))
	for k, v := range params {
		if secretParams[strings.ToLower(k)] {
			masked[k] = log.MaskSecret(fmt.Sprint(v))
			continue
		}
		masked[k] = v
	}
	return masked
}

// normalize strips a PHP namespace and lowercases an identifier.
func normalize(id string) string {
	if i := strings.LastIndex(id, `\`); i >= 0 {
		id = id[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(id))
}

// arguments returns the keyed parameters of record. Nested "options" keys
// are merged in without overriding top level keys.
func arguments(record Record, positional []string) (map[string]any, error) {
	params := make(map[string]any)

	switch {
	case record.Params != nil:
		for k, v := range record.Params {
			params[k] = v
		}
	case record.Args != nil:
		if err := mergeArgs(params, record.Args, positional); err != nil {
			return nil, err
		}
	}

	if options, ok := params["options"].(map[string]any); ok {
		for k, v := range options {
			if _, exists := params[k]; !exists {
				params[k] = v
			}
		}
		delete(params, "options")
	}

	return params, nil
}

func mergeArgs(params map[string]any, args any, positional []string) error {
	switch v := args.(type) {
	case map[string]any:
		for k, val := range v {
			params[k] = val
		}
	case []any:
		if len(v) > len(positional) {
			return fmt.Errorf("%w: expected at most %d arguments, got %d",
				core.ErrInvalidConfiguration, len(positional), len(v))
		}
		for i, val := range v {
			params[positional[i]] = val
		}
	default:
		return fmt.Errorf("%w: malformed argument list of type %T", core.ErrInvalidConfiguration, args)
	}
	return nil
}

// decode maps params onto out. Numeric durations are read as seconds.
func decode(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(secondsHook),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfiguration, err)
	}
	return nil
}

func secondsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}

	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second, nil
		}
	}
	return data, nil
}

func buildFilesystem(ctx context.Context, params map[string]any, logger *zap.Logger) (backends.Adapter, error) {
	var cfg localfs.Config
	if err := decode(params, &cfg); err != nil {
		return nil, err
	}
	adapter, err := localfs.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func buildFTP(ctx context.Context, params map[string]any, logger *zap.Logger) (backends.Adapter, error) {
	var cfg ftp.Config
	if err := decode(params, &cfg); err != nil {
		return nil, err
	}
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("%w: ftp hostname is required", core.ErrInvalidConfiguration)
	}
	return ftp.New(cfg, logger), nil
}

func buildSFTP(ctx context.Context, params map[string]any, logger *zap.Logger) (backends.Adapter, error) {
	var cfg sftp.Config
	if err := decode(params, &cfg); err != nil {
		return nil, err
	}
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("%w: sftp hostname is required", core.ErrInvalidConfiguration)
	}
	return sftp.New(cfg, logger), nil
}

func buildSCP(ctx context.Context, params map[string]any, logger *zap.Logger) (backends.Adapter, error) {
	var cfg scp.Config
	if err := decode(params, &cfg); err != nil {
		return nil, err
	}
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("%w: scp hostname is required", core.ErrInvalidConfiguration)
	}
	return scp.New(cfg, logger), nil
}

func buildS3(ctx context.Context, params map[string]any, logger *zap.Logger) (backends.Adapter, error) {
	var cfg s3.Config
	if err := decode(params, &cfg); err != nil {
		return nil, err
	}
	adapter, err := s3.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
