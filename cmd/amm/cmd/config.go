package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/amm-core/internal/config"
	"github.com/jmylchreest/amm-core/pkg/bytesize"
	"github.com/jmylchreest/amm-core/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing amm configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format: defaults, overridden by
any config file, overridden by AMM_-prefixed environment variables.

You can redirect this output to a file to create a configuration template:

  amm config dump > config.yaml

Configuration can be set via:
  - Config file (./config.yaml, ./configs/config.yaml, /etc/amm/config.yaml, $HOME/.amm/config.yaml)
  - Environment variables (AMM_SERVER_PORT, AMM_DATABASE_DSN, etc.)
  - Command-line flags (for some options)

Environment variables use the AMM_ prefix and underscores for nesting.
Example: server.port -> AMM_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and sizes for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Tag.Get("yaml")
		}
		if key == "" {
			key = fieldType.Name
		}

		// config.Duration/config.ByteSize are named types over time.Duration/
		// int64, so they must be matched explicitly — a type switch does not
		// fall through to the underlying kind. Both already stringify
		// themselves via String(), so no bytesize/duration formatting needed
		// here; the plain time.Duration/int64 cases remain for any field
		// that hasn't been migrated to the richer types yet.
		switch v := field.Interface().(type) {
		case config.Duration:
			result[key] = v.String()
		case config.ByteSize:
			result[key] = v.String()
		case time.Duration:
			result[key] = duration.Format(v)
		case int64:
			if contains(key, "size", "bytes") {
				result[key] = bytesize.Format(bytesize.Size(v))
			} else {
				result[key] = v
			}
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func contains(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if len(s) >= len(sub) {
			for i := 0; i <= len(s)-len(sub); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# amm Configuration File")
	fmt.Println("# ======================")
	fmt.Println("#")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d, 2w")
	fmt.Println("# Size format: 5MB, 1GB")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   AMM_SERVER_HOST, AMM_SERVER_PORT")
	fmt.Println("#   AMM_DATABASE_DRIVER, AMM_DATABASE_DSN")
	fmt.Println("#   AMM_PATHS_BASE, AMM_PATHS_IMPORT, AMM_PATHS_MUSIC")
	fmt.Println("#   AMM_CONCURRENCY_MAX_HEAVY_IO, AMM_CONCURRENCY_MAX_NORMAL")
	fmt.Println("#   AMM_LOGGING_LEVEL, AMM_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
