package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-csq/internal/extract"
	"github.com/inodb/vibe-csq/internal/output"
)

const configFileName = ".vibe-csq.yaml"

// ErrUnknownConfigKey is returned by config get/set for keys vibe-csq does not read.
var ErrUnknownConfigKey = errors.New("unknown config key")

// configKey describes a persisted setting and how a command-line value is
// turned into its stored form.
type configKey struct {
	usage string
	list  bool
	parse func(string) (any, error)
}

var configKeys = map[string]configKey{
	"csq.key":           {usage: "INFO key holding the annotation", parse: parseNonEmpty},
	"csq.sep":           {usage: "annotation sub-field separator", parse: parseNonEmpty},
	"fields":            {usage: "comma-separated VCF columns to extract", list: true, parse: parseFields},
	"output.format":     {usage: "output format (" + strings.Join(output.Formats, ", ") + ")", parse: parseFormat},
	"metadata.lenient":  {usage: "ignore unknown FORMAT/INFO attributes", parse: parseBool},
	"export.db":         {usage: "DuckDB file written by export", parse: parseNonEmpty},
	"export.batch_size": {usage: "rows buffered before each DuckDB append", parse: parsePositiveInt},
}

func parseNonEmpty(s string) (any, error) {
	if s == "" {
		return nil, errors.New("value must not be empty")
	}
	return s, nil
}

func parseFields(s string) (any, error) {
	var fields []string
	for f := range strings.SplitSeq(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, errors.New("at least one field is required")
	}
	return extract.NormalizeFields(fields)
}

func parsePositiveInt(s string) (any, error) {
	n, err := cast.ToIntE(s)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

func parseFormat(s string) (any, error) {
	if err := output.CheckFormat(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseBool(s string) (any, error) {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return cast.ToBoolE(s)
}

func lookupConfigKey(key string) (configKey, error) {
	k, ok := configKeys[key]
	if !ok {
		return configKey{}, fmt.Errorf("%w %q (choose from %s)", ErrUnknownConfigKey, key,
			strings.Join(slices.Sorted(maps.Keys(configKeys)), ", "))
	}
	return k, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted defaults",
		Long:  "Print the effective configuration, or read and write single keys of ~/" + configFileName + ".",
		Example: `  vibe-csq config
  vibe-csq config set csq.key ANN
  vibe-csq config set fields CHROM,POS,ALT
  vibe-csq config get fields`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout())
		},
	}

	var keys strings.Builder
	for _, name := range slices.Sorted(maps.Keys(configKeys)) {
		fmt.Fprintf(&keys, "  %-17s %s\n", name, configKeys[name].usage)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Validate and store a configuration value",
		Long:  "Keys:\n" + keys.String(),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfig(cmd.OutOrStdout(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a key",
		Long:  "Keys:\n" + keys.String(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getConfig(cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

func showConfig(w io.Writer) error {
	settings := make(map[string]any, len(configKeys))
	for name, k := range configKeys {
		if k.list {
			settings[name] = viper.GetStringSlice(name)
		} else {
			settings[name] = viper.Get(name)
		}
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func setConfig(w io.Writer, key, value string) error {
	k, err := lookupConfigKey(key)
	if err != nil {
		return err
	}
	v, err := k.parse(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	viper.Set(key, v)

	path := viper.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory: %w", err)
		}
		path = filepath.Join(home, configFileName)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(w, "%s = %s (%s)\n", key, formatConfigValue(k, key), path)
	return nil
}

func getConfig(w io.Writer, key string) error {
	k, err := lookupConfigKey(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, formatConfigValue(k, key))
	return err
}

func formatConfigValue(k configKey, key string) string {
	if k.list {
		return strings.Join(viper.GetStringSlice(key), ",")
	}
	return viper.GetString(key)
}
