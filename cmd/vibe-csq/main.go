// Package main provides the vibe-csq command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-csq/internal/extract"
	"github.com/inodb/vibe-csq/internal/output"
	"github.com/inodb/vibe-csq/internal/vcf"
	"github.com/inodb/vibe-csq/internal/vep"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is configured by the root command before any subcommand runs.
var logger = zap.NewNop()

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var (
		listFields bool
		outputFile string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "vibe-csq [flags] <vcf> [annotation-field...]",
		Short: "Extract VEP annotations from a VCF file",
		Long: `Extract VEP-style annotations (e.g. the CSQ INFO field) from a VCF file
into a table. Annotation field names are read from the INFO header
Description; all of them are written unless specific fields are given.`,
		Example: `  vibe-csq input.vcf.gz                        # all annotation fields
  vibe-csq --list input.vcf                     # list annotation fields
  vibe-csq -f CHROM -f POS input.vcf SYMBOL     # selected columns
  vibe-csq -k ANN --sep , input.vcf             # SnpEff-style ANN field
  vibe-csq --output-format json input.vcf       # JSON lines`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			logger = newLogger(cmd.ErrOrStderr(), verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], args[1:], listFields, outputFile)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&listFields, "list", "l", false, "List annotation fields and exit")
	flags.StringSliceP("fields", "f", extract.DefaultFields,
		"VCF fields to include in output: "+strings.Join(vcf.StandardFields, ", "))
	flags.StringP("output-format", "F", "tab", "Output format: "+strings.Join(output.Formats, ", "))
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	_ = viper.BindPFlag("fields", flags.Lookup("fields"))
	_ = viper.BindPFlag("output.format", flags.Lookup("output-format"))

	pflags := cmd.PersistentFlags()
	pflags.StringP("vep-key", "k", vep.DefaultKey, "Annotation key in INFO field")
	pflags.String("sep", vep.DefaultSeparator, "Annotation separator")
	pflags.Bool("lenient", false, "Ignore unknown attributes in FORMAT/INFO header lines")
	pflags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	_ = viper.BindPFlag("csq.key", pflags.Lookup("vep-key"))
	_ = viper.BindPFlag("csq.sep", pflags.Lookup("sep"))
	_ = viper.BindPFlag("metadata.lenient", pflags.Lookup("lenient"))

	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig loads ~/.vibe-csq.yaml (if present) and VIBE_CSQ_* variables.
func initConfig() error {
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetConfigFile(filepath.Join(home, configFileName))
	}
	viper.SetEnvPrefix("VIBE_CSQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// newLogger writes console-encoded logs to w; verbose enables debug output.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// parserOptions builds vcf.Options from the bound configuration.
func parserOptions() vcf.Options {
	return vcf.Options{
		AnnotationKey:   viper.GetString("csq.key"),
		AnnotationSep:   viper.GetString("csq.sep"),
		LenientMetadata: viper.GetBool("metadata.lenient"),
		Logger:          logger,
	}
}

func runExtract(cmd *cobra.Command, path string, annFields []string, listFields bool, outputFile string) error {
	if err := output.CheckFormat(viper.GetString("output.format")); err != nil {
		return err
	}

	parser, err := vcf.NewParser(path, parserOptions())
	if err != nil {
		return err
	}
	defer parser.Close()

	ann := parser.Annotations()
	if ann == nil {
		return fmt.Errorf("%w for key %s", extract.ErrNoAnnotations, viper.GetString("csq.key"))
	}

	out := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if listFields {
		_, err := fmt.Fprintln(out, strings.Join(ann.Variables(), "\n"))
		return err
	}

	fields, err := extract.NormalizeFields(viper.GetStringSlice("fields"))
	if err != nil {
		return err
	}
	annFields, err = extract.ResolveAnnotationFields(ann, annFields)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(viper.GetString("output.format"), out, fields, annFields)
	if err != nil {
		return err
	}

	e := extract.NewExtractor()
	e.SetLogger(logger)
	stats, err := e.Run(parser, writer)
	if err != nil {
		return err
	}

	logger.Debug("extraction complete",
		zap.String("path", path),
		zap.Int("variants", stats.Variants),
		zap.Int("written", stats.Written),
		zap.Int("unannotated", stats.Unannotated))
	return nil
}
