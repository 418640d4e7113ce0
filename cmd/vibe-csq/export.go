package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-csq/internal/duckdb"
	"github.com/inodb/vibe-csq/internal/extract"
	"github.com/inodb/vibe-csq/internal/vcf"
)

func newExportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "export [flags] <vcf>...",
		Short: "Export annotations into a DuckDB database",
		Long: `Load every decoded annotation sub-field into the "annotations" table of a
DuckDB database, one row per variant and field. Files that were already
exported with the same annotation key and separator and have not changed
since are skipped unless --force is given. A file that fails to parse leaves
no rows behind.`,
		Example: `  vibe-csq export --db annotations.duckdb sample1.vcf.gz sample2.vcf.gz
  duckdb annotations.duckdb "SELECT chrom, pos FROM annotations WHERE field='SYMBOL' AND value='KRAS'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(viper.GetString("export.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			for _, path := range args {
				if err := exportFile(store, path, force); err != nil {
					return fmt.Errorf("export %s: %w", path, err)
				}
			}

			n, err := store.CountRows()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d annotation rows in %s\n", n, viper.GetString("export.db"))
			return nil
		},
	}

	cmd.Flags().String("db", "vibe-csq.duckdb", "DuckDB database file")
	cmd.Flags().BoolVar(&force, "force", false, "Re-export files that are already up to date")
	cmd.Flags().Int("batch-size", 10000, "Rows buffered before each append")
	_ = viper.BindPFlag("export.db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("export.batch_size", cmd.Flags().Lookup("batch-size"))

	return cmd
}

// exportFile replaces the rows of one VCF in the store. On failure the
// file's rows are removed so no partial export remains.
func exportFile(store *duckdb.Store, path string, force bool) error {
	fp, err := duckdb.StatFile(path)
	if err != nil {
		return err
	}

	opts := parserOptions()
	dec := duckdb.Decoding{Key: opts.AnnotationKey, Separator: opts.AnnotationSep}
	if !force {
		current, err := store.SourceCurrent(fp, dec)
		if err != nil {
			return err
		}
		if current {
			logger.Info("skipping up-to-date file", zap.String("path", path))
			return nil
		}
	}

	parser, err := vcf.NewParser(path, opts)
	if err != nil {
		return err
	}
	defer parser.Close()

	ann := parser.Annotations()
	if ann == nil {
		return fmt.Errorf("%w for key %s", extract.ErrNoAnnotations, dec.Key)
	}

	if err := store.ClearSource(path); err != nil {
		return err
	}

	w := store.NewAnnotationWriter(path, ann.Variables())
	w.SetBatchSize(viper.GetInt("export.batch_size"))
	e := extract.NewExtractor()
	e.SetLogger(logger)
	stats, err := e.Run(parser, w)
	if err == nil {
		err = store.RecordSource(fp, parser.Version(), dec)
	}
	if err != nil {
		if cerr := store.ClearSource(path); cerr != nil {
			logger.Error("removing partial export failed", zap.String("path", path), zap.Error(cerr))
		}
		return err
	}

	logger.Info("exported annotations",
		zap.String("path", path),
		zap.Int("variants", stats.Written),
		zap.Int("rows", w.Written()))
	return nil
}
