package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-csq/internal/duckdb"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [flags] <chrom:pos | field=value>",
		Short: "Look up exported annotations",
		Long: `Print annotation rows from a database written by export, either every
sub-field of the variants at a position or every variant whose sub-field has
the given value.`,
		Example: `  vibe-csq query 12:25245351
  vibe-csq query --db annotations.duckdb SYMBOL=KRAS`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			if !cmd.Flags().Changed("db") {
				db = viper.GetString("export.db")
			}
			return runQuery(cmd.OutOrStdout(), db, args[0])
		},
	}

	cmd.Flags().String("db", "vibe-csq.duckdb", "DuckDB database file (default: export.db)")

	return cmd
}

func runQuery(w io.Writer, db, query string) error {
	if _, err := os.Stat(db); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	store, err := duckdb.Open(db)
	if err != nil {
		return err
	}
	defer store.Close()

	var rows []duckdb.AnnotationRow
	if field, value, ok := strings.Cut(query, "="); ok {
		rows, err = store.SearchByValue(field, value)
	} else {
		i := strings.LastIndexByte(query, ':')
		if i < 1 {
			return fmt.Errorf("query %q: expected chrom:pos or field=value", query)
		}
		pos, perr := strconv.ParseInt(query[i+1:], 10, 64)
		if perr != nil {
			return fmt.Errorf("query %q: invalid position: %w", query, perr)
		}
		rows, err = store.LookupVariant(query[:i], pos)
	}
	if err != nil {
		return err
	}

	return writeAnnotationRows(w, rows)
}

// writeAnnotationRows prints rows tab-delimited; missing values print as ".".
func writeAnnotationRows(w io.Writer, rows []duckdb.AnnotationRow) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("SOURCE\tCHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tFIELD\tVALUE\n")
	for _, r := range rows {
		qual, value := ".", "."
		if r.Qual != nil {
			qual = strconv.FormatFloat(*r.Qual, 'f', -1, 64)
		}
		if r.Value != nil {
			value = *r.Value
		}
		fmt.Fprintf(bw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Source, r.Chrom, r.Pos, r.ID, r.Ref, r.Alt, qual, r.Filter, r.Field, value)
	}
	return bw.Flush()
}
