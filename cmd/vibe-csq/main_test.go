package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-csq/internal/duckdb"
)

const testVCF = "../../internal/vcf/testdata/valid.vcf"

// setup isolates the global viper state and the home directory.
func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Extract(t *testing.T) {
	setup(t)

	code, out, errOut := runCLI(t, testVCF)
	require.Equal(t, ExitSuccess, code, errOut)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "CHROM\tPOS\tREF\tALT\tSYMBOL\tpop1_af\tpop2_af\tConsequence", lines[0])
	assert.Equal(t, "chr1\t10\tA\tT\tYFG\t0.00345\t\t123", lines[1])
}

func TestRun_ExtractSelectedFields(t *testing.T) {
	setup(t)

	code, out, errOut := runCLI(t, "-f", "chrom,pos,qual", testVCF, "SYMBOL", "Consequence")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "CHROM\tPOS\tQUAL\tSYMBOL\tConsequence\nchr1\t10\t100\tYFG\t123\n", out)
}

func TestRun_List(t *testing.T) {
	setup(t)

	code, out, errOut := runCLI(t, "--list", testVCF)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "SYMBOL\npop1_af\npop2_af\nConsequence\n", out)
}

func TestRun_JSON(t *testing.T) {
	setup(t)

	code, out, errOut := runCLI(t, "-F", "json", testVCF, "SYMBOL", "pop2_af")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.JSONEq(t, `{"CHROM":"chr1","POS":10,"REF":"A","ALT":["T"],"SYMBOL":"YFG","pop2_af":null}`, out)
}

func TestRun_OutputFile(t *testing.T) {
	setup(t)
	path := filepath.Join(t.TempDir(), "out.tsv")

	code, out, errOut := runCLI(t, "-o", path, testVCF, "SYMBOL")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CHROM\tPOS\tREF\tALT\tSYMBOL\nchr1\t10\tA\tT\tYFG\n", string(data))
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown annotation field", []string{testVCF, "NOPE"}, "annotation field not found: NOPE"},
		{"unknown vcf field", []string{"-f", "GENE", testVCF}, "unknown field"},
		{"missing annotation key", []string{"-k", "ANN", testVCF}, "no annotations found for key ANN"},
		{"unknown output format", []string{"-F", "xml", testVCF}, `unknown output format "xml"`},
		{"missing file", []string{"does-not-exist.vcf"}, "does-not-exist.vcf"},
		{"no arguments", nil, "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, ExitError, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestRun_VerboseLogsSkippedVariants(t *testing.T) {
	setup(t)

	code, _, errOut := runCLI(t, "-v", testVCF)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, errOut, "no annotations for variant")
	assert.Contains(t, errOut, "found annotation header")
}

func TestRun_EnvironmentOverride(t *testing.T) {
	setup(t)
	t.Setenv("VIBE_CSQ_CSQ_KEY", "ANN")

	code, _, errOut := runCLI(t, testVCF)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "no annotations found for key ANN")
}

func TestConfig_SetGetShow(t *testing.T) {
	home := setup(t)

	code, out, errOut := runCLI(t, "config", "set", "csq.key", "ANN")
	require.Equal(t, ExitSuccess, code, errOut)
	cfgFile := filepath.Join(home, ".vibe-csq.yaml")
	assert.Equal(t, "csq.key = ANN ("+cfgFile+")\n", out)

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "key: ANN")

	viper.Reset()
	code, out, errOut = runCLI(t, "config", "get", "csq.key")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "ANN\n", out)

	viper.Reset()
	code, out, errOut = runCLI(t, "config")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "key: ANN")

	// The stored key now applies to extraction.
	viper.Reset()
	code, _, errOut = runCLI(t, testVCF)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "no annotations found for key ANN")
}

func TestConfig_SetFields(t *testing.T) {
	setup(t)

	code, out, errOut := runCLI(t, "config", "set", "fields", "chrom, pos,qual")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "fields = CHROM,POS,QUAL")

	viper.Reset()
	code, out, errOut = runCLI(t, "config", "get", "fields")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "CHROM,POS,QUAL\n", out)

	viper.Reset()
	code, out, errOut = runCLI(t, testVCF, "SYMBOL")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "CHROM\tPOS\tQUAL\tSYMBOL\nchr1\t10\t100\tYFG\n", out)
}

func TestConfig_SetBool(t *testing.T) {
	setup(t)

	code, _, errOut := runCLI(t, "config", "set", "metadata.lenient", "yes")
	require.Equal(t, ExitSuccess, code, errOut)

	viper.Reset()
	code, out, errOut := runCLI(t, "config", "get", "metadata.lenient")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "true\n", out)
}

func TestConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown key on get", []string{"get", "no.such.key"}, `unknown config key "no.such.key"`},
		{"unknown key on set", []string{"set", "no.such.key", "x"}, `unknown config key "no.such.key"`},
		{"unknown field", []string{"set", "fields", "CHROM,GENE"}, "unknown field"},
		{"empty fields", []string{"set", "fields", " , "}, "at least one field is required"},
		{"unknown format", []string{"set", "output.format", "xml"}, `unknown output format "xml"`},
		{"not a bool", []string{"set", "metadata.lenient", "maybe"}, "invalid value for metadata.lenient"},
		{"empty key", []string{"set", "csq.key", ""}, "value must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := setup(t)
			code, _, errOut := runCLI(t, append([]string{"config"}, tt.args...)...)
			assert.Equal(t, ExitError, code)
			assert.Contains(t, errOut, tt.want)

			_, err := os.Stat(filepath.Join(home, configFileName))
			assert.True(t, os.IsNotExist(err), "config file must not be written")
		})
	}
}

func TestExport(t *testing.T) {
	setup(t)
	db := filepath.Join(t.TempDir(), "annotations.duckdb")

	code, out, errOut := runCLI(t, "export", "--db", db, testVCF)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "4 annotation rows in "+db+"\n", out)

	// Unchanged file is skipped on the second run.
	viper.Reset()
	code, out, errOut = runCLI(t, "export", "-v", "--db", db, testVCF)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "4 annotation rows in "+db+"\n", out)
	assert.Contains(t, errOut, "skipping up-to-date file")

	// --force replaces rather than duplicates.
	viper.Reset()
	code, out, errOut = runCLI(t, "export", "--force", "--db", db, testVCF)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "4 annotation rows in "+db+"\n", out)
}

func TestExport_DecodingChangeReexports(t *testing.T) {
	setup(t)
	db := filepath.Join(t.TempDir(), "annotations.duckdb")
	vcfPath := "../../internal/vcf/testdata/multi_sample.vcf"

	code, out, errOut := runCLI(t, "export", "--db", db, vcfPath)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "5 annotation rows in "+db+"\n", out)

	viper.Reset()
	code, out, errOut = runCLI(t, "export", "-v", "-k", "ANN", "--sep", ",", "--db", db, vcfPath)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.NotContains(t, errOut, "skipping up-to-date file")
	assert.Equal(t, "3 annotation rows in "+db+"\n", out)

	store, err := duckdb.Open(db)
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.SearchByValue("Gene_Name", "KRAS")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(25245351), rows[0].Pos)

	rows, err = store.SearchByValue("SYMBOL", "KRAS")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExport_FailureLeavesNoRows(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "annotations.duckdb")

	header, err := os.ReadFile(testVCF)
	require.NoError(t, err)
	// Keep the header and first variant, then append a truncated line.
	lines := strings.SplitAfter(string(header), "\n")
	bad := filepath.Join(dir, "bad.vcf")
	content := strings.Join(lines[:10], "") + "chr1\t11\t.\tA\n"
	require.NoError(t, os.WriteFile(bad, []byte(content), 0644))

	code, _, errOut := runCLI(t, "export", "--db", db, testVCF)
	require.Equal(t, ExitSuccess, code, errOut)

	viper.Reset()
	code, _, errOut = runCLI(t, "export", "--batch-size", "1", "--db", db, bad)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "export "+bad)
	assert.Contains(t, errOut, "line 11")

	store, err := duckdb.Open(db)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.CountRows()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	fp, err := duckdb.StatFile(bad)
	require.NoError(t, err)
	current, err := store.SourceCurrent(fp, duckdb.Decoding{Key: "CSQ", Separator: "|"})
	require.NoError(t, err)
	assert.False(t, current)
}

func TestQuery(t *testing.T) {
	setup(t)
	db := filepath.Join(t.TempDir(), "annotations.duckdb")
	vcfPath := "../../internal/vcf/testdata/multi_sample.vcf"

	code, _, errOut := runCLI(t, "export", "--db", db, vcfPath)
	require.Equal(t, ExitSuccess, code, errOut)

	header := "SOURCE\tCHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tFIELD\tVALUE\n"

	viper.Reset()
	code, out, errOut := runCLI(t, "query", "--db", db, "SYMBOL=KRAS")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, header+vcfPath+"\t12\t25245351\trs121913529\tC\tA,T\t99.5\tPASS\tSYMBOL\tKRAS\n", out)

	viper.Reset()
	code, out, errOut = runCLI(t, "query", "--db", db, "12:25245351")
	require.Equal(t, ExitSuccess, code, errOut)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, vcfPath+"\t12\t25245351\trs121913529\tC\tA,T\t99.5\tPASS\tAllele\tA", lines[1])

	viper.Reset()
	code, out, errOut = runCLI(t, "query", "--db", db, "7:140753336")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, header, out)
}

func TestQuery_Errors(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "annotations.duckdb")

	code, _, errOut := runCLI(t, "query", "--db", filepath.Join(dir, "missing.duckdb"), "1:100")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "open database")

	viper.Reset()
	code, _, errOut = runCLI(t, "export", "--db", db, testVCF)
	require.Equal(t, ExitSuccess, code, errOut)

	for _, q := range []string{"chr1", ":10", "chr1:ten"} {
		viper.Reset()
		code, _, errOut = runCLI(t, "query", "--db", db, q)
		assert.Equal(t, ExitError, code, q)
		assert.Contains(t, errOut, "query", q)
	}
}
