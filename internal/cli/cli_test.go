package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const stationeryLedger = `Description,Amount
Buy Pen from Shopee,-10000
Buy Pencil from Shopee,-5000
Buy Eraser from Shopee,-5000
Stationery Purchase Payment,20000
Invoice A,-5000
Invoice A,5000
`

const unresolvedLedger = `Memo,Value
ACME consulting fee,1000
Office rent,-300
Parking,-20
`

func writeLedger(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the command tree and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeLedger(t, "ledger.csv", stationeryLedger)

	out, err := execute(t, "run", path)
	require.NoError(t, err)

	assert.Contains(t, out, "reconcile: "+path)
	assert.Contains(t, out, "Processed 6 transactions (4 expenses, 2 revenues, 0 rejected)")
	assert.Contains(t, out, "MG_0001")
	assert.Contains(t, out, "MG_0002")
	assert.Contains(t, out, "Summary: Groups=2 Matched=6 Pending=0 Unresolved=0")
	assert.NotContains(t, out, "Needs review")
}

func TestRunCommand_WritesOutput(t *testing.T) {
	path := writeLedger(t, "ledger.csv", stationeryLedger)
	outDir := t.TempDir()

	t.Run("format from extension", func(t *testing.T) {
		output := filepath.Join(outDir, "result.csv")

		out, err := execute(t, "run", path, "-o", output, "--groups=false")
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote "+output)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Len(t, lines, 7)
		assert.True(t, strings.HasPrefix(lines[0], "id,description,amount"))
	})

	t.Run("explicit format", func(t *testing.T) {
		output := filepath.Join(outDir, "report.xlsx")

		_, err := execute(t, "run", path, "-o", output, "--format", "report")
		require.NoError(t, err)

		info, err := os.Stat(output)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	})

	t.Run("update keeps the input columns", func(t *testing.T) {
		output := filepath.Join(outDir, "updated.xlsx")

		_, err := execute(t, "run", path, "-o", output, "--format", "update",
			"--status-column", "Checked", "--status-text", "OK")
		require.NoError(t, err)

		f, err := excelize.OpenFile(output)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Sheet1")
		require.NoError(t, err)
		require.Len(t, rows, 7)
		assert.Equal(t, []string{"Description", "Amount", "Checked"}, rows[0])
		assert.Equal(t, []string{"Buy Pen from Shopee", "-10000", "OK"}, rows[1])
		assert.Equal(t, []string{"Invoice A", "5000", "OK"}, rows[6])
	})

	t.Run("unknown format fails before reading", func(t *testing.T) {
		_, err := execute(t, "run", path, "-o", filepath.Join(outDir, "x.pdf"), "--format", "pdf")
		assert.ErrorContains(t, err, "unknown export format")
	})
}

func TestRunCommand_Errors(t *testing.T) {
	path := writeLedger(t, "ledger.csv", stationeryLedger)

	_, err := execute(t, "run", path, "--amount-column", "Total")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `amount column "Total"`)
	assert.Contains(t, err.Error(), "available")

	_, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "failed to read")

	_, err = execute(t, "run")
	assert.Error(t, err, "file argument is required")

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "run", path)
	assert.ErrorContains(t, err, "failed to load config")
}

func TestRunCommand_ListsReview(t *testing.T) {
	path := writeLedger(t, "ledger.csv", unresolvedLedger)

	out, err := execute(t, "run", path, "--review-limit", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "No match groups.")
	assert.Contains(t, out, "Needs review (3):")
	assert.Contains(t, out, "#0 1000.00 ACME consulting fee")
	assert.Contains(t, out, "... 2 more")
	assert.Contains(t, out, "Unresolved=3")
}

func TestSuggestCommand(t *testing.T) {
	path := writeLedger(t, "ledger.csv", unresolvedLedger)

	out, err := execute(t, "suggest", path, "--id", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "#0 1000.00 ACME consulting fee (revenue)")
	assert.Contains(t, out, "-> #1 -300.00 Office rent")
	assert.Contains(t, out, "-> #2 -20.00 Parking")
	assert.Less(t, strings.Index(out, "-> #1"), strings.Index(out, "-> #2"), "closer amount ranks first")
}

func TestSuggestCommand_Errors(t *testing.T) {
	path := writeLedger(t, "ledger.csv", unresolvedLedger)

	_, err := execute(t, "suggest", path, "--id", "42")
	assert.ErrorContains(t, err, "transaction not found")

	_, err = execute(t, "suggest", path)
	assert.ErrorContains(t, err, `required flag(s) "id" not set`)
}

func TestAnalyzeCommand(t *testing.T) {
	path := writeLedger(t, "ledger.csv", unresolvedLedger)

	out, err := execute(t, "analyze", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Rows: 3")
	assert.Contains(t, out, "Columns: Memo, Value")
	assert.Contains(t, out, "Suggested amount column: Value")
	assert.Contains(t, out, "Suggested description column: Memo")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "reconcile test\n", out)
}

func TestServerConfig(t *testing.T) {
	a := &app{}
	root := NewRootCommand("test")
	require.NoError(t, a.init(root, nil))

	a.cfg.API.Port = 9000
	a.cfg.Ingest.MaxUploadMB = 2
	a.cfg.Export.StatusText = "DONE"

	cfg := a.serverConfig(&ServeFlags{})
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "DONE", cfg.Export.StatusText)

	cfg = a.serverConfig(&ServeFlags{Port: 7000})
	assert.Equal(t, 7000, cfg.Port)
}
