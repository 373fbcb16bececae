package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// readAll parses every partition and returns the records in order.
func readAll(t *testing.T, parts []Partition) [][]string {
	t.Helper()
	var out [][]string
	for _, p := range parts {
		f, err := os.Open(p.Path)
		require.NoError(t, err)
		r := csv.NewReader(io.NewSectionReader(f, p.Start, p.End-p.Start))
		r.FieldsPerRecord = -1
		recs, err := r.ReadAll()
		f.Close()
		require.NoError(t, err, "partition %s", p)
		out = append(out, recs...)
	}
	return out
}

func TestPlanFile_SinglePartition(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "a.csv", "product_id,brand\n1,Acme\n2,Zed\n")
	parts, err := PlanFile(path, 1<<20)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, []string{"product_id", "brand"}, parts[0].Header)
	assert.Equal(t, int64(len("product_id,brand\n")), parts[0].Start)
	assert.Equal(t, [][]string{{"1", "Acme"}, {"2", "Zed"}}, readAll(t, parts))
}

func TestPlanFile_SplitsOnRecordBoundaries(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("product_id,title\n")
	for i := 0; i < 200; i++ {
		b.WriteString("1,\"multi\nline, \"\"quoted\"\"\ntitle\"\n")
	}
	path := writeFile(t, t.TempDir(), "q.csv", b.String())

	parts, err := PlanFile(path, 64)
	require.NoError(t, err)
	require.Greater(t, len(parts), 10)

	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1].End, parts[i].Start, "partitions must be contiguous")
	}
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), parts[len(parts)-1].End)

	recs := readAll(t, parts)
	require.Len(t, recs, 200)
	for _, r := range recs {
		assert.Equal(t, []string{"1", "multi\nline, \"quoted\"\ntitle"}, r)
	}
}

func TestPlanFile_TrailingRecordWithoutNewline(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "t.csv", "brand\r\nA\r\nB")
	parts, err := PlanFile(path, 1)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, [][]string{{"A"}, {"B"}}, readAll(t, parts))
}

func TestPlanFile_HeaderOnlyAndEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parts, err := PlanFile(writeFile(t, dir, "h.csv", "product_id,brand\n"), 10)
	require.NoError(t, err)
	assert.Empty(t, parts)

	parts, err = PlanFile(writeFile(t, dir, "e.csv", ""), 10)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPlanFile_StripsBOMAndSpaces(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "b.csv", "\xef\xbb\xbfproduct_id , brand\n1,A\n")
	parts, err := PlanFile(path, 10)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, []string{"product_id", "brand"}, parts[0].Header)
}

func TestPlanFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := PlanFile(filepath.Join(t.TempDir(), "nope.csv"), 10)
	assert.Error(t, err)

	_, err = PlanFile("whatever.csv", 0)
	assert.Error(t, err)
}

func TestResolveSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := writeFile(t, dir, "b.csv", "x\n")
	a := writeFile(t, dir, "a.csv", "x\n")
	writeFile(t, dir, "notes.txt", "x\n")

	files, err := ResolveSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	files, err = ResolveSources(b, filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, files)

	_, err = ResolveSources(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = ResolveSources(filepath.Join(dir, "*.parquet"))
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = ResolveSources(t.TempDir())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}
