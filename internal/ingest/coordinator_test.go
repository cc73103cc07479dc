package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/medreg/internal/schema"
)

// stubPersister records inserts and can be told to reject specific rows.
type stubPersister struct {
	mu       sync.Mutex
	inserted []schema.Row
	rejectFn func(schema.Row) error
}

func (s *stubPersister) Insert(_ context.Context, row schema.Row) (int64, error) {
	if s.rejectFn != nil {
		if err := s.rejectFn(row); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, row)
	return int64(len(s.inserted)), nil
}

func (s *stubPersister) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

// buildCSV renders a snapshot with the standard header line plus one data
// row per entry of (category, name, substance).
func buildCSV(rows [][3]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Category", "Medicine name", "Active substance"})
	for _, r := range rows {
		w.Write([]string{r[0], r[1], r[2]})
	}
	w.Flush()
	return buf.String()
}

func TestImportCountsAreExact(t *testing.T) {
	// 10 rows, 4 with the required medicine name missing.
	var rows [][3]string
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("Medicine %d", i)
		if i%3 == 0 {
			name = ""
		}
		rows = append(rows, [3]string{"Human", name, "substance"})
	}

	p := &stubPersister{}
	c := NewCoordinator(p, nil, 4)
	outcome, err := c.ImportReader(context.Background(), strings.NewReader(buildCSV(rows)), "test.csv")
	require.NoError(t, err)

	assert.Equal(t, 6, outcome.Imported)
	assert.Equal(t, 4, outcome.Failed)
	assert.Equal(t, 6, p.count())
	assert.LessOrEqual(t, len(outcome.Failures), 4)
	for _, f := range outcome.Failures {
		assert.Equal(t, FailureValidation, f.Kind)
	}
	assert.NotEmpty(t, outcome.RunID)
}

func TestFailureSampleIsCappedButCountIsNot(t *testing.T) {
	var rows [][3]string
	for i := 0; i < 12; i++ {
		rows = append(rows, [3]string{"Human", "", "substance"}) // all invalid
	}

	c := NewCoordinator(&stubPersister{}, nil, 4)
	outcome, err := c.ImportReader(context.Background(), strings.NewReader(buildCSV(rows)), "test.csv")
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.Imported)
	assert.Equal(t, 12, outcome.Failed, "failure count must stay exact past the sample cap")
	assert.Len(t, outcome.Failures, failureSampleSize)
}

func TestPersistenceFailuresAreRowScoped(t *testing.T) {
	rows := [][3]string{
		{"Human", "Alpha", "a"},
		{"Human", "Broken", "b"},
		{"Human", "Gamma", "c"},
	}
	p := &stubPersister{
		rejectFn: func(row schema.Row) error {
			if row[schema.FieldMedicineName] == "Broken" {
				return errors.New("duplicate key value violates unique constraint")
			}
			return nil
		},
	}

	c := NewCoordinator(p, nil, 2)
	outcome, err := c.ImportReader(context.Background(), strings.NewReader(buildCSV(rows)), "test.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Imported)
	assert.Equal(t, 1, outcome.Failed)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, FailurePersistence, outcome.Failures[0].Kind)
	assert.Equal(t, "Broken", outcome.Failures[0].Row[schema.FieldMedicineName])
}

func TestLargeImportUnderConcurrency(t *testing.T) {
	var rows [][3]string
	for i := 0; i < 500; i++ {
		rows = append(rows, [3]string{"Human", fmt.Sprintf("Medicine %d", i), "s"})
	}

	p := &stubPersister{}
	c := NewCoordinator(p, nil, 16)
	outcome, err := c.ImportReader(context.Background(), strings.NewReader(buildCSV(rows)), "big.csv")
	require.NoError(t, err)

	// Every row attempted exactly once regardless of worker count.
	assert.Equal(t, 500, outcome.Imported)
	assert.Equal(t, 0, outcome.Failed)
	assert.Equal(t, 500, p.count())
}

func TestImportSourceReadError(t *testing.T) {
	c := NewCoordinator(&stubPersister{}, nil, 1)
	_, err := c.ImportSource(context.Background(), "/does/not/exist.csv")

	var rerr *ReadError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "/does/not/exist.csv", rerr.Source)
}

func TestImportParseErrorIsFatal(t *testing.T) {
	// A bare quote inside an unquoted field is malformed CSV.
	bad := "Category,Medicine name\nHuman,Aspi\"rin\n"
	p := &stubPersister{}
	c := NewCoordinator(p, nil, 1)

	_, err := c.ImportReader(context.Background(), strings.NewReader(bad), "bad.csv")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Zero(t, p.count(), "no partial outcome on parse failure")
}

func TestImportEmptySource(t *testing.T) {
	c := NewCoordinator(&stubPersister{}, nil, 1)
	outcome, err := c.ImportReader(context.Background(), strings.NewReader(""), "empty.csv")
	require.NoError(t, err)
	assert.Zero(t, outcome.Imported)
	assert.Zero(t, outcome.Failed)
}

func TestImportSourceLocalFileWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	data := "\xEF\xBB\xBF" + buildCSV([][3]string{{"Human", "Aspirin", "acetylsalicylic acid"}})
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	p := &stubPersister{}
	c := NewCoordinator(p, nil, 1)
	outcome, err := c.ImportSource(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Imported)
	require.Equal(t, 1, p.count())
	assert.Equal(t, "Human", p.inserted[0][schema.FieldCategory],
		"BOM must not corrupt the first header")
}
