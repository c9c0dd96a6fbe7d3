package analyze

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	srcerrors "github.com/srcserve/srcserve/internal/errors"
	"github.com/srcserve/srcserve/internal/logging"
)

type countingAnalyzer struct {
	calls  int64
	result func(code string) (Result, error)
}

func (c *countingAnalyzer) Analyze(code string) (Result, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.result(code)
}

func TestMemo_DeduplicatesIdenticalContent(t *testing.T) {
	analyzer := &countingAnalyzer{result: func(code string) (Result, error) {
		return Result(`{"bytes":` + "1" + `}`), nil
	}}
	memo := NewMemo(analyzer, 1<<20, logging.Discard())

	first, err := memo.Analyze("const x = 1;")
	require.NoError(t, err)
	second, err := memo.Analyze("const x = 1;")
	require.NoError(t, err)

	assert.Equal(t, first, second, "hit must return exactly the stored value")
	assert.Equal(t, int64(1), analyzer.calls)
}

func TestMemo_DistinctContentAnalyzedSeparately(t *testing.T) {
	analyzer := &countingAnalyzer{result: func(code string) (Result, error) {
		return Result("{}"), nil
	}}
	memo := NewMemo(analyzer, 1<<20, logging.Discard())

	_, err := memo.Analyze("const x = 1;")
	require.NoError(t, err)
	_, err = memo.Analyze("const x = 2;")
	require.NoError(t, err)

	assert.Equal(t, int64(2), analyzer.calls)
	assert.Equal(t, 2, memo.CacheStats().Entries)
}

func TestMemo_FailuresNotCached(t *testing.T) {
	analyzer := &countingAnalyzer{result: func(string) (Result, error) {
		return nil, errors.New("unparseable")
	}}
	memo := NewMemo(analyzer, 1<<20, logging.Discard())

	_, err := memo.Analyze("garbage")
	require.Error(t, err)
	_, err = memo.Analyze("garbage")
	require.Error(t, err)

	assert.Equal(t, int64(2), analyzer.calls, "analyzer failures must not be memoized")

	var se *srcerrors.ServeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, srcerrors.KindAnalysis, se.Kind)
}

func TestBasic_Report(t *testing.T) {
	result, err := Basic().Analyze("import { a } from './a.js';\nconst x = 1;\n")
	require.NoError(t, err)

	var report BasicReport
	require.NoError(t, json.Unmarshal(result, &report))
	assert.Equal(t, 3, report.Lines)
	assert.Equal(t, 1, report.Imports)
	assert.Equal(t, 41, report.Bytes)
}

func TestBasic_EmptyCode(t *testing.T) {
	result, err := Basic().Analyze("")
	require.NoError(t, err)

	var report BasicReport
	require.NoError(t, json.Unmarshal(result, &report))
	assert.Equal(t, 0, report.Lines)
	assert.Equal(t, 0, report.Bytes)
}
