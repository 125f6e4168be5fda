package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ipc"
)

var errNoForms = errors.New("no forms")

// stubQuery is a minimal AST source for database tests.
type stubQuery struct {
	forms map[ast.ModuleName][]ast.Form
}

func (q *stubQuery) bytes(ast.ProjectID, ast.ModuleName) ([]byte, error) {
	return nil, errNoForms
}

func (q *stubQuery) ErlASTBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) ConvertedASTBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) ErlStubBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) ConvertedStubBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) ExpandedStubBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) ContractiveStubBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) CovariantStubBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) TransitiveStubBytes(p ast.ProjectID, m ast.ModuleName) ([]byte, error) {
	return q.bytes(p, m)
}

func (q *stubQuery) ConvertedAST(_ ast.ProjectID, m ast.ModuleName) ([]ast.Form, error) {
	forms, found := q.forms[m]
	if !found {
		return nil, errNoForms
	}

	return forms, nil
}

type recordingSink struct {
	started []string
	done    []string
}

func (s *recordingSink) EqwalizingStart(module string) { s.started = append(s.started, module) }
func (s *recordingSink) EqwalizingDone(module string)  { s.done = append(s.done, module) }

func TestDB_HandleRegistry(t *testing.T) {
	t.Parallel()

	db := New(&stubQuery{})

	assert.Nil(t, db.ModuleIPCHandle("m"))

	shared := ipc.NewShared(nil)
	db.SetModuleIPCHandle("m", shared)

	assert.Same(t, shared, db.ModuleIPCHandle("m"))
	assert.Nil(t, db.ModuleIPCHandle("other"))
}

func TestDB_SinkRouting(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	db := New(&stubQuery{}, WithSink(sink))

	db.EqwalizingStart("m")
	db.EqwalizingDone("m")

	assert.Equal(t, []string{"m"}, sink.started)
	assert.Equal(t, []string{"m"}, sink.done)
}

func TestDB_ModuleDiagnosticsMemoizes(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	db := New(&stubQuery{}, WithClock(clock))

	// No parked handle: the computation fails into a CheckError outcome,
	// which memoizes like any other result.
	out1, ts1, err := db.ModuleDiagnostics(context.Background(), 1, "m")
	require.NoError(t, err)
	require.IsType(t, eqwalizer.CheckError{}, out1)

	clock.Advance(time.Second)

	out2, ts2, err := db.ModuleDiagnostics(context.Background(), 1, "m")
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Equal(t, ts1, ts2, "memoized entry keeps its timestamp")
}

func TestDB_InvalidateForcesFreshTimestamp(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	db := New(&stubQuery{}, WithClock(clock))

	out1, ts1, err := db.ModuleDiagnostics(context.Background(), 1, "m")
	require.NoError(t, err)

	db.Invalidate(1, "m")
	clock.Advance(time.Second)

	out2, ts2, err := db.ModuleDiagnostics(context.Background(), 1, "m")
	require.NoError(t, err)

	// Equal outcomes must still register as a new version after a
	// recomputation; the timestamp is what defeats back-dating.
	assert.Equal(t, out1, out2)
	assert.True(t, ts2.After(ts1))
}

func TestDB_CancelledComputationNotMemoized(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	db := New(&stubQuery{}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := db.ModuleDiagnostics(ctx, 1, "m")
	require.ErrorIs(t, err, context.Canceled)

	// A later call with a live context recomputes instead of returning a
	// cached cancellation artifact.
	out, _, err := db.ModuleDiagnostics(context.Background(), 1, "m")
	require.NoError(t, err)
	require.IsType(t, eqwalizer.CheckError{}, out)
}

func TestDB_KeysAreProjectScoped(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	db := New(&stubQuery{}, WithClock(clock))

	_, ts1, err := db.ModuleDiagnostics(context.Background(), 1, "m")
	require.NoError(t, err)

	clock.Advance(time.Second)

	_, ts2, err := db.ModuleDiagnostics(context.Background(), 2, "m")
	require.NoError(t, err)

	assert.NotEqual(t, ts1, ts2, "same module under another project is a distinct query")
}

func TestDB_EqwalizerStatsMemoized(t *testing.T) {
	t.Parallel()

	q := &stubQuery{forms: map[ast.ModuleName][]ast.Form{
		"m": {ast.NowarnFunctionForm{Name: "f", Arity: 1}},
	}}
	db := New(q)

	stats := db.EqwalizerStats(1, "m")
	require.NotNil(t, stats)
	assert.Equal(t, uint32(1), stats.Nowarn)

	// Mutating the source does not affect the memoized entry.
	q.forms["m"] = nil

	again := db.EqwalizerStats(1, "m")
	assert.Same(t, stats, again)
}

func TestDB_EqwalizerStatsNoStatsMemoized(t *testing.T) {
	t.Parallel()

	db := New(&stubQuery{})

	assert.Nil(t, db.EqwalizerStats(1, "absent"))
	assert.Nil(t, db.EqwalizerStats(1, "absent"))
}

func TestDB_UntrackedReads(t *testing.T) {
	t.Parallel()

	db := New(&stubQuery{})

	assert.Equal(t, int64(0), db.UntrackedReads())

	db.ReportUntrackedRead()
	db.ReportUntrackedRead()

	assert.Equal(t, int64(2), db.UntrackedReads())
}
