package merge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-otp-vault/models"
)

var t0 = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func rec(id, issuer string, updated time.Time) models.Record {
	return models.Record{
		ID: id, Issuer: issuer, Account: "user@example.com",
		Secret: "JBSWY3DPEHPK3PXP", Algorithm: models.AlgorithmSHA1,
		Digits: 6, Period: 30, CreatedAt: t0, UpdatedAt: updated,
	}
}

func tomb(r models.Record, at time.Time) models.Record {
	r.Secret = ""
	r.UpdatedAt = at
	r.DeletedAt = &at
	return r
}

func set(records ...models.Record) models.RecordSet {
	s := models.NewRecordSet()
	for _, r := range records {
		s[r.ID] = r
	}
	return s
}

func mustMerge(t *testing.T, base, local, remote models.RecordSet) models.RecordSet {
	t.Helper()
	out, err := NewMerger().Merge(context.Background(), base, local, remote)
	require.NoError(t, err)
	return out
}

// TestMerge_EmptyInputs verifies that merging three empty sets yields an
// empty set.
func TestMerge_EmptyInputs(t *testing.T) {
	out := mustMerge(t, set(), set(), set())
	assert.Empty(t, out)
}

// TestMerge_Creations verifies that records created on either side after
// the common ancestor are both included.
func TestMerge_Creations(t *testing.T) {
	local := rec("l1", "Local", t0.Add(time.Minute))
	remote := rec("r1", "Remote", t0.Add(2*time.Minute))

	out := mustMerge(t, set(), set(local), set(remote))

	require.Len(t, out, 2)
	assert.True(t, out["l1"].Equal(local))
	assert.True(t, out["r1"].Equal(remote))
}

// TestMerge_BornDeadTombstoneDropped verifies that a record created and
// deleted on one side before the other ever saw it leaves no trace.
func TestMerge_BornDeadTombstoneDropped(t *testing.T) {
	dead := tomb(rec("ephemeral", "Gone", t0), t0.Add(time.Minute))

	out := mustMerge(t, set(), set(dead), set())
	assert.Empty(t, out)

	out = mustMerge(t, set(), set(), set(dead))
	assert.Empty(t, out)
}

// TestMerge_IndependentCreationSameID verifies the resolution when both
// sides created the same ID: the later UpdatedAt wins, remote wins ties.
func TestMerge_IndependentCreationSameID(t *testing.T) {
	older := rec("dup", "Older", t0.Add(time.Minute))
	newer := rec("dup", "Newer", t0.Add(2*time.Minute))

	out := mustMerge(t, set(), set(newer), set(older))
	assert.Equal(t, "Newer", out["dup"].Issuer)

	out = mustMerge(t, set(), set(older), set(newer))
	assert.Equal(t, "Newer", out["dup"].Issuer)

	tieLocal := rec("dup", "Local", t0.Add(time.Minute))
	tieRemote := rec("dup", "Remote", t0.Add(time.Minute))
	out = mustMerge(t, set(), set(tieLocal), set(tieRemote))
	assert.Equal(t, "Remote", out["dup"].Issuer)
}

// TestMerge_TombstoneWinsOverConcurrentEdit verifies that a deletion
// survives a concurrent edit on the other side even when the edit is
// newer, and that the surviving tombstone carries the later timestamp.
func TestMerge_TombstoneWinsOverConcurrentEdit(t *testing.T) {
	base := rec("x", "Base", t0)

	edited := rec("x", "Edited later", t0.Add(2*time.Hour))
	deleted := tomb(base, t0.Add(time.Hour))

	// remote deleted, local edited afterwards
	out := mustMerge(t, set(base), set(edited), set(deleted))
	require.True(t, out["x"].IsDeleted())
	assert.True(t, out["x"].UpdatedAt.Equal(t0.Add(2*time.Hour)))

	// mirror: local deleted, remote edited afterwards
	out = mustMerge(t, set(base), set(deleted), set(edited))
	require.True(t, out["x"].IsDeleted())
	assert.True(t, out["x"].UpdatedAt.Equal(t0.Add(2*time.Hour)))
}

// TestMerge_BothDeleted verifies that two concurrent deletions collapse
// into a single tombstone.
func TestMerge_BothDeleted(t *testing.T) {
	base := rec("x", "Base", t0)
	out := mustMerge(t,
		set(base),
		set(tomb(base, t0.Add(time.Hour))),
		set(tomb(base, t0.Add(2*time.Hour))),
	)

	require.Len(t, out, 1)
	require.True(t, out["x"].IsDeleted())
	assert.True(t, out["x"].UpdatedAt.Equal(t0.Add(2*time.Hour)))
}

// TestMerge_LastWriteWins verifies record-granularity LWW for concurrent
// edits, with remote winning exact timestamp ties.
func TestMerge_LastWriteWins(t *testing.T) {
	base := rec("x", "Base", t0)

	localEdit := rec("x", "Local", t0.Add(2*time.Minute))
	remoteEdit := rec("x", "Remote", t0.Add(time.Minute))
	out := mustMerge(t, set(base), set(localEdit), set(remoteEdit))
	assert.Equal(t, "Local", out["x"].Issuer)

	out = mustMerge(t, set(base), set(remoteEdit), set(localEdit))
	assert.Equal(t, "Local", out["x"].Issuer)

	tieLocal := rec("x", "Local tie", t0.Add(time.Minute))
	tieRemote := rec("x", "Remote tie", t0.Add(time.Minute))
	out = mustMerge(t, set(base), set(tieLocal), set(tieRemote))
	assert.Equal(t, "Remote tie", out["x"].Issuer)
}

// TestMerge_OneSidedEditWins verifies that an edit on one side beats an
// untouched copy on the other, regardless of timestamps.
func TestMerge_OneSidedEditWins(t *testing.T) {
	base := rec("x", "Base", t0.Add(time.Hour))

	// the edit's UpdatedAt is older than base's, it must still win:
	// change detection compares content against base, not clocks
	edit := rec("x", "Edited", t0)

	out := mustMerge(t, set(base), set(edit), set(base))
	assert.Equal(t, "Edited", out["x"].Issuer)

	out = mustMerge(t, set(base), set(base), set(edit))
	assert.Equal(t, "Edited", out["x"].Issuer)
}

// TestMerge_BaseKeptWhenUnchanged verifies that untouched records pass
// through unchanged.
func TestMerge_BaseKeptWhenUnchanged(t *testing.T) {
	base := rec("x", "Base", t0)
	out := mustMerge(t, set(base), set(base), set(base))

	require.Len(t, out, 1)
	assert.True(t, out["x"].Equal(base))
}

// TestMerge_AbsentSideTreatedAsUnchanged verifies the defensive rule for
// records that are in base but missing from a side without a tombstone.
func TestMerge_AbsentSideTreatedAsUnchanged(t *testing.T) {
	base := rec("x", "Base", t0)
	edit := rec("x", "Edited", t0.Add(time.Minute))

	// missing locally, edited remotely -> remote edit wins
	out := mustMerge(t, set(base), set(), set(edit))
	assert.Equal(t, "Edited", out["x"].Issuer)

	// missing on both sides -> ancestor version is restored
	out = mustMerge(t, set(base), set(), set())
	assert.True(t, out["x"].Equal(base))
}

// TestMerge_Idempotent verifies that re-merging a merge result against
// itself changes nothing.
func TestMerge_Idempotent(t *testing.T) {
	base := set(rec("x", "Base", t0), rec("y", "Base", t0))
	local := set(rec("x", "Local", t0.Add(time.Minute)), rec("y", "Base", t0), rec("l", "New", t0.Add(time.Minute)))
	remote := set(tomb(rec("y", "Base", t0), t0.Add(2*time.Minute)), rec("x", "Base", t0))

	first := mustMerge(t, base, local, remote)
	second := mustMerge(t, first, first, first)

	assert.True(t, first.Equal(second))
}

// TestMerge_Deterministic verifies byte-identical canonical output for
// repeated runs over the same inputs.
func TestMerge_Deterministic(t *testing.T) {
	base := set(rec("a", "A", t0), rec("b", "B", t0), rec("c", "C", t0))
	local := set(rec("a", "A2", t0.Add(time.Minute)), rec("b", "B", t0), rec("c", "C", t0), rec("d", "D", t0.Add(time.Minute)))
	remote := set(rec("a", "A", t0), tomb(rec("b", "B", t0), t0.Add(time.Minute)), rec("c", "C3", t0.Add(2*time.Minute)))

	first, err := mustMerge(t, base, local, remote).MarshalCanonical()
	require.NoError(t, err)
	second, err := mustMerge(t, base, local, remote).MarshalCanonical()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestMerge_InputsNotMutated verifies that the merge never writes into
// any of its inputs.
func TestMerge_InputsNotMutated(t *testing.T) {
	base := set(rec("x", "Base", t0))
	local := set(rec("x", "Local", t0.Add(time.Minute)), rec("l", "New", t0.Add(time.Minute)))
	remote := set(tomb(rec("x", "Base", t0), t0.Add(2*time.Minute)))

	baseCopy, localCopy, remoteCopy := base.Clone(), local.Clone(), remote.Clone()

	mustMerge(t, base, local, remote)

	assert.True(t, base.Equal(baseCopy))
	assert.True(t, local.Equal(localCopy))
	assert.True(t, remote.Equal(remoteCopy))
}

// TestMerge_ContextCancelled verifies that a cancelled context aborts
// the walk.
func TestMerge_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMerger().Merge(ctx, set(), set(rec("x", "X", t0)), set())
	assert.ErrorIs(t, err, context.Canceled)
}

// TestMerge_TwoDeviceScenario runs a realistic divergence: both devices
// edit, delete, and create concurrently, and every rule applies at once.
func TestMerge_TwoDeviceScenario(t *testing.T) {
	base := set(
		rec("x", "Shared X", t0),
		rec("y", "Shared Y", t0),
		rec("z", "Shared Z", t0),
	)

	// device A (local): edits x, deletes y, creates a1
	local := set(
		rec("x", "X edited on A", t0.Add(10*time.Minute)),
		tomb(rec("y", "Shared Y", t0), t0.Add(11*time.Minute)),
		rec("z", "Shared Z", t0),
		rec("a1", "Created on A", t0.Add(12*time.Minute)),
	)

	// device B (remote): deletes x, edits y, creates b1
	remote := set(
		tomb(rec("x", "Shared X", t0), t0.Add(5*time.Minute)),
		rec("y", "Y edited on B", t0.Add(20*time.Minute)),
		rec("z", "Shared Z", t0),
		rec("b1", "Created on B", t0.Add(6*time.Minute)),
	)

	out := mustMerge(t, base, local, remote)

	require.Len(t, out, 5)
	assert.True(t, out["x"].IsDeleted(), "B's deletion must beat A's edit")
	assert.True(t, out["y"].IsDeleted(), "A's deletion must beat B's edit")
	assert.True(t, out["z"].Equal(base["z"]), "untouched record passes through")
	assert.Equal(t, "Created on A", out["a1"].Issuer)
	assert.Equal(t, "Created on B", out["b1"].Issuer)
	assert.Equal(t, 2, len(out)-out.Live(), "exactly the two tombstones, none extra")
}
