package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable() *Table {
	return NewTable(
		func() uint32 { return 100 },
		func() uint64 { return 200 },
		func(c *int64) bool { *c = 300; return true },
	)
}

func TestTableDispatchesToOriginalWhenUnhooked(t *testing.T) {
	tbl := newTestTable()

	assert.Equal(t, uint32(100), tbl.TickCount())
	assert.Equal(t, uint64(200), tbl.TickCount64())

	var c int64
	assert.True(t, tbl.QueryPerformanceCounter(&c))
	assert.Equal(t, int64(300), c)
}

func TestTableInstallAndCallThrough(t *testing.T) {
	tbl := newTestTable()

	h, err := tbl.Install(TickCount, func() uint32 { return 7 })
	require.NoError(t, err)
	assert.Equal(t, TickCount, h.Target())
	assert.True(t, tbl.Hooked(TickCount))

	assert.Equal(t, uint32(7), tbl.TickCount())

	orig, ok := h.Original().(TickCountFunc)
	require.True(t, ok, "original has type %T", h.Original())
	assert.Equal(t, uint32(100), orig())
}

func TestTableUninstallIsIdempotent(t *testing.T) {
	tbl := newTestTable()

	h, err := tbl.Install(TickCount64, TickCount64Func(func() uint64 { return 1 }))
	require.NoError(t, err)

	require.NoError(t, tbl.Uninstall(h))
	require.NoError(t, tbl.Uninstall(h))
	assert.False(t, tbl.Hooked(TickCount64))
	assert.Equal(t, uint64(200), tbl.TickCount64())
}

func TestTableStaleHandleDoesNotRemoveNewerDetour(t *testing.T) {
	tbl := newTestTable()

	first, err := tbl.Install(TickCount, func() uint32 { return 1 })
	require.NoError(t, err)
	require.NoError(t, tbl.Uninstall(first))

	_, err = tbl.Install(TickCount, func() uint32 { return 2 })
	require.NoError(t, err)

	require.NoError(t, tbl.Uninstall(first))
	assert.Equal(t, uint32(2), tbl.TickCount())
}

func TestTableRejectsDoubleInstall(t *testing.T) {
	tbl := newTestTable()

	_, err := tbl.Install(PerformanceCounter, func(c *int64) bool { return true })
	require.NoError(t, err)

	_, err = tbl.Install(PerformanceCounter, func(c *int64) bool { return true })
	assert.ErrorIs(t, err, ErrAlreadyHooked)
}

func TestTableRejectsBadDetours(t *testing.T) {
	tbl := newTestTable()

	tests := []struct {
		name   string
		target Target
		detour any
		want   error
	}{
		{"wrong signature", TickCount, func() uint64 { return 0 }, ErrSignature},
		{"nil detour", TickCount64, TickCount64Func(nil), ErrSignature},
		{"unknown target", Target("Sleep"), func() {}, ErrUnknownTarget},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tbl.Install(tc.target, tc.detour)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTableRejectsUnregisteredOriginal(t *testing.T) {
	tbl := NewTable(nil, func() uint64 { return 0 }, nil)

	_, err := tbl.Install(TickCount, func() uint32 { return 0 })
	assert.ErrorIs(t, err, ErrNotRegistered)
}
