package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestArchive(t *testing.T) *SheetArchive {
	t.Helper()
	a := NewSheetArchive(t.TempDir(), zap.NewNop())
	a.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return a
}

func TestSheetArchive_Save(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	path, err := a.Save(ctx, "KZ-2025-004-approval-sheet.xlsx", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.baseDir, "2025", "KZ-2025-004-approval-sheet.xlsx"), path)

	content, err := a.Read(ctx, filepath.Join("2025", "KZ-2025-004-approval-sheet.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), content)

	// saving again replaces the earlier sheet
	_, err = a.Save(ctx, "KZ-2025-004-approval-sheet.xlsx", []byte("v2"))
	require.NoError(t, err)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), content)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSheetArchive_SanitizesNames(t *testing.T) {
	a := newTestArchive(t)

	path, err := a.Save(context.Background(), "../../etc/KZ 2025 004.xlsx", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.baseDir, "2025", "etcKZ2025004.xlsx"), path)

	_, err = a.Save(context.Background(), "../..", []byte("x"))
	assert.Error(t, err)
}

func TestSheetArchive_ReadRejectsEscape(t *testing.T) {
	a := newTestArchive(t)
	_, err := a.Read(context.Background(), "../outside.xlsx")
	assert.ErrorContains(t, err, "escapes base directory")
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"KZ-2025-004.xlsx", "KZ-2025-004.xlsx"},
		{"a/b\\c", "abc"},
		{"..hidden", "hidden"},
		{"sheet (final).xlsx", "sheetfinal.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}
