package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRegistry struct{ calls int }

func (f *failingRegistry) Save(context.Context, string, time.Time) error {
	f.calls++
	return errors.New("storage disabled")
}
func (f *failingRegistry) Close() error { return nil }

func TestNewClientID_IsUUID(t *testing.T) {
	id := NewClientID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewClientID())
}

func TestNewClientID_FallsBackWithoutRandomSource(t *testing.T) {
	orig := newUUID
	t.Cleanup(func() { newUUID = orig })
	newUUID = func() (uuid.UUID, error) { return uuid.Nil, errors.New("no entropy") }

	id := NewClientID()
	assert.Regexp(t, regexp.MustCompile(`^client_\d+_[0-9a-z]{8}$`), id)
}

func TestFallbackID_UsesMillis(t *testing.T) {
	id := fallbackID(time.UnixMilli(1700000000123))
	assert.Regexp(t, `^client_1700000000123_[0-9a-z]{8}$`, id)
}

func TestManager_PersistFailureIsSwallowed(t *testing.T) {
	reg := &failingRegistry{}
	m := NewManager(reg, nil)

	var id string
	assert.NotPanics(t, func() { id = m.Refresh(context.Background()) })
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, reg.calls)
}

func TestManager_Ensure(t *testing.T) {
	reg := NewMemoryRegistry()
	m := NewManager(reg, nil)
	ctx := context.Background()

	assert.Equal(t, "existing", m.Ensure(ctx, "existing"))
	_, known := reg.Get("existing")
	assert.False(t, known, "an existing id is not re-persisted")

	healed := m.Ensure(ctx, "  ")
	assert.NotEmpty(t, healed)
	_, known = reg.Get(healed)
	assert.True(t, known)
}

func TestMemoryRegistry_TracksFirstAndLastSeen(t *testing.T) {
	reg := NewMemoryRegistry()
	first := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	require.NoError(t, reg.Save(context.Background(), "c1", first))
	require.NoError(t, reg.Save(context.Background(), "c1", later))

	r, ok := reg.Get("c1")
	require.True(t, ok)
	assert.Equal(t, first, r.FirstSeen)
	assert.Equal(t, later, r.LastSeen)
}

func TestFileRegistry_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client_ids.json")
	reg := NewFileRegistry(path)
	ts := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, reg.Save(context.Background(), "c1", ts))
	require.NoError(t, reg.Save(context.Background(), "c2", ts.Add(time.Minute)))

	records, err := NewFileRegistry(path).Read()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.True(t, records["c2"].LastSeen.Equal(ts.Add(time.Minute)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRegistry_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client_ids.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	reg := NewFileRegistry(path)
	assert.Error(t, reg.Save(context.Background(), "c1", time.Now()))
	assert.Error(t, reg.Save(context.Background(), "", time.Now()))
}

func TestOpenRegistry(t *testing.T) {
	ctx := context.Background()

	reg, err := OpenRegistry(ctx, Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRegistry{}, reg)

	reg, err = OpenRegistry(ctx, Options{Backend: "file", FilePath: filepath.Join(t.TempDir(), "ids.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileRegistry{}, reg)

	_, err = OpenRegistry(ctx, Options{Backend: "file"}, nil)
	assert.Error(t, err)

	_, err = OpenRegistry(ctx, Options{Backend: "redis"}, nil)
	assert.Error(t, err, "redis needs an address")

	_, err = OpenRegistry(ctx, Options{Backend: "cassandra"}, nil)
	assert.Error(t, err)
}
