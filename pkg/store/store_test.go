package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Get(ctx, "office")
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := s.Put(ctx, "office", []byte(`{"format":"spacegraph"}`))
	require.NoError(t, err)
	assert.Equal(t, "office", e.Name)
	assert.Equal(t, int64(23), e.Size)
	assert.Len(t, e.Hash, 64)
	assert.False(t, e.Compressed)

	_, err = s.Put(ctx, "atrium", append([]byte{0x28, 0xb5, 0x2f, 0xfd}, 1, 2, 3))
	require.NoError(t, err)

	data, got, err := s.Get(ctx, "office")
	require.NoError(t, err)
	assert.Equal(t, `{"format":"spacegraph"}`, string(data))
	assert.Equal(t, e, got)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "atrium", list[0].Name)
	assert.True(t, list[0].Compressed)
	assert.Equal(t, "office", list[1].Name)

	require.NoError(t, s.Delete(ctx, "office"))
	assert.ErrorIs(t, s.Delete(ctx, "office"), ErrNotFound)
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileStoreRejectsBadNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape", "a/b", "tab\tname"} {
		_, err := s.Put(ctx, name, []byte("x"))
		assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidName), "%q: %v", name, err)
		_, _, err = s.Get(ctx, name)
		assert.Error(t, err)
	}
	_, err = s.Put(ctx, "..", []byte("x"))
	assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidPath), "%v", err)
}

func TestDefaultDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, "/data/spacegraph/graphs", dir)
}

func TestMongoRecordLayout(t *testing.T) {
	e, err := newEntry("office", []byte("graph"))
	require.NoError(t, err)
	raw, err := bson.Marshal(record{Entry: e, Data: []byte("graph")})
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "office", m["_id"])
	assert.Equal(t, int64(5), m["size"])
	assert.Equal(t, e.Hash, m["hash"])
	assert.NotContains(t, m, "compressed")
	assert.Contains(t, m, "data")

	var back record
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, e, back.Entry)
	assert.Equal(t, []byte("graph"), back.Data)

	proj, ok := listOptions().Projection.(bson.M)
	require.True(t, ok)
	assert.Equal(t, 0, proj["data"])
}
