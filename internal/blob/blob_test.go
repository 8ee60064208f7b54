package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, fsStore.Driver())

	memStore, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, memStore.Driver())

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.Error(t, err, "bucket is required")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestStoresShareSemantics(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{Driver: DriverFilesystem, FSRoot: t.TempDir()})
	require.NoError(t, err)
	memStore, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)

	for _, store := range []Store{fsStore, memStore} {
		t.Run(string(store.Driver()), func(t *testing.T) {
			info, err := store.Put(ctx, "exports/a/catalog.json", bytes.NewReader([]byte(`{"ok":true}`)), PutOptions{
				ContentType: "application/json",
				Metadata:    map[string]string{"export": "a"},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(11), info.Size)
			assert.NotEmpty(t, info.ETag)

			_, err = store.Put(ctx, "exports/a/catalog.json", bytes.NewReader(nil), PutOptions{})
			assert.True(t, errors.Is(err, ErrExists))

			_, err = store.Put(ctx, "../escape", bytes.NewReader(nil), PutOptions{})
			assert.Error(t, err)

			got, rc, err := store.Get(ctx, "exports/a/catalog.json")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, `{"ok":true}`, string(body))
			assert.Equal(t, "application/json", got.ContentType)
			assert.Equal(t, "a", got.Metadata["export"])

			_, err = store.Put(ctx, "exports/b/catalog.csv", bytes.NewReader([]byte("x")), PutOptions{})
			require.NoError(t, err)
			list, err := store.List(ctx, "exports/a/")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "exports/a/catalog.json", list[0].Key)

			_, err = store.Head(ctx, "exports/missing")
			assert.True(t, errors.Is(err, ErrNotFound))
			_, _, err = store.Get(ctx, "exports/missing")
			assert.True(t, errors.Is(err, ErrNotFound))

			removed, err := store.Delete(ctx, "exports/a/catalog.json")
			require.NoError(t, err)
			assert.True(t, removed)
			removed, err = store.Delete(ctx, "exports/a/catalog.json")
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}
