// Package storetest is a conformance suite for store.Store backends.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facet/internal/store"
)

// Factory opens a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run exercises the Store contract against stores from open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	t.Run("absent key", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		data, err := s.Load(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("save then load", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "k", []byte(`{"a":1}`)))
		data, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(data))
	})

	t.Run("overwrite", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "k", []byte("one")))
		require.NoError(t, s.Save(ctx, "k", []byte("two")))
		data, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})

	t.Run("empty value is not absent", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "k", []byte{}))
		data, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "a", []byte("A")))
		require.NoError(t, s.Save(ctx, "b", []byte("B")))
		a, _ := s.Load(ctx, "a")
		b, _ := s.Load(ctx, "b")
		assert.Equal(t, "A", string(a))
		assert.Equal(t, "B", string(b))
	})

	t.Run("returned bytes are not aliased", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		in := []byte("abc")
		require.NoError(t, s.Save(ctx, "k", in))
		in[0] = 'x'

		out, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(out))
		out[0] = 'y'

		again, _ := s.Load(ctx, "k")
		assert.Equal(t, "abc", string(again))
	})

	t.Run("json helpers", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		type rec struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		require.NoError(t, store.SaveJSON(ctx, s, "rec", rec{"x", 3}))

		var got rec
		found, err := store.LoadJSON(ctx, s, "rec", &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, rec{"x", 3}, got)

		found, err = store.LoadJSON(ctx, s, "nope", &got)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, s.Save(ctx, "bad", []byte("{not json")))
		_, err = store.LoadJSON(ctx, s, "bad", &got)
		assert.Error(t, err)
	})

	t.Run("concurrent saves", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Save(ctx, fmt.Sprintf("k%d", i), []byte{byte(i)}))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			data, err := s.Load(ctx, fmt.Sprintf("k%d", i))
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i)}, data)
		}
	})
}
