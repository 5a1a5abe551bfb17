package mem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/domrep/internal/rep/repos/storage"
)

func TestPutGetDelete(t *testing.T) {
	s := New()

	require.NoError(t, s.Put("ns", "k", []byte("v")))
	got, err := s.Get("ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete("ns", "k"))
	_, err = s.Get("ns", "k")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestValuesAreCopied(t *testing.T) {
	s := New()
	val := []byte("original")
	require.NoError(t, s.Put("ns", "k", val))
	val[0] = 'X'

	got, err := s.Get("ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got, "stored value must not alias caller memory")
}

func TestFailPutHook(t *testing.T) {
	s := New()
	boom := errors.New("disk full")
	s.FailPut = func(namespace, key string) error {
		if key == "bad" {
			return boom
		}
		return nil
	}

	assert.NoError(t, s.Put("ns", "good", []byte("v")))
	assert.ErrorIs(t, s.Put("ns", "bad", []byte("v")), boom)
}

func TestKeys(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("ns", "a", nil))
	require.NoError(t, s.Put("ns", "b", nil))
	assert.ElementsMatch(t, []string{"a", "b"}, s.Keys("ns"))
	assert.Empty(t, s.Keys("other"))
}
