package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/modelbench/pkg/config"
)

func TestKeyBasicProperties(t *testing.T) {
	key := Key(map[string]string{"model": "llama2", "task": "translate", "text": "hello"})
	assert.Len(t, key, 64)
	assert.Regexp(t, "^[0-9a-f]+$", key)
}

func TestKeyConsistency(t *testing.T) {
	params := map[string]string{"provider": "ollama", "model": "m", "task": "summarize", "text": "hi"}
	assert.Equal(t, Key(params), Key(params))
}

func TestKeyOrderIndependence(t *testing.T) {
	a := map[string]string{}
	a["model"] = "m"
	a["task"] = "t"
	a["text"] = "x"
	b := map[string]string{}
	b["text"] = "x"
	b["task"] = "t"
	b["model"] = "m"
	assert.Equal(t, Key(a), Key(b))
}

func TestKeySensitiveToEveryValue(t *testing.T) {
	base := map[string]string{"provider": "ollama", "model": "m", "task": "summarize", "instruction": "p", "text": "hi"}
	baseKey := Key(base)

	for name := range base {
		changed := make(map[string]string, len(base))
		for k, v := range base {
			changed[k] = v
		}
		changed[name] = base[name] + "!"
		assert.NotEqual(t, baseKey, Key(changed), "changing %s must change the key", name)
	}
}

func TestKeyDoesNotConfuseBoundaries(t *testing.T) {
	a := Key(map[string]string{"model": "ab", "task": "c"})
	b := Key(map[string]string{"model": "a", "task": "bc"})
	assert.NotEqual(t, a, b)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("disabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache.Enabled = false
		s, err := Open(cfg, nil)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache.Dir = filepath.Join(dir, "files")
		s, err := Open(cfg, nil)
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, s.Put("k", "v"))
		got, ok := s.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache.Backend = "sqlite"
		cfg.DBPath = filepath.Join(dir, "cache.db")
		s, err := Open(cfg, nil)
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, s.Put("k", "v"))
		got, ok := s.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache.Backend = "redis"
		_, err := Open(cfg, nil)
		assert.Error(t, err)
	})
}
