package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	lock := For("/tmp/report.md")
	if lock.Path() != "/tmp/report.md.lock" {
		t.Errorf("Path() = %s", lock.Path())
	}
}

func TestLockContextAndUnlock(t *testing.T) {
	lock := New(filepath.Join(t.TempDir(), "nested", "a.lock"))

	require.NoError(t, lock.LockContext(context.Background()))
	assert.True(t, lock.Locked())
	require.NoError(t, lock.Unlock())
	assert.False(t, lock.Locked())
}

func TestTryLockHeldElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	first := New(path)
	second := New(path)

	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}

func TestLockContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	holder := New(path)
	ok, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err = New(path).LockContext(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire lock")
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "report.json")

	require.NoError(t, AtomicWrite(path, []byte("one"), 0600))
	require.NoError(t, AtomicWrite(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteLockedConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := strings.Repeat(fmt.Sprintf("%d", i), 1000)
			if err := WriteLocked(context.Background(), path, []byte(content)); err != nil {
				t.Errorf("WriteLocked: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 1000)
	assert.Equal(t, strings.Repeat(string(data[0]), 1000), string(data), "content must come from a single writer")
}
