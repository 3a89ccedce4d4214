package runlock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, "worker")
	require.NoError(t, err)
	require.NotNil(t, lock)

	_, err = os.Stat(filepath.Join(dir, "worker.pid"))
	assert.NoError(t, err)

	require.NoError(t, lock.Release())

	_, err = os.Stat(filepath.Join(dir, "worker.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, "worker")
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	_, err = Acquire(dir, "worker")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireTakesOverStalePidfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.pid")

	// A pid that cannot belong to a live process.
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	lock, err := Acquire(dir, "worker")
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "999999999\n", string(raw))
}

func TestAcquireTakesOverMalformedPidfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.pid")

	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	lock, err := Acquire(dir, "worker")
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()
}

func TestReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, "worker")
	require.NoError(t, err)

	assert.NoError(t, lock.Release())
	assert.NoError(t, lock.Release())
}
