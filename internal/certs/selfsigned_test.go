package certs

import (
	"crypto/x509"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateGeneratesOnce(t *testing.T) {
	store := NewStore(t.TempDir())

	first, err := store.LoadOrCreate()
	require.NoError(t, err)

	certFile, keyFile := store.Files()
	assert.FileExists(t, certFile)
	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, first.Certificate[0], second.Certificate[0], "valid certificate is reused")

	leaf, err := x509.ParseCertificate(first.Certificate[0])
	require.NoError(t, err)
	assert.NoError(t, leaf.VerifyHostname("localhost"))
	assert.NoError(t, leaf.VerifyHostname("127.0.0.1"))
}

func TestLoadOrCreateReplacesExpired(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	store.now = func() time.Time { return time.Now().Add(-2 * Validity) }

	old, err := store.LoadOrCreate()
	require.NoError(t, err)

	store.now = time.Now
	fresh, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.NotEqual(t, old.Certificate[0], fresh.Certificate[0])
}

func TestLoadOrCreateReplacesWrongHosts(t *testing.T) {
	dir := t.TempDir()
	_, err := NewStore(dir, "localhost").LoadOrCreate()
	require.NoError(t, err)

	cert, err := NewStore(dir, "match.internal").LoadOrCreate()
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"match.internal"}, leaf.DNSNames)
}

func TestLoadOrCreateReplacesCorruptFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	certFile, keyFile := store.Files()
	require.NoError(t, os.WriteFile(certFile, []byte("garbage"), 0o600))
	require.NoError(t, os.WriteFile(keyFile, []byte("garbage"), 0o600))

	cert, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
}
