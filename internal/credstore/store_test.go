package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"telegram-history-exporter/internal/domain"
)

func fixedDeviceID(id string) func() (string, error) {
	return func() (string, error) { return id, nil }
}

func testCredentials() domain.Credentials {
	return domain.Credentials{APIID: 12345, APIHash: "0123456789abcdef0123456789abcdef", Phone: "+79990001122"}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.tge")
	store := New(path, WithDeviceID(fixedDeviceID("machine-a")))

	want := testCredentials()
	require.NoError(t, store.Save(want))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	// Файл на диске не содержит открытого текста.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), want.APIHash)
	require.NotContains(t, string(raw), want.Phone)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "absent.tge"), WithDeviceID(fixedDeviceID("machine-a")))

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreLoadForeignDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.tge")
	require.NoError(t, New(path, WithDeviceID(fixedDeviceID("machine-a"))).Save(testCredentials()))

	// Тот же файл на другом устройстве не расшифровывается и трактуется
	// как отсутствующий, без ошибки.
	_, ok, err := New(path, WithDeviceID(fixedDeviceID("machine-b"))).Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"обрезанный файл", []byte{0x01, 0x02}},
		{"мусор полной длины", []byte("definitely not an encrypted credentials file")},
		{"пустой файл", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.tge")
			require.NoError(t, os.WriteFile(path, tt.data, 0o600))

			_, ok, err := New(path, WithDeviceID(fixedDeviceID("machine-a"))).Load()
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.tge")
	store := New(path, WithDeviceID(fixedDeviceID("machine-a")))

	first := testCredentials()
	require.NoError(t, store.Save(first))

	second := first
	second.Phone = "+15550001111"
	require.NoError(t, store.Save(second))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, got)
}

func TestStoreDeviceIDError(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "config.tge"), WithDeviceID(func() (string, error) {
		return "", fmt.Errorf("no machine id")
	}))

	require.Error(t, store.Save(testCredentials()))
}
