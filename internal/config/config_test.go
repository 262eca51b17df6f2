package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: barbershop
database:
  path: data/test.db
barbers:
  - Dany
  - Marat
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "data/test.db", cfg.Database.Path)
	assert.Equal(t, []string{"Dany", "Marat"}, cfg.Barbers)

	// Unset fields fall back to defaults.
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 10, cfg.Push.DeliveryTimeout)
	assert.Equal(t, 128, cfg.Push.QueueSize)
	assert.Equal(t, "mailto:admin@localhost", cfg.Push.Subject)
	assert.Equal(t, 1800, cfg.Redis.CatalogCacheTTL)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/env.db")

	cfg, err := Load(writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
barbers:
  - Dany
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			"missing database path",
			`
barbers:
  - Dany
`,
			"database path",
		},
		{
			"no barbers",
			`
database:
  path: data/test.db
`,
			"barber",
		},
		{
			"duplicate barber",
			`
database:
  path: data/test.db
barbers:
  - Dany
  - Dany
`,
			"duplicate barber",
		},
		{
			"half a vapid pair",
			`
database:
  path: data/test.db
barbers:
  - Dany
push:
  vapid_public_key: only-public
`,
			"vapid",
		},
		{
			"api key without user id",
			`
database:
  path: data/test.db
barbers:
  - Dany
api:
  auth:
    api_keys:
      - key: some-key
        role: admin
`,
			"user_id",
		},
		{
			"bad role",
			`
database:
  path: data/test.db
barbers:
  - Dany
api:
  auth:
    api_keys:
      - key: some-key
        user_id: u1
        role: superuser
`,
			"role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
