// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dataproducts/registry/pkg/adapter/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `database:
  host: 127.0.0.1
  port: 5432
  name: registry_dev
  role: registry
  pass-file: /dev/null
gin:
  logger: true
  recovery: true
auth:
  enabled: false
cors:
  origins:
    - http://localhost:8000
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", c.Database.Host)
	assert.Equal(t, 5432, c.Database.Port)
	assert.True(t, c.Gin.Logger)
	assert.True(t, c.Gin.Recovery)
	assert.Equal(t, ":8080", c.Gin.Addr, "default listen address")
	assert.False(t, c.Auth.Enabled)
	assert.Equal(
		t, []string{"http://localhost:8000"}, c.CORS.Origins,
	)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://u:p@db:5432/reg")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	c, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "postgresql://u:p@db:5432/reg", c.Database.URL)
	assert.Equal(t, ":9090", c.Gin.Addr)
	assert.Equal(
		t,
		[]string{"https://a.example", "https://b.example"},
		c.CORS.Origins,
	)
}

func TestLoadRejectsIncompleteDatabase(t *testing.T) {
	_, err := config.Load(writeConfig(t, `database:
  host: 127.0.0.1
`))
	require.Error(t, err)
}

func TestLoadRejectsAuthWithoutTokenHash(t *testing.T) {
	_, err := config.Load(writeConfig(t, sampleYAML+`
`))
	require.NoError(t, err)

	_, err = config.Load(writeConfig(t, `database:
  url: postgresql://u:p@db:5432/reg
auth:
  enabled: true
`))
	require.Error(t, err)
}

func TestURLSkipsItemValidation(t *testing.T) {
	c, err := config.Load(writeConfig(t, `database:
  url: postgresql://u:p@db:5432/reg
`))
	require.NoError(t, err)
	assert.Equal(t, "postgresql://u:p@db:5432/reg", c.Database.URL)
}
