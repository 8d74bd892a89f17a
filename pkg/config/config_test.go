package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type validated struct {
	Port int `yaml:"port"`
}

func (v *validated) Validate() error {
	if v.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("NC_TEST_NAME", "reader")
	p := writeFile(t, t.TempDir(), "c.yaml", "name: ${NC_TEST_NAME}\nport: 9000\n")

	var s sample
	require.NoError(t, Load(p, &s))
	assert.Equal(t, "reader", s.Name)
	assert.Equal(t, 9000, s.Port)
}

func TestParse_WithLookup(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "PORT" {
			return "7000", true
		}
		return "", false
	}
	var s sample
	require.NoError(t, Parse([]byte("name: ${MISSING}\nport: $PORT\n"), &s, WithLookup(lookup)))
	assert.Equal(t, "", s.Name)
	assert.Equal(t, 7000, s.Port)
}

func TestLoad_WithDotenv(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "NC_DOTENV_NAME=from-dotenv\n")
	p := writeFile(t, dir, "c.yaml", "name: ${NC_DOTENV_NAME}\n")
	t.Cleanup(func() { os.Unsetenv("NC_DOTENV_NAME") })

	var s sample
	require.NoError(t, Load(p, &s, WithDotenv(env, filepath.Join(dir, "absent.env"))))
	assert.Equal(t, "from-dotenv", s.Name)
}

func TestLoad_Validates(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", "port: 0\n")
	var v validated
	err := Load(p, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port must be positive")
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &s))

	p := writeFile(t, t.TempDir(), "bad.yaml", "name: [unclosed\n")
	assert.Error(t, Load(p, &s))
}

func TestLoadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "default.yaml", "name: default\n")

	var s sample
	require.NoError(t, LoadWithDefaults(filepath.Join(dir, "missing.yaml"), def, &s))
	assert.Equal(t, "default", s.Name)

	assert.Error(t, LoadWithDefaults(filepath.Join(dir, "missing.yaml"), "", &s))
}
