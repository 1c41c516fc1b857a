package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"airflow-mcp/internal/toolerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instances.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
prod:
  host: https://airflow.prod.example.com
  api_version: v1
  verify_ssl: true
  auth:
    type: basic
    username: svc-mcp
    password: ${AIRFLOW_PROD_PASSWORD}
staging:
  host: https://airflow.staging.example.com
  verify_ssl: false
  auth:
    type: bearer
    token: ${AIRFLOW_STAGING_TOKEN}
`

func TestLoadSubstitutesEnvironmentValues(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "s3cret")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "tok-123")

	reg, err := Load(writeRegistryFile(t, validYAML), "prod")
	require.NoError(t, err)

	prod, err := reg.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", prod.Auth.Password)
	assert.NotContains(t, prod.Auth.Password, "${")
	assert.True(t, prod.VerifySSL)
	assert.Equal(t, "v1", prod.APIVersion)

	staging, err := reg.Get("staging")
	require.NoError(t, err)
	assert.Equal(t, AuthTypeBearer, staging.Auth.Type)
	assert.Equal(t, "tok-123", staging.Auth.Token)
	assert.False(t, staging.VerifySSL)
}

func TestLoadFailsFastOnUnresolvedEnvVar(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "s3cret")
	os.Unsetenv("AIRFLOW_STAGING_TOKEN")

	_, err := Load(writeRegistryFile(t, validYAML), "")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeConfigError, toolerr.CodeOf(err))
	assert.Contains(t, err.Error(), "AIRFLOW_STAGING_TOKEN")
}

func TestLoadValidatesAuthShape(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "basic missing password",
			yaml: "a:\n  host: https://a.example.com\n  auth:\n    type: basic\n    username: u\n",
			want: "requires username and password",
		},
		{
			name: "bearer missing token",
			yaml: "a:\n  host: https://a.example.com\n  auth:\n    type: bearer\n",
			want: "requires a token",
		},
		{
			name: "unknown auth type",
			yaml: "a:\n  host: https://a.example.com\n  auth:\n    type: kerberos\n    token: x\n",
			want: "oneof",
		},
		{
			name: "bearer with basic fields",
			yaml: "a:\n  host: https://a.example.com\n  auth:\n    type: bearer\n    token: x\n    username: u\n",
			want: "does not accept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeRegistryFile(t, tt.yaml), "")
			require.Error(t, err)
			assert.Equal(t, toolerr.CodeConfigError, toolerr.CodeOf(err))
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestLoadRejectsMissingHost(t *testing.T) {
	_, err := Load(writeRegistryFile(t, "a:\n  auth:\n    type: bearer\n    token: x\n"), "")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeConfigError, toolerr.CodeOf(err))
}

func TestLoadRejectsNonURLHost(t *testing.T) {
	_, err := Load(writeRegistryFile(t, "a:\n  host: not a url\n  auth:\n    type: bearer\n    token: x\n"), "")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeConfigError, toolerr.CodeOf(err))
}

func TestLoadRejectsUnknownDefaultKey(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "x")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "y")

	_, err := Load(writeRegistryFile(t, validYAML), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Default instance 'nope' not found")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeConfigError, toolerr.CodeOf(err))
}

func TestLoadRejectsEmptyRegistry(t *testing.T) {
	_, err := Load(writeRegistryFile(t, "{}\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No instances configured")
}

func TestLoadRejectsBadInstanceKey(t *testing.T) {
	_, err := Load(writeRegistryFile(t, "'-bad':\n  host: https://a.example.com\n  auth:\n    type: bearer\n    token: x\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid instance key")
}

func TestGetUnknownKeyIsNotFound(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "x")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "y")

	reg, err := Load(writeRegistryFile(t, validYAML), "")
	require.NoError(t, err)

	_, err = reg.Get("missing")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeNotFound, toolerr.CodeOf(err))
}

func TestKeysAreSorted(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "x")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "y")

	reg, err := Load(writeRegistryFile(t, validYAML), "staging")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "staging"}, reg.Keys())
	assert.Equal(t, "staging", reg.DefaultKey())
}

func TestDescribeOmitsSecrets(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "topsecret")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "y")

	reg, err := Load(writeRegistryFile(t, validYAML), "")
	require.NoError(t, err)

	desc, err := reg.Describe("prod")
	require.NoError(t, err)
	assert.Equal(t, "basic", desc.AuthType)
	assert.Equal(t, "https://airflow.prod.example.com", desc.Host)
	assert.NotContains(t, fmt.Sprintf("%+v", desc), "topsecret")
}

func TestKeyForHostIsExactMatchOnly(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "x")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "y")

	reg, err := Load(writeRegistryFile(t, validYAML), "")
	require.NoError(t, err)

	key, ok := reg.KeyForHost("airflow.prod.example.com")
	assert.True(t, ok)
	assert.Equal(t, "prod", key)

	for _, host := range []string{
		"prod.example.com",                  // suffix
		"airflow.prod.example.com.evil.net", // prefix
		"AIRFLOW.PROD.EXAMPLE.COM",          // case variant
		"airflow",                           // fragment
		"airflow.prod.example.com:8080",     // port is not part of hostname
		"evil.com/airflow.prod.example.com", // path confusion
	} {
		_, ok := reg.KeyForHost(host)
		assert.False(t, ok, "host %q must not match", host)
	}
}

func TestInitIsIdempotentAndResettable(t *testing.T) {
	t.Setenv("AIRFLOW_PROD_PASSWORD", "x")
	t.Setenv("AIRFLOW_STAGING_TOKEN", "y")
	ResetForTest()
	t.Cleanup(ResetForTest)

	path := writeRegistryFile(t, validYAML)
	first, err := Init(path, "prod")
	require.NoError(t, err)

	// Second Init ignores its arguments and returns the cached registry.
	second, err := Init(filepath.Join(t.TempDir(), "other.yaml"), "")
	require.NoError(t, err)
	assert.Same(t, first, second)

	got, err := Global()
	require.NoError(t, err)
	assert.Same(t, first, got)

	ResetForTest()
	_, err = Global()
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeConfigError, toolerr.CodeOf(err))
}
