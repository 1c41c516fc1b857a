package airflow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/toolerr"
)

func testFactory(t *testing.T) *Factory {
	t.Helper()
	reg := registry.NewForTest("prod",
		basicInstance("http://airflow.example.com"),
		bearerInstance("http://staging.example.com"),
	)
	return NewFactory(reg, Config{Timeout: 5 * time.Second})
}

func TestFactoryCachesClients(t *testing.T) {
	f := testFactory(t)

	first, err := f.Client("prod")
	require.NoError(t, err)
	second, err := f.Client("prod")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := f.Client("staging")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestFactoryUnknownKey(t *testing.T) {
	f := testFactory(t)

	_, err := f.Client("nope")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeNotFound, toolerr.CodeOf(err))
}

func TestFactoryConcurrentFirstUse(t *testing.T) {
	f := testFactory(t)

	const n = 32
	clients := make([]*Client, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.Client("prod")
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, clients[0], clients[i])
	}
}

func TestFactoryReset(t *testing.T) {
	f := testFactory(t)

	first, err := f.Client("prod")
	require.NoError(t, err)

	f.Reset()

	second, err := f.Client("prod")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestFactoryDefaultTimeout(t *testing.T) {
	reg := registry.NewForTest("prod", basicInstance("http://airflow.example.com"))
	f := NewFactory(reg, Config{})
	assert.Equal(t, DefaultTimeout, f.cfg.Timeout)
}

func TestCapabilitiesFor(t *testing.T) {
	caps := capabilitiesFor("v1", false)
	assert.True(t, caps.LogFullContent)
	assert.False(t, caps.ExtendedClearParams)

	caps = capabilitiesFor("v2", true)
	assert.False(t, caps.LogFullContent)
	assert.True(t, caps.ExtendedClearParams)
}
