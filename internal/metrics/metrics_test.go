package metrics_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/powledger/internal/metrics"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.BlockAppended(2)
		m.BlockRejected("broken_link")
		m.SetHeight(3)
		m.Mined(10, time.Millisecond)
	})
}

func TestMetrics_Record(t *testing.T) {
	m := metrics.New()
	m.BlockAppended(2)
	m.BlockAppended(3)
	m.BlockRejected("broken_link")
	m.Mined(100, 5*time.Millisecond)

	count, err := testutil.GatherAndCount(m.Registry(),
		"powledger_blocks_appended_total",
		"powledger_blocks_rejected_total",
		"powledger_chain_height",
		"powledger_hash_attempts_total",
		"powledger_mine_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[f.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[f.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["powledger_blocks_appended_total"])
	assert.Equal(t, 1.0, values["powledger_blocks_rejected_total"])
	assert.Equal(t, 3.0, values["powledger_chain_height"])
	assert.Equal(t, 100.0, values["powledger_hash_attempts_total"])
}

func TestServe(t *testing.T) {
	t.Run("StartServer", func(t *testing.T) {
		m := metrics.New()
		m.BlockAppended(7)

		server, err := metrics.Serve(m, "127.0.0.1:0")
		require.NoError(t, err)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, server.Shutdown(ctx))
		}()
		assert.NotEmpty(t, server.Addr)
	})

	t.Run("Scrape", func(t *testing.T) {
		m := metrics.New()
		m.BlockAppended(7)

		server, err := metrics.Serve(m, "127.0.0.1:0")
		require.NoError(t, err)
		defer server.Close()

		var resp *http.Response
		require.Eventually(t, func() bool {
			resp, err = http.Get("http://" + server.Addr + "/metrics")
			return err == nil
		}, 2*time.Second, 20*time.Millisecond)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "powledger_chain_height 7")
	})

	t.Run("WhenInvalidAddress", func(t *testing.T) {
		_, err := metrics.Serve(metrics.New(), "invalid-address😆")
		require.Error(t, err)
	})

	t.Run("WhenNil", func(t *testing.T) {
		_, err := metrics.Serve(nil, "127.0.0.1:0")
		require.Error(t, err)
	})
}
