package clickhouse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cfg := *defaultConfig()
	cfg.Host = "ch"
	cfg.Password = "secret"
	cfg.AsyncInsert = true
	cfg.WaitForAsync = true

	dsn := buildDSN(cfg)
	assert.True(t, strings.HasPrefix(dsn, "clickhouse://default:secret@ch:9000/variantmap?dial_timeout=5s"), dsn)
	assert.Contains(t, dsn, "&read_timeout=30s")
	assert.Contains(t, dsn, "&async_insert=1&wait_for_async_insert=1")
}

func TestBuildDSNHTTPWithoutParams(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", User: "u", UseHTTP: true})
	assert.Equal(t, "clickhouse+http://u:@h:8123/d", dsn)

	dsn = buildDSN(ClientConfig{Host: "h", Port: 1, Database: "d", MaxExecTime: 90 * time.Second})
	assert.True(t, strings.HasSuffix(dsn, "?max_execution_time=90"), dsn)
}

func TestSchemaQualifiesTables(t *testing.T) {
	stmts := Schema("vm")
	assert.Len(t, stmts, 4)
	for _, s := range stmts[1:] {
		assert.Contains(t, s, "vm.")
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.Error(t, err)
}
