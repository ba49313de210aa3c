package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/errors"
)

// newTestApp returns an app reading catalogs from dir, plus its output.
func newTestApp(t *testing.T, dir string, extra string) (*App, *bytes.Buffer) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "catalogd.properties")
	content := "catalog.config-dir=" + dir + "\n" + extra
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	var out bytes.Buffer
	logger := zerolog.Nop()
	app, err := New("test", "abc123", "today", "go test",
		WithConfig(&Config{ConfigFile: cfgPath, Port: 0, Host: "127.0.0.1", LogFormat: "json", LogOutput: "discard"}),
		WithLogger(&logger),
		WithOutput(&out),
	)
	require.NoError(t, err)
	return app, &out
}

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".properties"), []byte(content), 0o644))
}

func TestListJSON(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "hive", "connector.name=hive\nhive.metastore.uri=thrift://meta:9083\n")
	writeCatalog(t, dir, "pg", "connector.name=postgresql\nconnection-password=secret\n")
	writeCatalog(t, dir, "off", "connector.name=tpch\n")

	app, out := newTestApp(t, dir, "catalog.disabled-catalogs=off\n")
	require.NoError(t, app.Execute(context.Background(), []string{"list", "-o", "json"}))

	var got []struct {
		Name      string `json:"name"`
		Connector string `json:"connector"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "hive", got[0].Name)
	assert.Equal(t, "postgresql", got[1].Connector)
	assert.NotContains(t, out.String(), "secret")
}

func TestListAllIncludesDisabled(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "off", "connector.name=tpch\n")

	app, out := newTestApp(t, dir, "catalog.disabled-catalogs=off\n")
	require.NoError(t, app.Execute(context.Background(), []string{"list", "--all", "-o", "yaml"}))
	assert.Contains(t, out.String(), "name: off")
}

func TestListRejectsUnknownFormat(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir(), "")
	err := app.Execute(context.Background(), []string{"list", "-o", "xml"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "hive", "connector.name=hive\n")

	app, out := newTestApp(t, dir, "")
	require.NoError(t, app.Execute(context.Background(), []string{"validate", "-o", "table"}))
	assert.Contains(t, out.String(), "FILE source: 1 catalogs, 0 disabled, valid")
}

func TestValidateMalformedDefinition(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "broken", "hive.metastore.uri=thrift://meta:9083\n")

	app, _ := newTestApp(t, dir, "")
	err := app.Execute(context.Background(), []string{"validate"})
	assert.True(t, errors.IsMalformedRecord(err), "got %v", err)
}

func TestValidateInvalidConfig(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir(), "catalog.detect.time.interval=0\n")
	err := app.Execute(context.Background(), []string{"validate"})
	assert.True(t, errors.IsValidationError(err), "got %v", err)
}

func TestBuildReportDuplicates(t *testing.T) {
	set := catalogsSet(t)
	report := buildReport("DATABASE", set, func(name string) bool { return name == "b" })
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"a"}, report.Duplicates)
	assert.Equal(t, []string{"b"}, report.Disabled)
	assert.Equal(t, 3, report.Catalogs)
}

func TestServeFatalInitialLoad(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "broken", "connection-url=jdbc:postgresql://db/app\n")
	app, _ := newTestApp(t, dir, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := app.Execute(ctx, []string{"serve", "--port", "0", "--metrics=false"})
	require.Error(t, err)
	assert.True(t, errors.IsFatalLoad(err), "got %v", err)
}

func TestVersion(t *testing.T) {
	app, out := newTestApp(t, t.TempDir(), "")
	require.NoError(t, app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "catalogd version test")
	assert.Contains(t, out.String(), "commit: abc123")
}

func TestManPage(t *testing.T) {
	app, out := newTestApp(t, t.TempDir(), "")
	require.NoError(t, app.Execute(context.Background(), []string{"man"}))
	assert.Contains(t, out.String(), "CATALOGD")
}

func catalogsSet(t *testing.T) catalogs.Set {
	t.Helper()
	return catalogs.NewSet(
		catalogs.MustRecord("a", "tpch", map[string]string{"v": "1"}),
		catalogs.MustRecord("a", "tpch", map[string]string{"v": "2"}),
		catalogs.MustRecord("b", "tpch", nil),
	)
}
