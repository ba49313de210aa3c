package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/sources/database"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "url unchanged without credentials",
			cfg:  config.DatabaseConfig{URL: "postgres://db/meta?sslmode=disable"},
			want: "postgres://db/meta?sslmode=disable",
		},
		{
			name: "jdbc prefix dropped",
			cfg:  config.DatabaseConfig{URL: "jdbc:postgresql://db:5432/meta"},
			want: "postgresql://db:5432/meta",
		},
		{
			name: "credentials injected",
			cfg:  config.DatabaseConfig{URL: "postgres://db/meta", User: "presto", Password: "p@ss"},
			want: "postgres://presto:p%40ss@db/meta",
		},
		{
			name: "url password kept when only user given",
			cfg:  config.DatabaseConfig{URL: "postgres://old:secret@db/meta", User: "presto"},
			want: "postgres://presto:secret@db/meta",
		},
		{
			name: "key value dsn",
			cfg:  config.DatabaseConfig{URL: "host=db dbname=meta", User: "presto", Password: "it's"},
			want: `host=db dbname=meta user=presto password='it\'s'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := database.DSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeProperties(t *testing.T) {
	props, err := database.DecodeProperties(`{"a":"1","b":2.5,"c":false}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2.5", "c": "false"}, props)

	_, err = database.DecodeProperties(`null`)
	assert.Error(t, err)
	_, err = database.DecodeProperties(`{"a":[1]}`)
	assert.Error(t, err)
}
