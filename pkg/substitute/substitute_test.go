package substitute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/catalogd/pkg/substitute"
)

func TestExpand(t *testing.T) {
	lookup := substitute.Map(map[string]string{
		"DB_HOST":  "db.internal",
		"DB_PASS":  "s3cret",
		"app.name": "sales",
	})

	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "jdbc:mysql://${DB_HOST}:3306", want: "jdbc:mysql://db.internal:3306"},
		{in: "${ENV:DB_PASS}", want: "s3cret"},
		{in: "${DB_HOST}/${app.name}", want: "db.internal/sales"},
		{in: "${MISSING}", want: "${MISSING}"},
		{in: "${ENV:MISSING}", want: "${ENV:MISSING}"},
		{in: "${}", want: "${}"},
		{in: "$DB_HOST", want: "$DB_HOST"},
		{in: `{"password":"${DB_PASS}"}`, want: `{"password":"s3cret"}`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, substitute.Expand(tt.in, lookup))
		})
	}
}

func TestExpandNilLookup(t *testing.T) {
	assert.Equal(t, "${X}", substitute.Expand("${X}", nil))
}

func TestEnv(t *testing.T) {
	t.Setenv("CATALOGD_TEST_USER", "presto")
	fn := substitute.Env()
	assert.Equal(t, "user=presto", fn("user=${CATALOGD_TEST_USER}"))
	assert.Equal(t, "user=${CATALOGD_TEST_UNSET_VAR}", fn("user=${CATALOGD_TEST_UNSET_VAR}"))
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, "${X}", substitute.Identity("${X}"))
}
