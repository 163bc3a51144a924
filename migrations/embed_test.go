package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesAreOrderedAndDeclareConstraints(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "0001_init.sql", names[0])

	body, err := files.ReadFile(names[0])
	require.NoError(t, err)
	schema := string(body)
	for _, want := range []string{
		"CONSTRAINT uq_room_basics UNIQUE (room_number, basic_id)",
		"CONSTRAINT uq_purchases_supplier_invoice UNIQUE (supplier, invoice_number)",
		"CHECK (stock >= 0)",
		"CHECK (priority BETWEEN 1 AND 5)",
		"CREATE TABLE IF NOT EXISTS audit_logs",
	} {
		require.True(t, strings.Contains(schema, want), want)
	}
}

// Services accept zero unit prices and zero purchase totals, so the schema must too.
func TestZeroAmountsAllowedBySchema(t *testing.T) {
	body, err := files.ReadFile("0001_init.sql")
	require.NoError(t, err)
	schema := string(body)
	for _, want := range []string{"CHECK (unit_price >= 0)", "CHECK (total_amount >= 0)"} {
		require.Contains(t, schema, want)
	}
	for _, banned := range []string{"unit_price > 0", "total_amount > 0"} {
		require.NotContains(t, schema, banned)
	}
}
