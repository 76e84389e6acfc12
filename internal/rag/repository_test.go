package rag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDimProbeErr(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		ignored bool
	}{
		{"empty table", pgx.ErrNoRows, true},
		{"wrapped empty table", fmt.Errorf("scan: %w", pgx.ErrNoRows), true},
		{"missing table", &pgconn.PgError{Code: "42P01"}, true},
		{"connection failure", errors.New("dial tcp: connection refused"), false},
		{"other pg error", &pgconn.PgError{Code: "57P01"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDimProbeErr(tt.err)
			if tt.ignored {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.ErrorIs(t, got, ErrStoreUnavailable)
		})
	}
}
