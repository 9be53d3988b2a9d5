package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Ping(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m pgxmock.PgxPoolIface)
		wantErr string
	}{
		{
			name: "migrated",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
			},
		},
		{
			name: "empty schema",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
			},
			wantErr: "not migrated",
		},
		{
			name: "unreachable",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: "connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			hc := NewHealthCheck(mock)
			err = hc.Ping(context.Background())

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.Equal(t, "postgresql", hc.Name())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
