package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFromSchema_EmptyRows(t *testing.T) {
	n, err := CopyFromSchema(context.TODO(), nil, "atlas", "counties", []string{"a"}, [][]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSchema_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, []string{"a", "b"}).WillReturnResult(5)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}, {4, "w"}, {5, "v"}}
	n, err := CopyFromSchema(context.Background(), mock, "atlas", "counties", []string{"a", "b"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromSchema_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, []string{"a"}).WillReturnError(fmt.Errorf("permission denied"))

	rows := [][]any{{1}}
	_, err = CopyFromSchema(context.Background(), mock, "atlas", "counties", []string{"a"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO atlas.counties")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyBatches_SplitsRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"geoid"}
	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, cols).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, cols).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, cols).WillReturnResult(1)

	rows := [][]any{{"01001"}, {"01003"}, {"01005"}, {"01007"}, {"01009"}}
	n, err := CopyBatches(context.Background(), mock, "atlas", "counties", cols, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyBatches_StopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"geoid"}
	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, cols).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"atlas", "counties"}, cols).WillReturnError(fmt.Errorf("disk full"))

	rows := [][]any{{"01001"}, {"01003"}, {"01005"}}
	n, err := CopyBatches(context.Background(), mock, "atlas", "counties", cols, rows, 2)
	require.Error(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, err.Error(), "batch 2-3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_EmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}
