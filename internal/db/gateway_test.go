package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/facturo/backend/internal/errors"
	"github.com/facturo/backend/internal/uuid"
)

func setupGateway(t *testing.T) *Gateway {
	t.Helper()

	database, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec("CREATE TABLE klant (id TEXT PRIMARY KEY, naam TEXT, email TEXT)")
	require.NoError(t, err)

	return NewGateway(database)
}

func TestInsertGeneratesID(t *testing.T) {
	gw := setupGateway(t)

	id, err := gw.Insert("klant", map[string]interface{}{
		"naam":  "Jansen",
		"email": "jansen@example.com",
	})
	require.NoError(t, err)
	require.True(t, uuid.IsValid(id))

	row, err := gw.QueryOne("SELECT * FROM klant WHERE id = ?", []interface{}{id})
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "Jansen", row["naam"])
}

func TestInsertKeepsCallerID(t *testing.T) {
	gw := setupGateway(t)

	id, err := gw.Insert("klant", map[string]interface{}{
		"id":   "k-42",
		"naam": "Pietersen",
	})
	require.NoError(t, err)
	require.Equal(t, "k-42", id)
}

func TestUpdateAndDelete(t *testing.T) {
	gw := setupGateway(t)

	id, err := gw.Insert("klant", map[string]interface{}{"naam": "Oud"})
	require.NoError(t, err)

	err = gw.Update("klant", id, map[string]interface{}{"naam": "Nieuw"})
	require.NoError(t, err)

	row, err := gw.QueryOne("SELECT naam FROM klant WHERE id = ?", []interface{}{id})
	require.NoError(t, err)
	require.Equal(t, "Nieuw", row["naam"])

	err = gw.Delete("klant", id)
	require.NoError(t, err)

	row, err = gw.QueryOne("SELECT naam FROM klant WHERE id = ?", []interface{}{id})
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestQueryReturnsColumnMaps(t *testing.T) {
	gw := setupGateway(t)

	_, err := gw.Insert("klant", map[string]interface{}{"id": "a", "naam": "Eerste"})
	require.NoError(t, err)
	_, err = gw.Insert("klant", map[string]interface{}{"id": "b", "naam": "Tweede"})
	require.NoError(t, err)

	rows, err := gw.Query("SELECT id, naam FROM klant ORDER BY id", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0]["id"])
	require.Equal(t, "Eerste", rows[0]["naam"])
	require.Equal(t, "Tweede", rows[1]["naam"])
}

func TestExecReportsAffectedRows(t *testing.T) {
	gw := setupGateway(t)

	_, err := gw.Insert("klant", map[string]interface{}{"id": "a", "naam": "x"})
	require.NoError(t, err)
	_, err = gw.Insert("klant", map[string]interface{}{"id": "b", "naam": "x"})
	require.NoError(t, err)

	affected, err := gw.Exec("UPDATE klant SET naam = ? WHERE naam = ?", []interface{}{"y", "x"})
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)
}

func TestRejectsInvalidIdentifiers(t *testing.T) {
	gw := setupGateway(t)

	badTables := []string{
		"klant; DROP TABLE klant",
		"klant--",
		`klant"`,
		"",
		"1klant",
	}
	for _, table := range badTables {
		_, err := gw.Insert(table, map[string]interface{}{"naam": "x"})
		require.Error(t, err, "table %q", table)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		require.Equal(t, apperrors.ErrBadIdent, appErr.Code)
	}

	// Column names go through the same allow-list.
	_, err := gw.Insert("klant", map[string]interface{}{"naam = 'x' WHERE 1=1; --": "y"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrBadIdent, appErr.Code)
}
