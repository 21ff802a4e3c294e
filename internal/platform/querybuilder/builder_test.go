package querybuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("slot_number").
		From("slot_reservations").
		Where(Eq("competition_id", "autumn-open-2026"), Expr("slot_number > ?", 10)).
		OrderBy("slot_number").
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "SELECT slot_number FROM slot_reservations WHERE competition_id = $1 AND slot_number > $2 ORDER BY slot_number", query)
	assert.Equal(t, []any{"autumn-open-2026", 10}, args)

	_, _, err = Select().From("teams").ToSQL()
	assert.Error(t, err)
}

func TestSelectBuilder_ForUpdate(t *testing.T) {
	query, args, err := Select("id", "slot_number").
		From("teams").
		Where(Eq("id", "team-1")).
		ForUpdate().
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, slot_number FROM teams WHERE id = $1 FOR UPDATE", query)
	assert.Equal(t, []any{"team-1"}, args)
}

func TestInsertBuilder_MultipleRows(t *testing.T) {
	query, args, err := InsertInto("slot_reservations").
		Columns("competition_id", "slot_number").
		Values("comp-1", 3).
		Values("comp-1", 7).
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO slot_reservations (competition_id, slot_number) VALUES ($1, $2), ($3, $4)", query)
	assert.Equal(t, []any{"comp-1", 3, "comp-1", 7}, args)

	_, _, err = InsertInto("slot_reservations").
		Columns("competition_id", "slot_number").
		Values("comp-1").
		ToSQL()
	assert.Error(t, err)
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("competitions").
		SetExpr("booked_slots", "booked_slots + ?", 2).
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", "comp-1"), Expr("booked_slots + ? <= total_slots", 2)).
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE competitions SET booked_slots = booked_slots + $1, updated_at = NOW() WHERE id = $2 AND booked_slots + $3 <= total_slots", query)
	assert.Equal(t, []any{2, "comp-1", 2}, args)
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("participants").
		Where(Eq("competition_id", "comp-1"), In("competitor_id", []any{"u1", "u2"})).
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "DELETE FROM participants WHERE competition_id = $1 AND competitor_id IN ($2, $3)", query)
	assert.Equal(t, []any{"comp-1", "u1", "u2"}, args)

	query, _, err = DeleteFrom("participants").Where(In("competitor_id", nil)).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM participants WHERE 1=0", query)

	_, _, err = DeleteFrom("participants").ToSQL()
	assert.Error(t, err)
}

func TestInsertModel(t *testing.T) {
	type row struct {
		ID        string    `db:"id"`
		Name      string    `db:"name,omitempty"`
		UpdatedAt time.Time `db:"updated_at"`
		internal  string
		Skipped   string `db:"-"`
	}
	at := time.Date(2026, 10, 24, 8, 0, 0, 0, time.UTC)

	query, args, err := InsertModel("competitors", row{ID: "angler-001", Name: "Dan Hollis", UpdatedAt: at, internal: "x"}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO competitors (id, name, updated_at) VALUES ($1, $2, $3)", query)
	assert.Equal(t, []any{"angler-001", "Dan Hollis", at}, args)

	query, _, err = InsertModel("competitors", &row{ID: "angler-001"}).
		OnConflictUpdate([]string{"id"}, "name", "updated_at").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO competitors (id, name, updated_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at", query)

	query, _, err = InsertModel("competitors", row{ID: "angler-001"}).OnConflictUpdate([]string{"id"}).ToSQL()
	require.NoError(t, err)
	assert.Contains(t, query, "ON CONFLICT (id) DO NOTHING")

	_, _, err = InsertModel("competitors", (*row)(nil)).ToSQL()
	assert.Error(t, err)
	_, _, err = InsertModel("competitors", "not a struct").ToSQL()
	assert.Error(t, err)
}
