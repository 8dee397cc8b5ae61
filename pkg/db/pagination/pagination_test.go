package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id string
	at time.Time
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 4, 1, 12, 30, 0, 123, time.UTC)
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: at.Format(time.RFC3339Nano)})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	parsed, err := cursor.Time()
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm90LWpzb24", "e30"} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidPageToken, token)
	}
}

func TestTrim(t *testing.T) {
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := []*row{{"1", at}, {"2", at}, {"3", at}}
	extract := func(r *row) Cursor { return Cursor{ID: r.id, CreatedAt: r.at.Format(time.RFC3339Nano)} }

	page, info := Trim(rows, 2, extract)
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)

	page, info = Trim(rows, 3, extract)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Size())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Size())
}
