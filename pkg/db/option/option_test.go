package option

import (
	"testing"

	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePageSize(0))
	assert.Equal(t, 10, NormalizePageSize(10))
	assert.Equal(t, MaxPageSize, NormalizePageSize(MaxPageSize+50))
}

func TestNormalizePage(t *testing.T) {
	page, err := NormalizePage("", 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Empty(t, page.PageToken)

	token, err := pagination.EncodeCursor(pagination.Cursor{ID: "1790000000000000001"})
	require.NoError(t, err)
	page, err = NormalizePage(" "+token+" ", 5)
	require.NoError(t, err)
	assert.Equal(t, token, page.PageToken)
	assert.Equal(t, 5, page.PageSize)
}

func TestCursorIDRejectsBadTokens(t *testing.T) {
	id, err := CursorID("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = CursorID("%%%garbage")
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)

	token, err := pagination.EncodeCursor(pagination.Cursor{ID: "not-a-number"})
	require.NoError(t, err)
	_, err = CursorID(token)
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)

	token, err = pagination.EncodeCursor(pagination.Cursor{ID: "1790000000000000001"})
	require.NoError(t, err)
	id, err = CursorID(token)
	require.NoError(t, err)
	assert.EqualValues(t, int64(1790000000000000001), id)
}
