package sqldialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForDriver(t *testing.T) {
	d, err := ForDriver("postgres")
	require.NoError(t, err)
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.Equal(t, "title ILIKE $1", d.ILike("title", d.Placeholder(1)))
	assert.Equal(t, "CAST(ROUND(CAST(AVG(price) AS NUMERIC), 2) AS DOUBLE PRECISION)", d.Round2("AVG(price)"))

	d, err = ForDriver("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "?", d.Placeholder(3))
	assert.Equal(t, "title LIKE ?", d.ILike("title", "?"))
	assert.Equal(t, "ROUND(AVG(price), 2)", d.Round2("AVG(price)"))

	_, err = ForDriver("mysql")
	assert.Error(t, err)
}
