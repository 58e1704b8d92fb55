package custom

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDatetimeJSON(t *testing.T) {
	dt := NewDatetime(time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC))

	b, err := json.Marshal(dt)
	require.NoError(t, err)
	require.Equal(t, `"2024-03-09T12:30:00Z"`, string(b))

	var got Datetime
	require.NoError(t, json.Unmarshal(b, &got))
	require.True(t, dt.Time().Equal(got.Time()))
}

func TestDatetimeZeroIsNull(t *testing.T) {
	var dt Datetime
	require.False(t, dt.IsSet())

	b, err := json.Marshal(dt)
	require.NoError(t, err)
	require.Equal(t, "null", string(b))

	var got Datetime
	require.NoError(t, json.Unmarshal([]byte("null"), &got))
	require.False(t, got.IsSet())
}
