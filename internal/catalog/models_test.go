package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayMask_RunsOn(t *testing.T) {
	weekdays := NewWeekdayMask(1, 2, 3, 4, 5)

	assert.True(t, weekdays.RunsOn(time.Monday))
	assert.True(t, weekdays.RunsOn(time.Friday))
	assert.False(t, weekdays.RunsOn(time.Saturday))
	assert.False(t, weekdays.RunsOn(time.Sunday))

	assert.False(t, NewWeekdayMask().RunsOn(time.Monday))
}

func TestWeekdayMask_IgnoresOutOfRangeDays(t *testing.T) {
	m := NewWeekdayMask(-1, 3, 7, 42)
	assert.Equal(t, []int{3}, m.Days())
}

func TestWeekdayMask_JSONRoundTrip(t *testing.T) {
	m := NewWeekdayMask(0, 5, 6)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, "[0,5,6]", string(data))

	var decoded WeekdayMask
	require.NoError(t, json.Unmarshal([]byte("[5,6,0]"), &decoded))
	assert.Equal(t, m, decoded)
}
