package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" sl ")
	require.NoError(t, err)
	assert.Equal(t, RoleSeniorLead, role)
	assert.True(t, role.IsStaff())

	role, err = ParseRole("STUDENT")
	require.NoError(t, err)
	assert.False(t, role.IsStaff())
	assert.True(t, role.Valid())

	_, err = ParseRole("admin")
	assert.Error(t, err)
	assert.False(t, Role("admin").Valid())
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 9, Minute: 30}, c)

	c, err = ParseClock("17:05:00")
	require.NoError(t, err)
	assert.Equal(t, "17:05", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestClockOrderingAndDate(t *testing.T) {
	start := Clock{Hour: 10}
	end := Clock{Hour: 11, Minute: 30}
	assert.True(t, start.Before(end))
	assert.False(t, end.Before(start))
	assert.False(t, start.Before(start))

	day := time.Date(2024, time.March, 6, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 6, 11, 30, 0, 0, time.UTC), end.On(day, time.UTC))
}

func TestClockJSONAndScan(t *testing.T) {
	raw, err := json.Marshal(Clock{Hour: 8, Minute: 5})
	require.NoError(t, err)
	assert.Equal(t, `"08:05"`, string(raw))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"14:45"`), &c))
	assert.Equal(t, 14, c.Hour)
	assert.Error(t, json.Unmarshal([]byte(`"late"`), &c))

	require.NoError(t, c.Scan([]byte("13:00:00")))
	assert.Equal(t, Clock{Hour: 13}, c)
	assert.Error(t, c.Scan(42))

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "13:00", v)
}

func TestClaimsPrincipal(t *testing.T) {
	claims := &Claims{Kind: KindStaff, Role: RoleCourseLead, Name: "Casey"}
	claims.Subject = "001234567"

	p := claims.Principal()
	assert.Equal(t, "001234567", p.ID)
	assert.True(t, p.IsStaff())

	var nilClaims *Claims
	assert.Nil(t, nilClaims.Principal())

	student := &Principal{Kind: KindStudent, Role: RoleStudent}
	assert.False(t, student.IsStaff())
}
