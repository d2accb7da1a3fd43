package main

import (
	"testing"

	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	m, err := parseCommand("create 10 - 2")
	require.NoError(t, err)
	assert.Equal(t, wire.CreateLobby, m.Type)
	require.NotNil(t, m.KillLimit)
	assert.Equal(t, 10, *m.KillLimit)
	assert.Nil(t, m.TimeLimit)
	require.NotNil(t, m.WeaponIndex)
	assert.Equal(t, 2, *m.WeaponIndex)

	m, err = parseCommand("team blue")
	require.NoError(t, err)
	assert.Equal(t, wire.SetTeam, m.Type)
	assert.Equal(t, "blue", m.Team)

	m, err = parseCommand("death p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", m.KillerID)

	_, err = parseCommand("settings x")
	assert.Error(t, err)
	_, err = parseCommand("team")
	assert.Error(t, err)
	_, err = parseCommand("dance")
	assert.Error(t, err)
}
