package gameserver

import (
	"testing"
	"time"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxInstances = 2
	return cfg
}

func TestNew_DefaultsConfig(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, uint32(20), s.Config().TickRate)
	assert.Equal(t, uint32(1000), s.Config().MaxInstances)
}

func TestServer_CreateDestroyInstance(t *testing.T) {
	s := New(testConfig())

	id, err := s.CreateInstance(1, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{id}, s.AvailableInstances(1))

	require.NoError(t, s.DestroyInstance(id))
	assert.Empty(t, s.AvailableInstances(1))
}

func TestServer_CreateInstance_RespectsMax(t *testing.T) {
	s := New(testConfig())

	_, err := s.CreateInstance(1, 0)
	require.NoError(t, err)
	_, err = s.CreateInstance(1, 0)
	require.NoError(t, err)

	_, err = s.CreateInstance(1, 0)
	require.Error(t, err)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceFull))
}

func TestServer_DestroyInstance_NotFound(t *testing.T) {
	s := New(testConfig())
	err := s.DestroyInstance(99)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceNotFound))
}

func TestServer_DestroyInstance_NotEmpty(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 0)
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer(1, 100, id))

	err = s.DestroyInstance(id)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceNotEmpty))
}

func TestServer_DrainInstance_ExcludedFromAvailable(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 0)
	require.NoError(t, err)

	require.NoError(t, s.DrainInstance(id))
	assert.Empty(t, s.AvailableInstances(1))
}

func TestServer_AddPlayer_Lifecycle(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 0)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(1, 100, id))

	session, err := s.GetPlayerSession(1)
	require.NoError(t, err)
	assert.Equal(t, EntityID(100), session.Entity)
	assert.Equal(t, id, session.InstanceID)

	stats := s.Stats()
	assert.Equal(t, 1, stats.PlayerCount)
	assert.Equal(t, uint64(1), stats.PlayersJoined)

	require.NoError(t, s.RemovePlayer(1))
	_, err = s.GetPlayerSession(1)
	assert.True(t, svcerr.IsKind(err, svcerr.KindPlayerNotFound))
	assert.Equal(t, uint64(1), s.Stats().PlayersLeft)
}

func TestServer_AddPlayer_AlreadyInGame(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 0)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(1, 100, id))
	err = s.AddPlayer(1, 200, id)
	assert.True(t, svcerr.IsKind(err, svcerr.KindPlayerAlreadyInGame))
}

func TestServer_AddPlayer_InstanceNotFound(t *testing.T) {
	s := New(testConfig())
	err := s.AddPlayer(1, 100, 42)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceNotFound))
}

func TestServer_RemovePlayer_NotFound(t *testing.T) {
	s := New(testConfig())
	err := s.RemovePlayer(1)
	assert.True(t, svcerr.IsKind(err, svcerr.KindPlayerNotFound))
}

func TestServer_TransferPlayer(t *testing.T) {
	s := New(testConfig())
	a, err := s.CreateInstance(1, 0)
	require.NoError(t, err)
	b, err := s.CreateInstance(1, 0)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(1, 100, a))
	require.NoError(t, s.TransferPlayer(1, b))

	session, err := s.GetPlayerSession(1)
	require.NoError(t, err)
	assert.Equal(t, b, session.InstanceID)

	require.NoError(t, s.DestroyInstance(a))
	err = s.DestroyInstance(b)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceNotEmpty))
}

func TestServer_TransferPlayer_TargetNotFound(t *testing.T) {
	s := New(testConfig())
	a, err := s.CreateInstance(1, 0)
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer(1, 100, a))

	err = s.TransferPlayer(1, 99)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceNotFound))
}

func TestServer_ManualTick(t *testing.T) {
	s := New(testConfig())
	var ticks int
	s.SetTickCallback(func(dt float64) {
		ticks++
		assert.Greater(t, dt, 0.0)
	})

	metrics := s.Tick()
	assert.Equal(t, 1, ticks)
	assert.Equal(t, uint64(0), metrics.TickNumber)
	assert.Equal(t, uint64(1), s.Stats().TotalTicks)
}

func TestServer_CreateInstance_DefaultMaxPlayers(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 0)
	require.NoError(t, err)

	for i := PlayerID(1); i <= DefaultMaxPlayers; i++ {
		require.NoError(t, s.AddPlayer(i, EntityID(i), id))
	}
	err = s.AddPlayer(PlayerID(DefaultMaxPlayers+1), EntityID(DefaultMaxPlayers+1), id)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceFull))
}

func TestServer_AddPlayer_InstanceFull(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 1)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(1, 100, id))
	err = s.AddPlayer(2, 200, id)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceFull))
}

func TestServer_AvailableInstances_ScopedToMapID(t *testing.T) {
	s := New(testConfig())
	mapA, err := s.CreateInstance(1, 10)
	require.NoError(t, err)
	_, err = s.CreateInstance(2, 10)
	require.NoError(t, err)

	assert.Equal(t, []uint32{mapA}, s.AvailableInstances(1))
}

func TestServer_AvailableInstances_ExcludesFullInstances(t *testing.T) {
	s := New(testConfig())
	id, err := s.CreateInstance(1, 1)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(1, 100, id))
	assert.Empty(t, s.AvailableInstances(1))
}

func TestServer_TransferPlayer_TargetFull(t *testing.T) {
	s := New(testConfig())
	a, err := s.CreateInstance(1, 10)
	require.NoError(t, err)
	b, err := s.CreateInstance(1, 1)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(1, 100, a))
	require.NoError(t, s.AddPlayer(2, 200, b))

	err = s.TransferPlayer(1, b)
	assert.True(t, svcerr.IsKind(err, svcerr.KindInstanceFull))
}

func TestServer_StartStop(t *testing.T) {
	s := New(testConfig())
	require.True(t, s.Start())
	assert.True(t, s.IsRunning())

	time.Sleep(10 * time.Millisecond)
	s.Stop()
	assert.False(t, s.IsRunning())
}
