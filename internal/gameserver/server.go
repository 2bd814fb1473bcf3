package gameserver

import (
	"sync"
	"sync/atomic"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
	"github.com/kcenon/common-game-server/internal/gameloop"
)

// instanceState tracks a map instance's player membership.
type instanceState struct {
	id         uint32
	mapID      MapID
	maxPlayers uint32
	draining   bool
	playerIDs  map[PlayerID]struct{}
}

func (inst *instanceState) full() bool {
	return uint32(len(inst.playerIDs)) >= inst.maxPlayers
}

// Server is the game server shell: it owns a fixed-rate gameloop.Loop,
// a set of map instances, and the mapping from connected players to the
// entity/instance hosting them. It does not own ECS component storage;
// callers wire their own systems into the loop's tick callback.
type Server struct {
	cfg  Config
	loop *gameloop.Loop

	mu           sync.RWMutex
	instances    map[uint32]*instanceState
	nextInstance uint32
	sessions     map[PlayerID]PlayerSession

	playersJoined atomic.Uint64
	playersLeft   atomic.Uint64
}

// New constructs a Server from cfg, wrapping a gameloop.Loop at cfg.TickRate.
func New(cfg Config) *Server {
	if cfg.TickRate == 0 {
		cfg = DefaultConfig()
	}
	return &Server{
		cfg:       cfg,
		loop:      gameloop.New(cfg.TickRate),
		instances: make(map[uint32]*instanceState),
		sessions:  make(map[PlayerID]PlayerSession),
	}
}

// Config returns the server's configuration.
func (s *Server) Config() Config {
	return s.cfg
}

// SetTickCallback installs the per-tick simulation callback, invoked by the
// underlying gameloop.Loop.
func (s *Server) SetTickCallback(fn gameloop.TickFunc) {
	s.loop.SetTickCallback(fn)
}

// SetMetricsCallback installs the per-tick metrics callback.
func (s *Server) SetMetricsCallback(fn gameloop.MetricsFunc) {
	s.loop.SetMetricsCallback(fn)
}

// Start begins the fixed-rate simulation loop. Returns false if already
// running.
func (s *Server) Start() bool {
	return s.loop.Start()
}

// Stop halts the simulation loop and waits for it to exit.
func (s *Server) Stop() {
	s.loop.Stop()
}

// IsRunning reports whether the simulation loop is active.
func (s *Server) IsRunning() bool {
	return s.loop.IsRunning()
}

// Tick drives a single simulation tick manually, for tests and tools that
// don't want the dedicated-goroutine loop.
func (s *Server) Tick() gameloop.TickMetrics {
	return s.loop.Tick()
}

// CreateInstance allocates a new instance of mapID with room for maxPlayers
// concurrent players, and returns its id. Fails with KindInstanceFull if
// cfg.MaxInstances (the server-wide instance cap) would be exceeded; this
// is distinct from a single instance's own per-player capacity, checked in
// AddPlayer. maxPlayers of 0 is DefaultMaxPlayers, matching
// game_server.hpp's createInstance(mapId, maxPlayers = 100) default.
func (s *Server) CreateInstance(mapID MapID, maxPlayers uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint32(len(s.instances)) >= s.cfg.MaxInstances {
		return 0, svcerr.InstanceFull(0)
	}
	if maxPlayers == 0 {
		maxPlayers = DefaultMaxPlayers
	}

	id := s.nextInstance
	s.nextInstance++
	s.instances[id] = &instanceState{
		id:         id,
		mapID:      mapID,
		maxPlayers: maxPlayers,
		playerIDs:  make(map[PlayerID]struct{}),
	}
	return id, nil
}

// DestroyInstance removes an instance. Fails with KindInstanceNotFound if the
// instance doesn't exist, or KindInstanceNotEmpty if players remain.
func (s *Server) DestroyInstance(instanceID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return svcerr.InstanceNotFound(instanceID)
	}
	if len(inst.playerIDs) > 0 {
		return svcerr.InstanceNotEmpty(instanceID)
	}
	delete(s.instances, instanceID)
	return nil
}

// DrainInstance marks an instance as draining: AvailableInstances stops
// listing it and existing players stay until they leave. AddPlayer and
// TransferPlayer do not check the draining flag, so they still place
// players on a draining instance that has room.
func (s *Server) DrainInstance(instanceID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return svcerr.InstanceNotFound(instanceID)
	}
	inst.draining = true
	return nil
}

// AvailableInstances returns the ids of all non-draining, non-full
// instances belonging to mapID that can accept new players, in ascending
// id order, matching game_server.hpp's availableInstances(uint32_t mapId).
func (s *Server) AvailableInstances(mapID MapID) []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint32, 0, len(s.instances))
	for id, inst := range s.instances {
		if inst.mapID == mapID && !inst.draining && !inst.full() {
			ids = append(ids, id)
		}
	}
	sortUint32(ids)
	return ids
}

// AddPlayer registers a player session against an existing instance,
// draining or not. Fails with KindPlayerAlreadyInGame if the player already has a
// session, KindInstanceNotFound if instanceID doesn't exist, or
// KindInstanceFull if the instance is already at its maxPlayers capacity.
func (s *Server) AddPlayer(playerID PlayerID, entity EntityID, instanceID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[playerID]; exists {
		return svcerr.PlayerAlreadyInGame(uint64(playerID))
	}
	inst, ok := s.instances[instanceID]
	if !ok {
		return svcerr.InstanceNotFound(instanceID)
	}
	if inst.full() {
		return svcerr.InstanceFull(instanceID)
	}

	s.sessions[playerID] = PlayerSession{PlayerID: playerID, Entity: entity, InstanceID: instanceID}
	inst.playerIDs[playerID] = struct{}{}
	s.playersJoined.Add(1)
	return nil
}

// RemovePlayer tears down a player's session. Fails with KindPlayerNotFound
// if the player has no active session.
func (s *Server) RemovePlayer(playerID PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[playerID]
	if !ok {
		return svcerr.PlayerNotFound(uint64(playerID))
	}
	if inst, ok := s.instances[session.InstanceID]; ok {
		delete(inst.playerIDs, playerID)
	}
	delete(s.sessions, playerID)
	s.playersLeft.Add(1)
	return nil
}

// GetPlayerSession returns the current session for playerID.
func (s *Server) GetPlayerSession(playerID PlayerID) (PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[playerID]
	if !ok {
		return PlayerSession{}, svcerr.PlayerNotFound(uint64(playerID))
	}
	return session, nil
}

// TransferPlayer moves a player's session to a different instance, subject
// to the same preconditions as AddPlayer: the target instance must exist
// and must not be full.
func (s *Server) TransferPlayer(playerID PlayerID, targetInstanceID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[playerID]
	if !ok {
		return svcerr.PlayerNotFound(uint64(playerID))
	}
	target, ok := s.instances[targetInstanceID]
	if !ok {
		return svcerr.InstanceNotFound(targetInstanceID)
	}
	if target.full() {
		return svcerr.InstanceFull(targetInstanceID)
	}

	if current, ok := s.instances[session.InstanceID]; ok {
		delete(current.playerIDs, playerID)
	}
	target.playerIDs[playerID] = struct{}{}
	session.InstanceID = targetInstanceID
	s.sessions[playerID] = session
	return nil
}

// Stats returns a point-in-time snapshot of server counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active, draining uint32
	for _, inst := range s.instances {
		if inst.draining {
			draining++
		} else {
			active++
		}
	}

	metrics := s.loop.LastMetrics()
	return Stats{
		TotalTicks:            s.loop.TickCount(),
		LastUpdateTimeMs:       float64(metrics.UpdateTime.Microseconds()) / 1000.0,
		LastBudgetUtilization: metrics.BudgetUtilization,
		PlayerCount:           len(s.sessions),
		ActiveInstances:       active,
		DrainingInstances:     draining,
		PlayersJoined:         s.playersJoined.Load(),
		PlayersLeft:           s.playersLeft.Load(),
	}
}

func sortUint32(ids []uint32) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
