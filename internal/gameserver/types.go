// Package gameserver wraps the ECS system scheduler and the fixed-rate
// game loop into the simulation-side server shell: map instance
// management and player-session-to-entity mapping.
package gameserver

// PlayerID identifies a player account.
type PlayerID uint64

// MapID identifies the map definition a game instance was created from.
// Multiple instances may share the same MapID (e.g. several parties
// running the same dungeon concurrently).
type MapID uint32

// DefaultMaxPlayers is the instance capacity used when the original
// implementation's createInstance(mapId, maxPlayers = 100) default applies.
const DefaultMaxPlayers = 100

// EntityID identifies an in-world ECS entity. The full entity/component
// storage is out of scope for this module (see DESIGN.md); gameserver
// only needs an opaque, stable identifier to map a player session onto.
type EntityID uint64

// PlayerSession maps a connected player to their in-world entity and the
// map instance currently hosting them.
type PlayerSession struct {
	PlayerID   PlayerID
	Entity     EntityID
	InstanceID uint32
}

// Config configures the game server shell.
type Config struct {
	// TickRate is the simulation rate in ticks per second.
	TickRate uint32
	// MaxInstances bounds how many concurrent map instances can exist.
	MaxInstances uint32
	// SpatialCellSize is the world spatial-indexing cell size; carried
	// through for systems that need it, not interpreted here.
	SpatialCellSize float32
	// AITickInterval is the default AI tick interval in seconds.
	AITickInterval float32
}

// DefaultConfig returns the game server defaults (20Hz tick rate, 1000 max
// instances), matching GameServerConfig's original field defaults.
func DefaultConfig() Config {
	return Config{
		TickRate:        20,
		MaxInstances:    1000,
		SpatialCellSize: 32.0,
		AITickInterval:  0.1,
	}
}

// Stats is a runtime snapshot of game server counters.
type Stats struct {
	TotalTicks            uint64
	LastUpdateTimeMs      float64
	LastBudgetUtilization float64

	PlayerCount        int
	ActiveInstances    uint32
	DrainingInstances  uint32

	PlayersJoined uint64
	PlayersLeft   uint64
}
