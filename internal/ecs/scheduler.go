package ecs

import (
	"fmt"
	"sync"
)

// System is one unit of per-tick simulation logic. AccessInfo declares the
// component types it touches, which the Scheduler uses to decide whether
// it can run alongside other systems in the same parallel batch.
type System interface {
	Execute(dt float32)
	Name() string
	AccessInfo() AccessInfo
}

// ParallelExecutor runs a batch of independent tasks to completion, in
// whatever concurrency style the caller prefers (goroutines, a worker
// pool, or — in tests — a trivial sequential loop).
type ParallelExecutor func(tasks []func())

// Batch is a set of systems the Scheduler has proven can run concurrently:
// no two systems in a batch have conflicting component access, and none
// depends on another in the same batch.
type Batch struct {
	Systems []System
}

type edgeKey struct{ from, to int }

// Scheduler performs access-descriptor conflict analysis over registered
// systems and groups them into ordered, internally-parallel-safe batches.
// Conflicting systems, explicit dependencies, and sync points all push a
// system into a later batch than its predecessor.
type Scheduler struct {
	mu sync.Mutex

	systems    []System
	explicit   map[int][]int // successor index -> predecessor indices
	syncPoints map[int]bool

	parallelEnabled bool
	executor        ParallelExecutor

	built   bool
	batches []Batch
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		explicit:   make(map[int][]int),
		syncPoints: make(map[int]bool),
	}
}

// Register adds sys to the scheduler and returns it unchanged, so callers
// can keep a typed reference for later use in AddDependency/AddSyncPoint.
func (s *Scheduler) Register(sys System) System {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, sys)
	s.built = false
	return sys
}

// AddDependency requires after to run in a strictly later batch than
// before, regardless of whether their access descriptors conflict.
func (s *Scheduler) AddDependency(before, after System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bi, ai := s.indexOf(before), s.indexOf(after)
	if bi < 0 || ai < 0 {
		return
	}
	s.explicit[ai] = append(s.explicit[ai], bi)
	s.built = false
}

// AddSyncPoint marks sys as a full barrier: every system registered after
// it is forced into a later batch, even without a declared conflict.
func (s *Scheduler) AddSyncPoint(sys System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(sys); i >= 0 {
		s.syncPoints[i] = true
	}
	s.built = false
}

// EnableParallelExecution toggles whether Execute dispatches batches
// through the configured ParallelExecutor.
func (s *Scheduler) EnableParallelExecution(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parallelEnabled = enabled
}

// SetParallelExecutor sets the function Execute uses to run a batch's
// tasks concurrently. Without one, batches always run sequentially even
// when parallel execution is enabled.
func (s *Scheduler) SetParallelExecutor(executor ParallelExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

func (s *Scheduler) indexOf(sys System) int {
	for i, x := range s.systems {
		if x == sys {
			return i
		}
	}
	return -1
}

// Build computes parallel batches via topological layering: conflicting
// pairs, explicit dependencies, and sync points all contribute ordering
// edges; a system's batch level is one past the latest of its
// predecessors. Returns false if the dependency graph contains a cycle.
func (s *Scheduler) Build() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.systems)
	successors := make([][]int, n)
	indeg := make([]int, n)
	seen := make(map[edgeKey]bool)

	addEdge := func(from, to int) {
		k := edgeKey{from, to}
		if seen[k] {
			return
		}
		seen[k] = true
		successors[from] = append(successors[from], to)
		indeg[to]++
	}

	for after, befores := range s.explicit {
		for _, before := range befores {
			addEdge(before, after)
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			conflict := s.systems[i].AccessInfo().ConflictsWith(s.systems[j].AccessInfo())
			if conflict || s.syncPoints[i] {
				addEdge(i, j)
			}
		}
	}

	level := make([]int, n)
	indegRemaining := append([]int(nil), indeg...)
	queue := make([]int, 0, n)
	for i, d := range indegRemaining {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	processed := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		processed++

		for _, v := range successors[u] {
			if level[v] < level[u]+1 {
				level[v] = level[u] + 1
			}
			indegRemaining[v]--
			if indegRemaining[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if processed != n {
		return false // cycle in the dependency graph
	}

	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}

	batches := make([]Batch, maxLevel+1)
	for i, l := range level {
		batches[l].Systems = append(batches[l].Systems, s.systems[i])
	}

	s.batches = batches
	s.built = true
	return true
}

// GetParallelBatches returns the batches computed by the last Build call.
// stage is currently ignored (the scheduler has a single implicit update
// stage); it is accepted for API symmetry with the original multi-stage
// design.
func (s *Scheduler) GetParallelBatches(stage string) []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Execute runs every batch in order, dispatching each batch's systems
// through the configured ParallelExecutor when parallel execution is
// enabled and an executor is set; otherwise it runs systems sequentially.
func (s *Scheduler) Execute(dt float32) error {
	s.mu.Lock()
	if !s.built {
		s.mu.Unlock()
		return fmt.Errorf("ecs: scheduler not built")
	}
	batches := s.batches
	parallelEnabled := s.parallelEnabled
	executor := s.executor
	s.mu.Unlock()

	for _, batch := range batches {
		if parallelEnabled && executor != nil && len(batch.Systems) > 1 {
			tasks := make([]func(), len(batch.Systems))
			for i, sys := range batch.Systems {
				sys := sys
				tasks[i] = func() { sys.Execute(dt) }
			}
			executor(tasks)
			continue
		}
		for _, sys := range batch.Systems {
			sys.Execute(dt)
		}
	}
	return nil
}
