package sam

import "github.com/SunnyShi051223/OS-Design/memutils/metadata"

// EvictCallback is called after a victim process has been forcibly released to make room for
// requester's allocation
type EvictCallback func(
	allocator *Allocator,
	requester PID,
	victim PID,
	segments []Segment,
	userData interface{},
)

// ReleaseCallback is called after a process has voluntarily released its segments
type ReleaseCallback func(
	allocator *Allocator,
	pid PID,
	segments []Segment,
	userData interface{},
)

// RollbackCallback is called after a failed request has returned its partial allocation
type RollbackCallback func(
	allocator *Allocator,
	pid PID,
	segments []Segment,
	userData interface{},
)

// RelocateCallback is called after compaction has moved a segment from its previous address range
type RelocateCallback func(
	allocator *Allocator,
	segment Segment,
	from metadata.Region,
	userData interface{},
)

// CallbackOptions is an optional set of callbacks that will be executed by the allocator when memory
// is reclaimed or relocated. Callbacks run while the allocator's lock is held and must not call back
// into it.
type CallbackOptions struct {
	Evict    EvictCallback
	Release  ReleaseCallback
	Rollback RollbackCallback
	Relocate RelocateCallback
	UserData interface{}
}

type allocatorCallbacks struct {
	Callbacks *CallbackOptions
	Allocator *Allocator
}

func (c *allocatorCallbacks) Evict(requester PID, victim PID, segments []Segment) {
	if c.Callbacks != nil && c.Callbacks.Evict != nil {
		c.Callbacks.Evict(c.Allocator, requester, victim, segments, c.Callbacks.UserData)
	}
}

func (c *allocatorCallbacks) Release(pid PID, segments []Segment) {
	if c.Callbacks != nil && c.Callbacks.Release != nil {
		c.Callbacks.Release(c.Allocator, pid, segments, c.Callbacks.UserData)
	}
}

func (c *allocatorCallbacks) Rollback(pid PID, segments []Segment) {
	if c.Callbacks != nil && c.Callbacks.Rollback != nil {
		c.Callbacks.Rollback(c.Allocator, pid, segments, c.Callbacks.UserData)
	}
}

func (c *allocatorCallbacks) Relocate(segment Segment, from metadata.Region) {
	if c.Callbacks != nil && c.Callbacks.Relocate != nil {
		c.Callbacks.Relocate(c.Allocator, segment, from, c.Callbacks.UserData)
	}
}
