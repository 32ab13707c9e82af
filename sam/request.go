package sam

import (
	"context"

	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

type requestState uint32

const (
	requestStateAttempt requestState = iota
	requestStateCommit
	requestStateNeedEvict
	requestStateEvictOK
	requestStateEvictFail
	requestStateRollback
	requestStateSuccess
	requestStateFail
)

var requestStateMapping = map[requestState]string{
	requestStateAttempt:   "requestStateAttempt",
	requestStateCommit:    "requestStateCommit",
	requestStateNeedEvict: "requestStateNeedEvict",
	requestStateEvictOK:   "requestStateEvictOK",
	requestStateEvictFail: "requestStateEvictFail",
	requestStateRollback:  "requestStateRollback",
	requestStateSuccess:   "requestStateSuccess",
	requestStateFail:      "requestStateFail",
}

func (s requestState) String() string {
	str, ok := requestStateMapping[s]
	if !ok {
		return "unknown requestState"
	}

	return str
}

// requestContext tracks a single multi-segment request as it moves through the request states
type requestContext struct {
	pid      PID
	sizes    []int
	strategy metadata.AllocationStrategy

	// firstSequence is the sequence number of the first segment this request commits; everything
	// owned by pid at or after it belongs to this request
	firstSequence uint64
	budget        evictionBudget

	index   int
	pending metadata.AllocationRequest
	victim  PID
	failure error
}

// runRequest drives a validated request to requestStateSuccess or requestStateFail. The caller must
// hold the allocator mutex.
func (a *Allocator) runRequest(r *requestContext) error {
	state := requestStateAttempt

	for {
		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Request state",
			slog.Int("pid", int(r.pid)),
			slog.Int("segment", r.index),
			slog.String("state", state.String()),
		)

		switch state {
		case requestStateAttempt:
			if r.index >= len(r.sizes) {
				state = requestStateSuccess
				break
			}

			found, pending, err := a.ledger.CreateAllocationRequest(r.sizes[r.index], r.strategy)
			if err != nil {
				r.failure = err
				state = requestStateRollback
			} else if found {
				r.pending = pending
				state = requestStateCommit
			} else {
				state = requestStateNeedEvict
			}

		case requestStateCommit:
			err := a.ledger.Alloc(r.pending)
			if err != nil {
				r.failure = err
				state = requestStateRollback
				break
			}

			segment := a.segments.Add(r.pid, r.index, r.pending.Offset(), r.pending.Size)
			a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Committed segment",
				slog.Int("pid", int(segment.PID)),
				slog.Int("segment", segment.Index),
				slog.Int("start", segment.Start),
				slog.Int("size", segment.Size),
				slog.String("strategy", r.strategy.String()),
			)

			r.index++
			state = requestStateAttempt

		case requestStateNeedEvict:
			if a.createFlags&CreateDisableEviction != 0 {
				state = requestStateEvictFail
				break
			}

			victim, found := a.evictor.SelectVictim(r.pid)
			if !found || !r.budget.Take() {
				state = requestStateEvictFail
				break
			}

			r.victim = victim
			state = requestStateEvictOK

		case requestStateEvictOK:
			err := a.evict(r.pid, r.victim)
			if err != nil {
				r.failure = err
				state = requestStateRollback
				break
			}

			// Retry the same segment against the enlarged free space
			state = requestStateAttempt

		case requestStateEvictFail:
			state = requestStateRollback

		case requestStateRollback:
			a.rollback(r)
			state = requestStateFail

		case requestStateSuccess:
			return nil

		case requestStateFail:
			if r.failure != nil {
				return errors.Wrapf(r.failure, "process %d segment %d could not be allocated", r.pid, r.index)
			}

			return errors.Wrapf(memutils.ErrAllocationExhausted, "process %d segment %d needs %d addresses", r.pid, r.index, r.sizes[r.index])
		}
	}
}

// evict forcibly releases every segment owned by victim so that requester's allocation may proceed.
// Victims come from the segment table, so an empty release means the evictor and the table disagree.
func (a *Allocator) evict(requester PID, victim PID) error {
	segments := a.releaseSegments(victim)
	if len(segments) == 0 {
		return errors.Wrapf(memutils.ErrNoSuchProcess, "eviction victim %d", victim)
	}

	freed := 0
	for _, segment := range segments {
		freed += segment.Size
	}

	a.logger.LogAttrs(context.Background(), slog.LevelWarn, "Evicted process to make room",
		slog.Int("requester", int(requester)),
		slog.Int("victim", int(victim)),
		slog.Int("segments", len(segments)),
		slog.Int("freed", freed),
	)
	a.callbacks.Evict(requester, victim, segments)

	return nil
}

// rollback returns every segment committed by the request to the free region ledger. Segments owned
// by the same process from earlier requests are untouched.
func (a *Allocator) rollback(r *requestContext) {
	segments := a.segments.RemoveFrom(r.pid, r.firstSequence)
	a.returnSegments(segments)

	if len(segments) == 0 {
		return
	}

	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "Rolled back partial allocation",
		slog.Int("pid", int(r.pid)),
		slog.Int("segments", len(segments)),
	)
	a.callbacks.Rollback(r.pid, segments)
}

// releaseSegments removes every segment owned by pid and returns each to the free region ledger
func (a *Allocator) releaseSegments(pid PID) []Segment {
	segments := a.segments.RemoveAll(pid)
	a.returnSegments(segments)
	return segments
}

func (a *Allocator) returnSegments(segments []Segment) {
	for _, segment := range segments {
		err := a.ledger.Insert(segment.Region())
		if err != nil {
			// A segment can only collide with free space if the ledger and the segment table have
			// already diverged
			panic(errors.Wrapf(err, "failed to return %s to the free region ledger", segment))
		}
	}
}
