package main

import (
	"io"

	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/SunnyShi051223/OS-Design/memutils/defrag"
	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/SunnyShi051223/OS-Design/sam"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// session wraps one allocator and prints the outcome of every operation performed against it
type session struct {
	allocator *sam.Allocator
	strategy  metadata.AllocationStrategy
	json      bool

	out     io.Writer
	printer *message.Printer
}

func newSession(config *rootConfiguration, out io.Writer, logOut io.Writer) (*session, error) {
	err := memutils.CheckPositive(config.Memory, "memory size")
	if err != nil {
		return nil, err
	}

	logger, err := config.newLogger(logOut)
	if err != nil {
		return nil, err
	}

	strategy, err := metadata.ParseAllocationStrategy(config.Policy)
	if err != nil {
		return nil, err
	}

	s := &session{
		strategy: strategy,
		json:     config.JSON,
		out:      out,
		printer:  message.NewPrinter(language.English),
	}

	s.allocator, err = sam.New(logger, sam.CreateOptions{
		TotalSize: config.Memory,
		Callbacks: &sam.CallbackOptions{
			Evict:    s.onEvict,
			Rollback: s.onRollback,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating allocator")
	}

	return s, nil
}

func (s *session) onEvict(_ *sam.Allocator, requester sam.PID, victim sam.PID, segments []sam.Segment, _ interface{}) {
	s.printer.Fprintf(s.out, "Evicted process %d (%d segments) to make room for process %d\n", victim, len(segments), requester)
}

func (s *session) onRollback(_ *sam.Allocator, pid sam.PID, segments []sam.Segment, _ interface{}) {
	s.printer.Fprintf(s.out, "Rolled back %d segments of process %d\n", len(segments), pid)
}

func (s *session) initMemory(size int) error {
	err := s.allocator.Init(size)
	if err != nil {
		return err
	}

	s.printer.Fprintf(s.out, "Initialized %d bytes of memory\n", size)
	return nil
}

// request allocates segments for pid. Running out of memory is an expected outcome that is reported
// rather than returned; any other error means the request itself was malformed.
func (s *session) request(pid sam.PID, strategy metadata.AllocationStrategy, sizes []int) error {
	err := s.allocator.RequestMemory(pid, sizes, strategy)
	if errors.Is(err, memutils.ErrAllocationExhausted) {
		s.printer.Fprintf(s.out, "Process %d: allocation failed: %v\n", pid, err)
		return nil
	} else if err != nil {
		return err
	}

	segments, err := s.allocator.Segments(pid)
	if err != nil {
		return err
	}

	for _, segment := range segments[len(segments)-len(sizes):] {
		s.printer.Fprintf(s.out, "Process %d segment %d: %d bytes at [%d, %d) (%s)\n",
			pid, segment.Index, segment.Size, segment.Start, segment.End(), strategy)
	}
	return nil
}

func (s *session) release(pid sam.PID) {
	count := s.allocator.ReleaseMemory(pid)
	if count == 0 {
		s.printer.Fprintf(s.out, "Process %d owns no memory\n", pid)
		return
	}

	s.printer.Fprintf(s.out, "Released %d segments of process %d\n", count, pid)
}

// compact runs compaction passes until nothing is left to move
func (s *session) compact() error {
	var total defrag.DefragmentationStats
	for {
		stats, err := s.allocator.Compact(defrag.DefragmentationInfo{}, nil)
		if err != nil {
			return err
		}
		if stats.MovesApplied == 0 {
			break
		}

		total.MovesApplied += stats.MovesApplied
		total.BytesMoved += stats.BytesMoved
	}

	s.printer.Fprintf(s.out, "Compacted memory: moved %d segments (%d bytes)\n", total.MovesApplied, total.BytesMoved)
	return nil
}

func (s *session) status() error {
	if s.json {
		return printJSONStatus(s.out, s.allocator)
	}

	printTextStatus(s.printer, s.out, s.allocator)
	return nil
}
