package sam

import (
	"io"

	"github.com/SunnyShi051223/OS-Design/sam/internal/utils"
	"github.com/vkngwrapper/core/v2/common"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return allocatorCreateFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that this allocator will not be synchronized internally.
	// The consumer must guarantee that it is used from only one goroutine at a time, or that every
	// request, release and status call is serialized by some other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
	// CreateDisableEviction makes requests fail with memutils.ErrAllocationExhausted as soon as
	// placement fails, instead of evicting other processes first.
	CreateDisableEviction
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
	CreateDisableEviction.Register("CreateDisableEviction")
}

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// TotalSize, if positive, is passed to Allocator.Init before New returns. If it is left 0,
	// the allocator manages an empty address space until Init is called.
	TotalSize int
	// Callbacks is an optional set of callbacks executed when memory is evicted, released, or
	// rolled back
	Callbacks *CallbackOptions
}

// New creates a new Allocator
//
// logger - The logger that allocator diagnostics are written to. If nil, diagnostics are discarded.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}

	allocator := &Allocator{
		logger:      logger,
		createFlags: options.Flags,
		mutex:       utils.OptionalRWMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
	}
	allocator.callbacks = allocatorCallbacks{
		Callbacks: options.Callbacks,
		Allocator: allocator,
	}
	allocator.segments.Init()
	allocator.evictor = fifoEvictor{segments: &allocator.segments}

	if options.TotalSize != 0 {
		err := allocator.Init(options.TotalSize)
		if err != nil {
			return nil, err
		}
	}

	return allocator, nil
}
