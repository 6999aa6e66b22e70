package errmsg

import "errors"

var (
	NotFound      = errors.New("not found")
	QueueFull     = errors.New("queue full")
	QueueEmpty    = errors.New("queue empty")
	InvalidOffset = errors.New("invalid page offset")
	AllocFailed   = errors.New("memory allocation failed")
	UnknownError  = errors.New("unknown error")

	PageSizeNotPowerOfTwo = errors.New("page size must be a power of two")
	PageSizeTooSmall      = errors.New("page size must be at least 1024 bytes")
	MemorySizeInvalid     = errors.New("memory size must be a positive multiple of page size")
	ChannelWidthInvalid   = errors.New("channel width must be a multiple of the chip count")
	RoundGrainInvalid     = errors.New("cpu frequency rounding grain must be positive")
	ThreadCountInvalid    = errors.New("worker thread count must be non-negative")
	InsufficientFreeMem   = errors.New("insufficient free memory for requested arena")

	MSRUnavailable   = errors.New("required MSR capability not present")
	CPUIDUnavailable = errors.New("required CPUID feature not present")
)
