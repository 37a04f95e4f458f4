package runner

import (
	"github.com/prometheus/procfs"
)

// MemorySampler reads the resident memory of a running process
type MemorySampler interface {
	RSS(pid int) (uint64, error)
}

type procfsSampler struct {
	fs procfs.FS
}

// NewProcfsSampler creates a sampler reading /proc/<pid>/stat
func NewProcfsSampler() (MemorySampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, err
	}
	return &procfsSampler{fs: fs}, nil
}

func (s *procfsSampler) RSS(pid int) (uint64, error) {
	p, err := s.fs.Proc(pid)
	if err != nil {
		return 0, err
	}
	st, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(st.ResidentMemory()), nil
}
