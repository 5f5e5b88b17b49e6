package demo

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/edera-run/workflowd/internal/daemon"
	"github.com/edera-run/workflowd/internal/task"
)

// Prelude seeds a single Welcome task and then goes quiet, letting the
// daemon's prelude-gates-main sequencing hold Main back until it has
// run exactly once. Grounded on __main__.py's prelude module
// registration (`daemon.modules.Prelude`).
type Prelude struct {
	seeded atomic.Bool
}

func (p *Prelude) Name() string { return "demo-prelude" }

func (p *Prelude) Scheduling() map[string]daemon.Schedule {
	return map[string]daemon.Schedule{
		"": {BuildingDelay: time.Second, ExecutionDelay: time.Second, Executors: 1},
	}
}

func (p *Prelude) Seed(time.Time) (task.Task, error) {
	if p.seeded.Swap(true) {
		return nil, nil
	}
	return &Welcome{}, nil
}

// Main re-seeds a ReHashFile pipeline every round, stamped with the
// seed time, matching __main__.py's periodic re-hash demo. The
// "focus" tag carries PickFirstLetters off into its own, faster-
// scheduled branch (the hashing fan-out stays on the default branch).
// Grounded on __main__.py's main module registration.
type Main struct {
	FS              *FileSystem
	InputFile       string
	OutputDirectory string
	URL             string
	Fail            bool
	Sleep           time.Duration
}

func (m *Main) Name() string { return "demo-main" }

func (m *Main) Scheduling() map[string]daemon.Schedule {
	return map[string]daemon.Schedule{
		"":      {BuildingDelay: time.Minute, ExecutionDelay: 5 * time.Second, Executors: 2},
		"focus": {BuildingDelay: time.Minute, ExecutionDelay: 2 * time.Second, Executors: 1},
	}
}

func (m *Main) Seed(now time.Time) (task.Task, error) {
	return &ReHashFile{
		FS:              m.FS,
		InputFile:       m.InputFile,
		OutputDirectory: m.OutputDirectory,
		URL:             m.URL,
		Timestamp:       now,
		Fail:            m.Fail,
		Sleep:           m.Sleep,
	}, nil
}

// Support re-seeds a housekeeping pass that removes the hashed output
// file in Dir every round, a lighter-weight companion branch to Main that
// the original demo runs as its second registered module. Grounded on
// __main__.py's support module registration.
type Support struct {
	FS  *FileSystem
	Dir string
}

func (s *Support) Name() string { return "demo-support" }

func (s *Support) Scheduling() map[string]daemon.Schedule {
	return map[string]daemon.Schedule{
		"": {BuildingDelay: 5 * time.Minute, ExecutionDelay: 10 * time.Second, Executors: 1},
	}
}

func (s *Support) Seed(time.Time) (task.Task, error) {
	return &RemoveFile{FS: s.FS, Path: filepath.Join(s.Dir, "hashed")}, nil
}

// CronSpec gates Support's re-seeding to the top of every hour, on top
// of its own Schedule.BuildingDelay, so the housekeeping sweep runs on a
// calendar boundary rather than merely every five minutes of uptime.
// Implements daemon.CronSeeded.
func (s *Support) CronSpec() string { return "0 * * * *" }
