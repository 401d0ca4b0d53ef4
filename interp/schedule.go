package interp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schedule replays logical threads in a fixed order. The threads execute
// sequentially on one goroutine; the after edges describe the ordering
// the original program would have enforced, which the hooks use to
// reconstruct happens-before.
type Schedule struct {
	// Setup optionally names a function run before every thread, as
	// thread 0, ordered before all of them.
	Setup string `yaml:"setup,omitempty"`

	Threads []ThreadSpec `yaml:"threads"`
}

// ThreadSpec is one logical thread of a schedule.
type ThreadSpec struct {
	Name  string   `yaml:"name"`
	Call  string   `yaml:"call"`
	Args  []int64  `yaml:"args,omitempty"`
	After []string `yaml:"after,omitempty"`
}

// ParseSchedule decodes and validates a YAML schedule.
func ParseSchedule(data []byte) (*Schedule, error) {
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchedule reads and parses a schedule file.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSchedule(data)
}

// validate checks that names are unique and that after edges point at
// earlier threads only; a sequential replay cannot satisfy anything else.
func (s *Schedule) validate() error {
	if len(s.Threads) == 0 {
		return fmt.Errorf("schedule: no threads")
	}
	seen := make(map[string]bool, len(s.Threads))
	for i, th := range s.Threads {
		if th.Name == "" {
			return fmt.Errorf("schedule: thread %d has no name", i)
		}
		if th.Call == "" {
			return fmt.Errorf("schedule: thread %q has no call", th.Name)
		}
		if seen[th.Name] {
			return fmt.Errorf("schedule: duplicate thread name %q", th.Name)
		}
		for _, a := range th.After {
			if !seen[a] {
				return fmt.Errorf("schedule: thread %q runs after unknown or later thread %q", th.Name, a)
			}
		}
		seen[th.Name] = true
	}
	return nil
}

// Run executes the schedule against the machine. Thread ids follow the
// listed order starting at 1; setup runs as thread 0.
func Run(m *Machine, s *Schedule) error {
	events, _ := m.hooks.(ThreadEvents)

	if s.Setup != "" {
		if events != nil {
			events.ThreadStart(0, nil)
		}
		if _, err := m.Call(0, s.Setup); err != nil {
			return fmt.Errorf("schedule: setup %s: %w", s.Setup, err)
		}
		if events != nil {
			events.ThreadFinish(0)
		}
	}

	tids := make(map[string]int, len(s.Threads))
	for i, th := range s.Threads {
		tid := i + 1
		tids[th.Name] = tid

		var after []int
		if s.Setup != "" {
			after = append(after, 0)
		}
		for _, name := range th.After {
			after = append(after, tids[name])
		}
		if events != nil {
			events.ThreadStart(tid, after)
		}

		args := make([]uint64, len(th.Args))
		for j, a := range th.Args {
			args[j] = uint64(a)
		}
		if _, err := m.Call(tid, th.Call, args...); err != nil {
			return fmt.Errorf("schedule: thread %s: %w", th.Name, err)
		}
		if events != nil {
			events.ThreadFinish(tid)
		}
	}
	return nil
}
