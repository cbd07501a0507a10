package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

// Supervisor owns the machine loops: one goroutine per configured machine,
// started together and stopped together with a bounded join.
type Supervisor struct {
	mu       sync.Mutex
	machines map[string]*runningMachine
}

type runningMachine struct {
	machine *Machine
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSupervisor() *Supervisor {
	return &Supervisor{machines: make(map[string]*runningMachine)}
}

// Start launches a machine's poll loop. Starting an already-running machine
// is a no-op.
func (s *Supervisor) Start(m *Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.machines[m.Name()]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rm := &runningMachine{machine: m, cancel: cancel, done: make(chan struct{})}
	s.machines[m.Name()] = rm
	go func() {
		defer close(rm.done)
		m.run(ctx)
		log.Printf("[%s] poll loop stopped", m.Name())
	}()
}

// Stop cancels one machine's loop and waits for it to exit.
func (s *Supervisor) Stop(name string) {
	s.mu.Lock()
	rm, ok := s.machines[name]
	if ok {
		delete(s.machines, name)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	rm.cancel()
	<-rm.done
}

// StopAll cancels every loop and waits up to timeout for them to exit.
func (s *Supervisor) StopAll(timeout time.Duration) {
	s.mu.Lock()
	running := make([]*runningMachine, 0, len(s.machines))
	for name, rm := range s.machines {
		running = append(running, rm)
		delete(s.machines, name)
	}
	s.mu.Unlock()

	for _, rm := range running {
		rm.cancel()
	}
	deadline := time.After(timeout)
	for _, rm := range running {
		select {
		case <-rm.done:
		case <-deadline:
			log.Printf("monitor: %s did not stop before deadline", rm.machine.Name())
			return
		}
	}
}

// Names returns the currently running machine names.
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.machines))
	for name := range s.machines {
		names = append(names, name)
	}
	return names
}
