// timer/timer.go
package timer

import (
	"sync"
	"time"
)

type task struct {
	id       int64
	interval time.Duration
	next     time.Time
	callback func()
}

// Manager runs repeating background tasks on a shared ticker. The server uses
// it for the session heartbeat sweep; party records are never expired here.
type Manager struct {
	tasks  map[int64]*task
	nextID int64
	mutex  sync.Mutex
	stop   chan struct{}
	once   sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		tasks:  make(map[int64]*task),
		nextID: 1,
		stop:   make(chan struct{}),
	}
	go m.run()
	return m
}

// AddRepeating schedules callback every interval, first firing one interval
// from now. Returns the task id for removal.
func (m *Manager) AddRepeating(interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := m.nextID
	m.nextID++
	m.tasks[id] = &task{
		id:       id,
		interval: interval,
		next:     time.Now().Add(interval),
		callback: callback,
	}
	return id
}

func (m *Manager) Remove(id int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.tasks, id)
}

func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
	})
}

func (m *Manager) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.fireDue()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) fireDue() {
	now := time.Now()

	m.mutex.Lock()
	var due []func()
	for _, t := range m.tasks {
		if !t.next.After(now) {
			due = append(due, t.callback)
			t.next = now.Add(t.interval)
		}
	}
	m.mutex.Unlock()

	for _, callback := range due {
		go callback()
	}
}
