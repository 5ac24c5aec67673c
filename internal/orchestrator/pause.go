package orchestrator

import (
	"log"
	"sync"
	"time"
)

// PauseSwitch lets an operator suspend monitor scans without stopping the
// process. While paused, scheduled scans are skipped entirely, so no alerts
// fire and no work is auto-assigned. Manual dispatch is unaffected.
type PauseSwitch struct {
	mu     sync.RWMutex
	paused bool
	since  time.Time
}

// NewPauseSwitch returns an unpaused switch.
func NewPauseSwitch() *PauseSwitch {
	return &PauseSwitch{}
}

// Pause suspends scans. Pausing an already paused switch keeps the original
// pause time.
func (p *PauseSwitch) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		p.since = time.Now()
		log.Printf("[monitor] paused - scans and auto-assignment suspended")
	}
}

// Resume re-enables scans.
func (p *PauseSwitch) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		p.since = time.Time{}
		log.Printf("[monitor] resumed - scans and auto-assignment enabled")
	}
}

// Paused reports whether scans are suspended.
func (p *PauseSwitch) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// Since returns when the current pause began; the zero time when running.
func (p *PauseSwitch) Since() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.since
}
