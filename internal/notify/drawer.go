package notify

import "sync"

// Target identifies what a click landed on while the drawer is open.
type Target string

const (
	TargetBackdrop Target = "backdrop"
	TargetPanel    Target = "panel"
)

// Drawer is the cart side panel. It is either open or closed; opening an open drawer is a no-op.
type Drawer struct {
	mu   sync.Mutex
	open bool
}

// Open shows the drawer.
func (d *Drawer) Open() {
	d.mu.Lock()
	d.open = true
	d.mu.Unlock()
}

// Close hides the drawer.
func (d *Drawer) Close() {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
}

// Click handles a click while the drawer is shown. Only clicks on the backdrop close it.
func (d *Drawer) Click(target Target) {
	if target == TargetBackdrop {
		d.Close()
	}
}

// IsOpen reports the current state.
func (d *Drawer) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// ParseTarget maps a request value to a Target; anything unrecognised counts as inside the panel.
func ParseTarget(raw string) Target {
	if Target(raw) == TargetBackdrop {
		return TargetBackdrop
	}
	return TargetPanel
}
