// Package tray provides the status icon using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID        int
	Title     string
	Checkable bool
	Disabled  bool
	Callback  func()
	item      *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	title   string
	tooltip string
	items   []*MenuItem
	readyCh chan struct{}
	quitCh  chan struct{}

	mu     sync.Mutex
	paused bool
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray. Items must be added before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback})
}

// AddCheckbox adds a checkable menu item.
func (t *Tray) AddCheckbox(title string, callback func()) int {
	return t.add(&MenuItem{Title: title, Checkable: true, Callback: callback})
}

// AddLabel adds a disabled item used to show status text.
func (t *Tray) AddLabel(title string) int {
	return t.add(&MenuItem{Title: title, Disabled: true})
}

func (t *Tray) add(mi *MenuItem) int {
	mi.ID = len(t.items)
	t.items = append(t.items, mi)
	return mi.ID
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil) // nil indicates separator
}

// item returns the live menu item for id once the tray is ready.
func (t *Tray) item(id int) *systray.MenuItem {
	select {
	case <-t.readyCh:
	default:
		return nil
	}
	if id < 0 || id >= len(t.items) || t.items[id] == nil {
		return nil
	}
	return t.items[id].item
}

// SetItemChecked sets the checked state of a menu item
func (t *Tray) SetItemChecked(id int, checked bool) {
	if item := t.item(id); item != nil {
		if checked {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// SetItemTitle changes the text of a menu item
func (t *Tray) SetItemTitle(id int, title string) {
	if item := t.item(id); item != nil {
		item.SetTitle(title)
	}
}

// SetPaused switches between the active and paused icons.
func (t *Tray) SetPaused(paused bool) {
	t.mu.Lock()
	t.paused = paused
	t.mu.Unlock()

	select {
	case <-t.readyCh:
		systray.SetIcon(iconFor(paused))
	default:
	}
}

// Ready is closed once the menu exists.
func (t *Tray) Ready() <-chan struct{} {
	return t.readyCh
}

// Run starts the tray event loop (blocks). On macOS it must be called from
// the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	t.mu.Lock()
	paused := t.paused
	t.mu.Unlock()
	systray.SetIcon(iconFor(paused))

	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		if mi.Checkable {
			mi.item = systray.AddMenuItemCheckbox(mi.Title, "", false)
		} else {
			mi.item = systray.AddMenuItem(mi.Title, "")
		}
		if mi.Disabled {
			mi.item.Disable()
		}
		if mi.Callback != nil {
			go t.clicks(mi)
		}
	}
	close(t.readyCh)
}

// clicks handles clicks of one item until the tray quits
func (t *Tray) clicks(mi *MenuItem) {
	for {
		select {
		case <-mi.item.ClickedCh:
			mi.Callback()
		case <-t.quitCh:
			return
		}
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}
