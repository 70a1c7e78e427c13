package navigation

import (
	"net/url"
	"sync"
)

// Navigator is the slice of browser navigation the auth flows need.
type Navigator interface {
	// Fragment returns the current URL fragment without the leading '#'.
	Fragment() string

	// ClearFragment drops the fragment in place, without a reload or a new history entry.
	ClearFragment()

	// Push navigates to path.
	Push(path string)
}

// Location is an in-memory Navigator holding the current URL and the pushed history.
type Location struct {
	mu      sync.RWMutex
	current url.URL
	history []string
}

var _ Navigator = (*Location)(nil)

// NewLocation starts at rawURL, e.g. a confirmation link opened by the user.
func NewLocation(rawURL string) (*Location, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Location{current: *u}, nil
}

func (l *Location) Fragment() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current.EscapedFragment()
}

func (l *Location) ClearFragment() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current.Fragment = ""
	l.current.RawFragment = ""
}

func (l *Location) Push(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if next, err := l.current.Parse(path); err == nil {
		l.current = *next
	}
	l.history = append(l.history, path)
}

// URL returns the current location.
func (l *Location) URL() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current.String()
}

// Path returns the path of the current location.
func (l *Location) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current.Path
}

// History returns every path pushed so far, oldest first.
func (l *Location) History() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.history...)
}
