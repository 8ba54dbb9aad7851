package qc

import (
	"errors"
	"fmt"
	"sync"

	"go-hep.org/x/hep/hbook"
)

var (
	// ErrAlreadyPublished is returned when a name is published twice.
	ErrAlreadyPublished = errors.New("qc: object already published")
	// ErrNotPublished is returned when replacing an unknown object.
	ErrNotPublished = errors.New("qc: object not published")
)

// Object type names returned by MonitorObject.TypeName and accepted by checks.
const (
	TypeH1D = "H1D"
	TypeH2D = "H2D"
)

// MonitorObject is a named histogram published by a task.
type MonitorObject struct {
	Name   string
	Object hbook.Object
}

// TypeName reports the histogram kind of the object.
func (mo MonitorObject) TypeName() string {
	switch mo.Object.(type) {
	case *hbook.H1D:
		return TypeH1D
	case *hbook.H2D:
		return TypeH2D
	default:
		return fmt.Sprintf("%T", mo.Object)
	}
}

// ObjectsManager keeps the set of objects a task publishes. It is safe for
// concurrent use so the admin page can list objects while a task runs.
type ObjectsManager struct {
	mu      sync.RWMutex
	order   []string
	objects map[string]MonitorObject
}

// NewObjectsManager returns an empty manager.
func NewObjectsManager() *ObjectsManager {
	return &ObjectsManager{objects: make(map[string]MonitorObject)}
}

// StartPublishing adds obj under name.
func (m *ObjectsManager) StartPublishing(name string, obj hbook.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrAlreadyPublished)
	}
	m.objects[name] = MonitorObject{Name: name, Object: obj}
	m.order = append(m.order, name)
	return nil
}

// Replace swaps the object published under name, keeping its position.
func (m *ObjectsManager) Replace(name string, obj hbook.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrNotPublished)
	}
	m.objects[name] = MonitorObject{Name: name, Object: obj}
	return nil
}

// StopPublishing removes name. Unknown names are ignored.
func (m *ObjectsManager) StopPublishing(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return
	}
	delete(m.objects, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Get returns the object published under name.
func (m *ObjectsManager) Get(name string) (MonitorObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mo, ok := m.objects[name]
	return mo, ok
}

// Objects returns the published objects in publishing order.
func (m *ObjectsManager) Objects() []MonitorObject {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MonitorObject, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.objects[n])
	}
	return out
}

// Map returns a copy of the published objects keyed by name, the form
// checks consume.
func (m *ObjectsManager) Map() map[string]MonitorObject {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]MonitorObject, len(m.objects))
	for k, v := range m.objects {
		out[k] = v
	}
	return out
}

// Len returns the number of published objects.
func (m *ObjectsManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
