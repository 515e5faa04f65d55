package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Constructor builds a fresh plugin instance.
type Constructor func() Plugin

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register is called by plugins in their init() function. Registering the
// same name twice panics.
func Register(name string, constructor Constructor) {
	name = strings.ToLower(name)
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("plugin: Register called twice for %q", name))
	}
	registry[name] = constructor
}

// Registered returns the registered plugin names in order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Identity gives a plugin its listener ID and name. Embed it.
type Identity struct {
	id   uuid.UUID
	name string
}

// NewIdentity creates an Identity with a fresh listener ID and a lowercased name.
func NewIdentity(name string) Identity {
	return Identity{id: uuid.New(), name: strings.ToLower(name)}
}

func (i Identity) ListenerID() uuid.UUID { return i.id }
func (i Identity) Name() string          { return i.name }
