// Package identity converts the per log native player ids into global steam ids.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var ErrInvalidID = errors.New("invalid player id")

// Normalizer maps a native log id such as [U:1:123] onto a stable global id.
type Normalizer interface {
	Normalize(native string) (steamid.SteamID, error)
}

// NormalizerFunc adapts a plain function to the Normalizer interface.
type NormalizerFunc func(native string) (steamid.SteamID, error)

func (f NormalizerFunc) Normalize(native string) (steamid.SteamID, error) {
	return f(native)
}

// SteamNormalizer parses steam2, steam3 and steam64 forms. Results are cached and it is
// safe for concurrent use.
type SteamNormalizer struct {
	cache *mutexMap[string, steamid.SteamID]
}

func NewSteamNormalizer() *SteamNormalizer {
	return &SteamNormalizer{cache: newMutexMap[string, steamid.SteamID]()}
}

func (n *SteamNormalizer) Normalize(native string) (steamid.SteamID, error) {
	if sid, found := n.cache.Get(native); found {
		return sid, nil
	}

	sid := steamid.New(native)
	if !sid.Valid() {
		return steamid.SteamID{}, fmt.Errorf("%w: %q", ErrInvalidID, native)
	}

	n.cache.Set(native, sid)

	return sid, nil
}

// Len returns the number of cached ids.
func (n *SteamNormalizer) Len() int {
	return n.cache.Len()
}

// Names maps global ids back to the most recently seen display name.
type Names struct {
	names *mutexMap[steamid.SteamID, string]
}

func NewNames() *Names {
	return &Names{names: newMutexMap[steamid.SteamID, string]()}
}

// Observe records the display names carried by a log. Ids that fail to normalize are ignored.
func (n *Names) Observe(normalizer Normalizer, log gamelog.GameLog) {
	for native, name := range log.Names {
		sid, errSID := normalizer.Normalize(native)
		if errSID != nil || name == "" {
			continue
		}

		n.Set(sid, name)
	}
}

// Set records a display name. Names that are empty once cleaned are ignored.
func (n *Names) Set(sid steamid.SteamID, name string) {
	if cleaned := CleanName(name); cleaned != "" {
		n.names.Set(sid, cleaned)
	}
}

var nameReplacer = strings.NewReplacer("<", "", ">", "", ",", "") //nolint:gochecknoglobals

// CleanName collapses runs of whitespace and removes the characters that break the csv and html
// outputs.
func CleanName(name string) string {
	return nameReplacer.Replace(strings.Join(strings.Fields(name), " "))
}

// Name returns the known display name, falling back to the steam64 string.
func (n *Names) Name(sid steamid.SteamID) string {
	if name, found := n.names.Get(sid); found {
		return name
	}

	return sid.String()
}

// All returns a copy of every known name.
func (n *Names) All() map[steamid.SteamID]string {
	return n.names.Copy()
}

type mutexMap[K comparable, V any] struct {
	data map[K]V
	mu   *sync.RWMutex
}

func newMutexMap[K comparable, V any]() *mutexMap[K, V] {
	return &mutexMap[K, V]{
		data: map[K]V{},
		mu:   &sync.RWMutex{},
	}
}

func (m *mutexMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *mutexMap[K, V]) Get(key K) (V, bool) { //nolint:ireturn
	m.mu.RLock()
	value, found := m.data[key]
	m.mu.RUnlock()

	return value, found
}

func (m *mutexMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

func (m *mutexMap[K, V]) Copy() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[K]V, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}

	return out
}
