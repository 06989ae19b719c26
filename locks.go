package warrant

import (
	"sort"
	"sync"
)

// keyedLocks serializes read-validate-write sequences per entity key.
// Entries are reference counted and dropped once unused.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

// lock acquires every key in sorted order and returns the release func.
func (k *keyedLocks) lock(keys ...string) func() {
	keys = sortedUnique(keys)
	held := make([]*keyedLock, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		l, ok := k.locks[key]
		if !ok {
			l = &keyedLock{}
			k.locks[key] = l
		}
		l.refs++
		k.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, keys[i])
			}
			k.mu.Unlock()
		}
	}
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func roleKey(roleID string) string { return "role:" + roleID }

func roleNameKey(guard, tenantID, name string) string {
	return "role-name:" + guard + "\x00" + tenantID + "\x00" + name
}

func permissionNameKey(guard, name string) string {
	return "perm-name:" + guard + "\x00" + name
}

func subjectKey(s Subject) string {
	return "subject:" + string(s.Kind) + "\x00" + s.ID
}
