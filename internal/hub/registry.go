package hub

import (
	"hash/fnv"
	"sort"
	"sync"
)

const numShards = 16

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % numShards)
}

// Registry maps usernames to their active connections. A username is online
// iff its set is non-empty. Locking is sharded by username so traffic for
// unrelated users does not serialize on one mutex.
type Registry struct {
	shards [numShards]registryShard
}

type registryShard struct {
	mu    sync.RWMutex
	users map[string]map[*Conn]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].users = make(map[string]map[*Conn]struct{})
	}
	return r
}

// Add registers conn under username and reports whether this was the user's
// first active connection (the online transition).
func (r *Registry) Add(username string, conn *Conn) bool {
	s := &r.shards[shardIndex(username)]
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.users[username]
	if set == nil {
		set = make(map[*Conn]struct{})
		s.users[username] = set
	}
	set[conn] = struct{}{}
	return len(set) == 1
}

// Remove drops conn and reports whether this was the user's last active
// connection (the offline transition). Removing an absent conn is a no-op.
func (r *Registry) Remove(username string, conn *Conn) bool {
	s := &r.shards[shardIndex(username)]
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.users[username]
	if set == nil {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(s.users, username)
		return true
	}
	return false
}

// ConnectionsFor returns a snapshot of the user's active connections.
func (r *Registry) ConnectionsFor(username string) []*Conn {
	s := &r.shards[shardIndex(username)]
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[username]
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	return conns
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []*Conn {
	var conns []*Conn
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, set := range s.users {
			for c := range set {
				conns = append(conns, c)
			}
		}
		s.mu.RUnlock()
	}
	return conns
}

// OnlineUsernames returns the sorted usernames with at least one connection.
func (r *Registry) OnlineUsernames() []string {
	usernames := make([]string, 0)
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for username := range s.users {
			usernames = append(usernames, username)
		}
		s.mu.RUnlock()
	}
	sort.Strings(usernames)
	return usernames
}
