package hub

import "sync"

// GroupName derives the canonical conversation group for two usernames.
// Commutative: both participants resolve to the same group regardless of who
// initiated.
func GroupName(a, b string) string {
	if a < b {
		return a + "-" + b
	}
	return b + "-" + a
}

// GroupTracker maps conversation groups to the connections currently viewing
// them. Groups are created on first join and removed when emptied. Same
// sharded locking discipline as the Registry, keyed by group name; a conn
// belongs to at most one group at a time.
type GroupTracker struct {
	shards [numShards]groupShard

	mu     sync.Mutex
	byConn map[*Conn]string
}

type groupShard struct {
	mu     sync.RWMutex
	groups map[string]map[*Conn]struct{}
}

func NewGroupTracker() *GroupTracker {
	t := &GroupTracker{byConn: make(map[*Conn]string)}
	for i := range t.shards {
		t.shards[i].groups = make(map[string]map[*Conn]struct{})
	}
	return t
}

func (t *GroupTracker) Join(groupName string, conn *Conn) {
	s := &t.shards[shardIndex(groupName)]
	s.mu.Lock()
	set := s.groups[groupName]
	if set == nil {
		set = make(map[*Conn]struct{})
		s.groups[groupName] = set
	}
	set[conn] = struct{}{}
	s.mu.Unlock()

	t.mu.Lock()
	t.byConn[conn] = groupName
	t.mu.Unlock()
}

// Leave removes conn from its group, dropping the group once empty.
// Idempotent: leaving twice is harmless.
func (t *GroupTracker) Leave(conn *Conn) {
	t.mu.Lock()
	groupName, ok := t.byConn[conn]
	delete(t.byConn, conn)
	t.mu.Unlock()
	if !ok {
		return
	}

	s := &t.shards[shardIndex(groupName)]
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.groups[groupName]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(s.groups, groupName)
	}
}

// Members returns a snapshot of the group's member connections.
func (t *GroupTracker) Members(groupName string) []*Conn {
	s := &t.shards[shardIndex(groupName)]
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.groups[groupName]
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	return conns
}
