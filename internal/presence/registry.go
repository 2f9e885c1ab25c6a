// Package presence tracks who is online and who is ready in each session.
//
// A Registry is plain in-memory state with no locking. It must be owned by a
// single goroutine; in the server that is the hub loop, which handles one
// connection event at a time.
package presence

import "sort"

// Member is the (session, username) pair a connection is bound to.
type Member struct {
	Session  string
	Username string
}

// Departure describes the outcome of removing a connection.
type Departure struct {
	Member
	// Offline is true when the removed connection was the last one bound to
	// the member, so the username left the session's online set.
	Offline bool
}

// Snapshot is the presence state of one session.
type Snapshot struct {
	Online []string
	Ready  []string
}

// Registry maps sessions to online/ready usernames and connections to members.
type Registry struct {
	// online counts live connections per username within a session.
	online map[string]map[string]int
	ready  map[string]map[string]struct{}
	conns  map[string]Member
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		online: make(map[string]map[string]int),
		ready:  make(map[string]map[string]struct{}),
		conns:  make(map[string]Member),
	}
}

// AddUser binds connID to (session, username) and marks username online.
// It returns true when the username was not online in the session before.
// Calling it again with the same arguments changes nothing.
func (r *Registry) AddUser(session, username, connID string) bool {
	m := Member{Session: session, Username: username}
	if prev, ok := r.conns[connID]; ok {
		if prev == m {
			return false
		}
		r.release(connID, prev)
	}

	users, ok := r.online[session]
	if !ok {
		users = make(map[string]int)
		r.online[session] = users
	}
	users[username]++
	r.conns[connID] = m
	return users[username] == 1
}

// RemoveByConnection unbinds connID. The boolean is false when connID was
// unknown, in which case nothing changes.
func (r *Registry) RemoveByConnection(connID string) (Departure, bool) {
	m, ok := r.conns[connID]
	if !ok {
		return Departure{}, false
	}
	offline := r.release(connID, m)
	return Departure{Member: m, Offline: offline}, true
}

// release drops connID's binding to m and reports whether m went offline.
func (r *Registry) release(connID string, m Member) bool {
	delete(r.conns, connID)

	users := r.online[m.Session]
	if users == nil {
		return false
	}
	if users[m.Username] > 1 {
		users[m.Username]--
		return false
	}

	delete(users, m.Username)
	if len(users) == 0 {
		delete(r.online, m.Session)
	}
	if ready := r.ready[m.Session]; ready != nil {
		delete(ready, m.Username)
		if len(ready) == 0 {
			delete(r.ready, m.Session)
		}
	}
	return true
}

// SetReady adds or removes username from the session's ready set.
func (r *Registry) SetReady(session, username string, isReady bool) {
	ready, ok := r.ready[session]
	if isReady {
		if !ok {
			ready = make(map[string]struct{})
			r.ready[session] = ready
		}
		ready[username] = struct{}{}
		return
	}
	if !ok {
		return
	}
	delete(ready, username)
	if len(ready) == 0 {
		delete(r.ready, session)
	}
}

// Online lists usernames currently online in session.
func (r *Registry) Online(session string) []string {
	users := r.online[session]
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Ready lists usernames marked ready in session.
func (r *Registry) Ready(session string) []string {
	ready := r.ready[session]
	out := make([]string, 0, len(ready))
	for u := range ready {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns both presence lists for session.
func (r *Registry) Snapshot(session string) Snapshot {
	return Snapshot{Online: r.Online(session), Ready: r.Ready(session)}
}

// Lookup returns the member connID is bound to.
func (r *Registry) Lookup(connID string) (Member, bool) {
	m, ok := r.conns[connID]
	return m, ok
}

// IsOnline reports whether username has a live connection in session.
func (r *Registry) IsOnline(session, username string) bool {
	return r.online[session][username] > 0
}

// Sessions returns the number of sessions with at least one online user.
func (r *Registry) Sessions() int {
	return len(r.online)
}

// Connections returns the number of bound connections.
func (r *Registry) Connections() int {
	return len(r.conns)
}
