package mailstore

import "sync"

// subscription is a single-shot change signal for one user's folder set.
type subscription struct {
	user    string
	folders map[string]struct{}
	ch      chan struct{}
	once    sync.Once

	mu      sync.Mutex
	changed []string
}

// Event implements Handle.
func (s *subscription) Event() <-chan struct{} { return s.ch }

// Changed implements Handle.
func (s *subscription) Changed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.changed))
	copy(out, s.changed)
	return out
}

func (s *subscription) signal(folder string) {
	s.mu.Lock()
	seen := false
	for _, f := range s.changed {
		if f == folder {
			seen = true
			break
		}
	}
	if !seen {
		s.changed = append(s.changed, folder)
	}
	s.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
}

// Notifier is the per-user change fan-out shared by the store
// implementations. Embed it and call Notify after every mutation.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

// Subscribe implements Store.Subscribe.
func (n *Notifier) Subscribe(user string, folders []string) (Handle, error) {
	sub := &subscription{
		user:    user,
		folders: make(map[string]struct{}, len(folders)),
		ch:      make(chan struct{}),
	}
	for _, f := range folders {
		sub.folders[f] = struct{}{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[string]map[*subscription]struct{})
	}
	if n.subs[user] == nil {
		n.subs[user] = make(map[*subscription]struct{})
	}
	n.subs[user][sub] = struct{}{}
	return sub, nil
}

// Unsubscribe implements Store.Unsubscribe.
func (n *Notifier) Unsubscribe(h Handle) {
	sub, ok := h.(*subscription)
	if !ok {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if set, ok := n.subs[sub.user]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(n.subs, sub.user)
		}
	}
}

// Notify wakes every subscriber of user watching folder. Signaled
// subscriptions stay registered until Unsubscribe; later changes still
// accumulate in the changed set, but the event fires only once.
func (n *Notifier) Notify(user, folder string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs[user] {
		if _, watched := sub.folders[folder]; watched {
			sub.signal(folder)
		}
	}
}
