package core

// Observable owns the observers registered on a node. Embed it in node types
// that can be subscribed to.
type Observable struct {
	observers []Observer
}

// RegisterObserver takes ownership of o
func (s *Observable) RegisterObserver(o Observer) {
	s.observers = appendUnique(s.observers, o)
}

// UnregisterObserver detaches o from its subject and drops it. Unknown
// observers are ignored.
func (s *Observable) UnregisterObserver(o Observer) {
	var found bool
	s.observers, found = removeElement(s.observers, o)
	if found {
		o.DetachObserver()
	}
}

// DestroyObservers detaches every registered observer. Called when the
// subject is torn down.
func (s *Observable) DestroyObservers() {
	observers := s.observers
	s.observers = nil
	for _, o := range observers {
		o.DetachObserver()
	}
}

// ObserverCount returns the number of registered observers
func (s *Observable) ObserverCount() int {
	return len(s.observers)
}
