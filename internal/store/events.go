package store

// EventKind identifies a store mutation.
type EventKind int

const (
	MessageAppended EventKind = iota
	MessageEdited
	MessageDeleted
	ReactionChanged
	PollChanged
	PinChanged
	PresenceChanged
)

func (k EventKind) String() string {
	switch k {
	case MessageAppended:
		return "message_appended"
	case MessageEdited:
		return "message_edited"
	case MessageDeleted:
		return "message_deleted"
	case ReactionChanged:
		return "reaction_changed"
	case PollChanged:
		return "poll_changed"
	case PinChanged:
		return "pin_changed"
	case PresenceChanged:
		return "presence_changed"
	default:
		return "unknown"
	}
}

// Event describes one applied mutation. Subscribers re-read the store for
// the new state; events carry identifiers only.
type Event struct {
	Kind      EventKind
	ChannelID string
	MessageID string
	UserID    string
}

// Subscribe registers fn for every future event and returns a function
// that removes it. fn runs on the mutating goroutine after the store lock
// is released, so it may read the store but must not block for long.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
