// Package history provides an in-process implementation of the
// pagecache.History surface: an entry stack with back/forward traversal that
// emits pop events the way a browser fires popstate. The stack can be
// persisted through a kv.Store so state payloads survive restarts, mirroring
// the browser keeping history state across reloads.
package history

import (
	"context"
	"sync"

	"github.com/LoosePrince/pagecache"
	"github.com/LoosePrince/pagecache/codec"
	"github.com/LoosePrince/pagecache/kv"
)

type Entry struct {
	URL   string          `msgpack:"url"`
	State pagecache.State `msgpack:"state"`
}

// Stack is a session history. The zero value is not usable; call New.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
	cur     int

	onPop func(pagecache.State)

	store kv.Store
	key   string
	codec codec.Codec[[]Entry]
}

var _ pagecache.History = (*Stack)(nil)

type Options struct {
	// Initial is the URL of the entry the session starts on.
	Initial string
	// OnPop is invoked after Back/Forward with the restored entry's state,
	// like a popstate listener. Called without the stack lock held.
	OnPop func(pagecache.State)

	// Store plus Key enable persistence of the stack. Codec defaults to
	// msgpack.
	Store kv.Store
	Key   string
	Codec codec.Codec[[]Entry]
}

func New(opts Options) *Stack {
	s := &Stack{
		entries: []Entry{{URL: opts.Initial}},
		cur:     0,
		onPop:   opts.OnPop,
		store:   opts.Store,
		key:     opts.Key,
		codec:   opts.Codec,
	}
	if s.codec == nil {
		s.codec = codec.Msgpack[[]Entry]{}
	}
	return s
}

// ReplaceState mutates the current entry's state in place.
func (s *Stack) ReplaceState(st pagecache.State) {
	s.mu.Lock()
	s.entries[s.cur].State = st
	s.mu.Unlock()
	s.persist()
}

// PushState drops any forward entries, appends a new entry for url and makes
// it current.
func (s *Stack) PushState(url string, st pagecache.State) {
	s.mu.Lock()
	s.entries = append(s.entries[:s.cur+1], Entry{URL: url, State: st})
	s.cur = len(s.entries) - 1
	s.mu.Unlock()
	s.persist()
}

// Back moves to the previous entry and fires OnPop with its state.
// ok=false when already at the oldest entry.
func (s *Stack) Back() (url string, ok bool) {
	s.mu.Lock()
	if s.cur == 0 {
		s.mu.Unlock()
		return "", false
	}
	s.cur--
	e := s.entries[s.cur]
	s.mu.Unlock()
	if s.onPop != nil {
		s.onPop(e.State)
	}
	return e.URL, true
}

// Forward moves to the next entry and fires OnPop with its state.
// ok=false when already at the newest entry.
func (s *Stack) Forward() (url string, ok bool) {
	s.mu.Lock()
	if s.cur >= len(s.entries)-1 {
		s.mu.Unlock()
		return "", false
	}
	s.cur++
	e := s.entries[s.cur]
	s.mu.Unlock()
	if s.onPop != nil {
		s.onPop(e.State)
	}
	return e.URL, true
}

// Current returns the current entry's URL and state.
func (s *Stack) Current() (string, pagecache.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[s.cur]
	return e.URL, e.State
}

// Len reports the number of entries in the stack.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Load restores a previously persisted stack. The in-memory stack is replaced
// only when the stored payload decodes; a missing or corrupt payload leaves
// the fresh session untouched.
func (s *Stack) Load(ctx context.Context) error {
	if s.store == nil || s.key == "" {
		return nil
	}
	raw, ok, err := s.store.Get(ctx, s.key)
	if err != nil || !ok {
		return err
	}
	entries, err := s.codec.Decode([]byte(raw))
	if err != nil || len(entries) == 0 {
		return err
	}
	s.mu.Lock()
	s.entries = entries
	s.cur = len(entries) - 1
	s.mu.Unlock()
	return nil
}

// persist is best-effort; a rejected or failed write only costs the saved
// session, never the navigation itself.
func (s *Stack) persist() {
	if s.store == nil || s.key == "" {
		return
	}
	s.mu.Lock()
	snapshot := append([]Entry(nil), s.entries...)
	s.mu.Unlock()
	b, err := s.codec.Encode(snapshot)
	if err != nil {
		return
	}
	_, _ = s.store.Set(context.Background(), s.key, string(b))
}
