package state

import (
	"sync"
)

// Reducer 纯状态转换：相同的状态和动作总是得到相同的新状态
type Reducer[S any, A any] func(state S, action A) S

// Store 单一可变状态单元，只能通过 Dispatch 修改
// 订阅者按状态变化的顺序收到通知，回调中不能再调用 Dispatch
type Store[S any, A any] struct {
	mu     sync.Mutex
	state  S
	reduce Reducer[S, A]

	// notifyMu 在释放 mu 之前获取，保证通知顺序与状态变化顺序一致
	notifyMu sync.Mutex

	subsMu sync.Mutex
	nextID int
	subs   map[int]func(S)
}

func NewStore[S any, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	return &Store[S, A]{
		state:  initial,
		reduce: reduce,
		subs:   make(map[int]func(S)),
	}
}

// State 返回当前状态快照
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch 应用动作并通知订阅者，返回新状态
func (s *Store[S, A]) Dispatch(action A) S {
	s.mu.Lock()
	next := s.reduce(s.state, action)
	s.state = next
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	s.notify(next)
	return next
}

// Subscribe 注册状态变化回调，返回取消订阅函数
func (s *Store[S, A]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store[S, A]) notify(next S) {
	s.subsMu.Lock()
	fns := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
