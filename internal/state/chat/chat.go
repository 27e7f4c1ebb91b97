package chat

import (
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/fachebot/counsel-assist/internal/state"
)

// State 对话会话状态
// CategoryReceived 为 true 当且仅当 Category 非空，且只有 Reset 能将其清除
type State struct {
	Messages         []domain.Message
	Category         string
	CategoryReceived bool
	IsLoading        bool
}

// Initial 初始状态
func Initial() State {
	return State{Messages: []domain.Message{}}
}

// Action 对话状态的动作，集合封闭
type Action interface {
	chatAction()
}

type SetLoading struct{ Loading bool }

type SetCategory struct{ Category string }

type AddMessage struct{ Message domain.Message }

type Reset struct{}

func (SetLoading) chatAction()  {}
func (SetCategory) chatAction() {}
func (AddMessage) chatAction()  {}
func (Reset) chatAction()       {}

// Reduce 对话状态转换
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetLoading:
		s.IsLoading = a.Loading
	case SetCategory:
		// 分类在会话内只确定一次
		if s.CategoryReceived || a.Category == "" {
			return s
		}
		s.Category = a.Category
		s.CategoryReceived = true
	case AddMessage:
		// 复制后追加，之前的快照不受影响
		messages := make([]domain.Message, len(s.Messages), len(s.Messages)+1)
		copy(messages, s.Messages)
		s.Messages = append(messages, a.Message)
	case Reset:
		return Initial()
	}
	return s
}

type Store = state.Store[State, Action]

func NewStore() *Store {
	return state.NewStore[State, Action](Initial(), Reduce)
}
