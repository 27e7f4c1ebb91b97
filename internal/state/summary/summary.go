package summary

import (
	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/fachebot/counsel-assist/internal/state"
)

// InputMethod 输入方式
type InputMethod string

const (
	InputText  InputMethod = "TEXT"
	InputFile  InputMethod = "FILE"
	InputAudio InputMethod = "AUDIO"
)

// Valid 是否为已知的输入方式
func (m InputMethod) Valid() bool {
	switch m {
	case InputText, InputFile, InputAudio:
		return true
	}
	return false
}

// State 总结会话状态
// 切换输入方式不会清除其他方式已输入的内容
type State struct {
	InputMethod InputMethod
	TextInput   string
	File        *api.Attachment
	Audio       *api.Attachment
	IsLoading   bool
	Results     *domain.SummaryResult
	Error       string
}

// Initial 初始状态，默认文本输入
func Initial() State {
	return State{InputMethod: InputText}
}

// Action 总结状态的动作，集合封闭
type Action interface {
	summaryAction()
}

type SetInputMethod struct{ Method InputMethod }

type SetTextInput struct{ Text string }

type SetFile struct{ File *api.Attachment }

type SetAudio struct{ Audio *api.Attachment }

type SetLoading struct{ Loading bool }

type SetResults struct{ Results *domain.SummaryResult }

type SetError struct{ Error string }

type Reset struct{}

func (SetInputMethod) summaryAction() {}
func (SetTextInput) summaryAction()   {}
func (SetFile) summaryAction()        {}
func (SetAudio) summaryAction()       {}
func (SetLoading) summaryAction()     {}
func (SetResults) summaryAction()     {}
func (SetError) summaryAction()       {}
func (Reset) summaryAction()          {}

// Reduce 总结状态转换
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetInputMethod:
		if !a.Method.Valid() {
			return s
		}
		s.InputMethod = a.Method
		s.Error = ""
	case SetTextInput:
		s.TextInput = a.Text
		s.Error = ""
	case SetFile:
		s.File = a.File
		s.Error = ""
	case SetAudio:
		s.Audio = a.Audio
		s.Error = ""
	case SetLoading:
		s.IsLoading = a.Loading
	case SetResults:
		s.Results = a.Results
		s.IsLoading = false
	case SetError:
		s.Error = a.Error
		s.IsLoading = false
	case Reset:
		// 保留当前输入方式
		next := Initial()
		next.InputMethod = s.InputMethod
		return next
	}
	return s
}

type Store = state.Store[State, Action]

func NewStore() *Store {
	return state.NewStore[State, Action](Initial(), Reduce)
}
