package summarization

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/fachebot/counsel-assist/internal/state/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockSummarizationAPI 模拟后端总结接口
type mockSummarizationAPI struct {
	mock.Mock
}

func (m *mockSummarizationAPI) SubmitText(ctx context.Context, text string) (*api.SummaryResponse, error) {
	args := m.Called(ctx, text)
	resp, _ := args.Get(0).(*api.SummaryResponse)
	return resp, args.Error(1)
}

func (m *mockSummarizationAPI) SubmitFile(ctx context.Context, file *api.Attachment) (*api.SummaryResponse, error) {
	args := m.Called(ctx, file)
	resp, _ := args.Get(0).(*api.SummaryResponse)
	return resp, args.Error(1)
}

func (m *mockSummarizationAPI) SubmitAudio(ctx context.Context, audio *api.Attachment) (*api.SummaryResponse, error) {
	args := m.Called(ctx, audio)
	resp, _ := args.Get(0).(*api.SummaryResponse)
	return resp, args.Error(1)
}

func (m *mockSummarizationAPI) DownloadPDF(ctx context.Context, summaryID string) ([]byte, error) {
	args := m.Called(ctx, summaryID)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// alertRecorder 记录 Alert 调用
type alertRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (a *alertRecorder) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func strPtr(s string) *string { return &s }

func newTestController(client summarizationAPI) (*Controller, *alertRecorder) {
	alerts := &alertRecorder{}
	return NewController(client, summary.NewStore(), alerts), alerts
}

func TestSubmit_Text(t *testing.T) {
	mockAPI := new(mockSummarizationAPI)
	mockAPI.On("SubmitText", mock.Anything, "Client reported improved sleep.").
		Return(&api.SummaryResponse{ID: "42", Summary: strPtr("S"), Notes: strPtr("N")}, nil)

	c, _ := newTestController(mockAPI)
	c.SetText("Client reported improved sleep.")
	require.NoError(t, c.Submit(context.Background()))
	mockAPI.AssertExpectations(t)

	s := c.State()
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Error)
	require.NotNil(t, s.Results)
	assert.Equal(t, "42", s.Results.ID)
	assert.Equal(t, "S", s.Results.Summary)
	assert.Equal(t, "N", s.Results.Notes)
	assert.Equal(t, []string{}, s.Results.KeyPoints)
	assert.Equal(t, []string{}, s.Results.Themes)
	assert.Equal(t, []string{}, s.Results.Recommendations)
}

func TestSubmit_FileAndAudio(t *testing.T) {
	file := api.NewBytesAttachment("Session Notes.DOCX", []byte("doc"))
	audio := api.NewBytesAttachment("session.m4a", []byte("audio"))

	mockAPI := new(mockSummarizationAPI)
	mockAPI.On("SubmitFile", mock.Anything, file).
		Return(&api.SummaryResponse{ID: "1", Summary: strPtr("F")}, nil)
	mockAPI.On("SubmitAudio", mock.Anything, audio).
		Return(&api.SummaryResponse{ID: "2", Transcript: strPtr("T"), Summary: strPtr("A")}, nil)

	c, _ := newTestController(mockAPI)

	require.NoError(t, c.SelectInputMethod(summary.InputFile))
	require.NoError(t, c.AttachFile(file))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", file.ContentType)
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, "F", c.State().Results.Summary)

	require.NoError(t, c.SelectInputMethod(summary.InputAudio))
	require.NoError(t, c.AttachAudio(audio))
	assert.Equal(t, "audio/m4a", audio.ContentType)
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, "T", c.State().Results.Transcript)
	mockAPI.AssertExpectations(t)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(c *Controller)
		wantErr error
	}{
		{"空文本", func(c *Controller) {}, ErrEmptyText},
		{"空白文本", func(c *Controller) { c.SetText("   \n") }, ErrEmptyText},
		{"未选择文件", func(c *Controller) { _ = c.SelectInputMethod(summary.InputFile) }, ErrNoFile},
		{"未选择音频", func(c *Controller) { _ = c.SelectInputMethod(summary.InputAudio) }, ErrNoAudio},
		{"文件已移除", func(c *Controller) {
			_ = c.SelectInputMethod(summary.InputFile)
			_ = c.AttachFile(api.NewBytesAttachment("a.txt", []byte("x")))
			c.RemoveFile()
		}, ErrNoFile},
		{"音频已移除", func(c *Controller) {
			_ = c.SelectInputMethod(summary.InputAudio)
			_ = c.AttachAudio(api.NewBytesAttachment("a.mp3", []byte("x")))
			c.RemoveAudio()
		}, ErrNoAudio},
		{"处理中", func(c *Controller) {
			c.SetText("hello")
			c.Store().Dispatch(summary.SetLoading{Loading: true})
		}, ErrBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := new(mockSummarizationAPI)
			c, _ := newTestController(mockAPI)
			tt.prepare(c)

			err := c.Submit(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, mockAPI.Calls, 0)
		})
	}
}

func TestAttach_UnsupportedFormat(t *testing.T) {
	mockAPI := new(mockSummarizationAPI)
	c, _ := newTestController(mockAPI)

	err := c.AttachFile(api.NewBytesAttachment("photo.png", []byte("x")))
	var formatErr *UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, KindFile, formatErr.Kind)
	assert.Equal(t, ".png", formatErr.Ext)
	assert.Nil(t, c.State().File)

	err = c.AttachAudio(api.NewBytesAttachment("voice.flac", []byte("x")))
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, KindAudio, formatErr.Kind)
	assert.Nil(t, c.State().Audio)

	assert.Len(t, mockAPI.Calls, 0)
}

func TestSubmit_RevalidatesFormat(t *testing.T) {
	mockAPI := new(mockSummarizationAPI)
	c, _ := newTestController(mockAPI)

	// 绕过 AttachFile 直接写入状态
	require.NoError(t, c.SelectInputMethod(summary.InputFile))
	c.Store().Dispatch(summary.SetFile{File: api.NewBytesAttachment("archive.zip", []byte("x"))})

	var formatErr *UnsupportedFormatError
	assert.ErrorAs(t, c.Submit(context.Background()), &formatErr)
	assert.False(t, c.State().IsLoading)
	assert.Len(t, mockAPI.Calls, 0)
}

func TestSubmit_BackendFailure(t *testing.T) {
	tests := []struct {
		name    string
		method  summary.InputMethod
		prepare func(c *Controller)
		apiCall string
		wantMsg string
	}{
		{"文本", summary.InputText, func(c *Controller) { c.SetText("t") }, "SubmitText", TextErrorMessage},
		{"文件", summary.InputFile, func(c *Controller) { _ = c.AttachFile(api.NewBytesAttachment("a.pdf", []byte("x"))) }, "SubmitFile", FileErrorMessage},
		{"音频", summary.InputAudio, func(c *Controller) { _ = c.AttachAudio(api.NewBytesAttachment("a.wav", []byte("x"))) }, "SubmitAudio", AudioErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := &domain.SummaryResult{ID: "old", Summary: "previous"}

			mockAPI := new(mockSummarizationAPI)
			mockAPI.On(tt.apiCall, mock.Anything, mock.Anything).
				Return(nil, &api.RequestFailedError{Status: 500})

			c, _ := newTestController(mockAPI)
			c.Store().Dispatch(summary.SetResults{Results: previous})
			require.NoError(t, c.SelectInputMethod(tt.method))
			tt.prepare(c)

			require.NoError(t, c.Submit(context.Background()))
			s := c.State()
			assert.Equal(t, tt.wantMsg, s.Error)
			assert.False(t, s.IsLoading)
			assert.Same(t, previous, s.Results)
		})
	}
}

func TestErrorClearedByInput(t *testing.T) {
	mockAPI := new(mockSummarizationAPI)
	mockAPI.On("SubmitText", mock.Anything, mock.Anything).
		Return(nil, &api.NetworkError{Err: errors.New("reset")})

	c, _ := newTestController(mockAPI)
	c.SetText("a")
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, TextErrorMessage, c.State().Error)

	c.SetText("ab")
	assert.Empty(t, c.State().Error)
}

func TestSelectInputMethod(t *testing.T) {
	c, _ := newTestController(new(mockSummarizationAPI))

	c.SetText("draft")
	require.NoError(t, c.SelectInputMethod(summary.InputAudio))
	require.NoError(t, c.SelectInputMethod(summary.InputText))
	assert.Equal(t, "draft", c.State().TextInput)

	assert.ErrorIs(t, c.SelectInputMethod("VIDEO"), ErrInvalidMethod)
	assert.Equal(t, summary.InputText, c.State().InputMethod)
}

func TestReset(t *testing.T) {
	c, _ := newTestController(new(mockSummarizationAPI))
	require.NoError(t, c.SelectInputMethod(summary.InputFile))
	require.NoError(t, c.AttachFile(api.NewBytesAttachment("a.rtf", []byte("x"))))
	c.SetText("x")

	c.Reset()
	assert.Equal(t, summary.State{InputMethod: summary.InputFile}, c.State())
}

func TestReset_DuringSubmit(t *testing.T) {
	tests := []struct {
		name string
		resp *api.SummaryResponse
		err  error
	}{
		{"成功结果被丢弃", &api.SummaryResponse{ID: "old", Summary: strPtr("stale")}, nil},
		{"失败信息被丢弃", nil, &api.NetworkError{Op: api.OpSubmitText, Err: context.Canceled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := new(mockSummarizationAPI)
			c, _ := newTestController(mockAPI)

			var requestCtx context.Context
			mockAPI.On("SubmitText", mock.Anything, "old notes").
				Run(func(args mock.Arguments) {
					requestCtx = args.Get(0).(context.Context)
					c.Reset()
				}).
				Return(tt.resp, tt.err).Once()

			c.SetText("old notes")
			require.NoError(t, c.Submit(context.Background()))
			assert.Equal(t, summary.State{InputMethod: summary.InputText}, c.State())
			require.NotNil(t, requestCtx)
			assert.ErrorIs(t, requestCtx.Err(), context.Canceled)

			// 重置后可以重新提交
			mockAPI.On("SubmitText", mock.Anything, "new notes").
				Return(&api.SummaryResponse{ID: "new", Summary: strPtr("fresh")}, nil).Once()
			c.SetText("new notes")
			require.NoError(t, c.Submit(context.Background()))
			mockAPI.AssertExpectations(t)

			s := c.State()
			assert.False(t, s.IsLoading)
			require.NotNil(t, s.Results)
			assert.Equal(t, "new", s.Results.ID)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		resp *api.SummaryResponse
		want *domain.SummaryResult
	}{
		{
			name: "空响应",
			resp: nil,
			want: &domain.SummaryResult{KeyPoints: []string{}, Themes: []string{}, Recommendations: []string{}},
		},
		{
			name: "缺失字段",
			resp: &api.SummaryResponse{ID: "7", Summary: strPtr("S")},
			want: &domain.SummaryResult{ID: "7", Summary: "S", KeyPoints: []string{}, Themes: []string{}, Recommendations: []string{}},
		},
		{
			name: "完整字段",
			resp: &api.SummaryResponse{
				ID: "8", Transcript: strPtr("T"), Summary: strPtr("S"), Notes: strPtr("N"),
				KeyPoints: []string{"k"}, Themes: []string{"t"}, Recommendations: []string{"r"},
			},
			want: &domain.SummaryResult{
				ID: "8", Transcript: "T", Summary: "S", Notes: "N",
				KeyPoints: []string{"k"}, Themes: []string{"t"}, Recommendations: []string{"r"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.resp))
		})
	}
}

func TestDownloadPDF(t *testing.T) {
	dir := t.TempDir()
	pdf := []byte("%PDF-1.4 test")

	mockAPI := new(mockSummarizationAPI)
	mockAPI.On("DownloadPDF", mock.Anything, "42").Return(pdf, nil)

	c, alerts := newTestController(mockAPI)
	path, err := c.DownloadPDF(context.Background(), "42", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summary-42.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdf, data)
	assert.Empty(t, alerts.messages)

	// 临时文件已清理
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadPDF_Failure(t *testing.T) {
	dir := t.TempDir()

	mockAPI := new(mockSummarizationAPI)
	mockAPI.On("DownloadPDF", mock.Anything, "42").
		Return(nil, &api.RequestFailedError{Op: api.OpDownloadPDF, Status: 404})

	c, alerts := newTestController(mockAPI)
	_, err := c.DownloadPDF(context.Background(), "42", dir)
	require.Error(t, err)
	assert.True(t, api.IsRequestFailed(err))
	assert.Equal(t, []string{PDFErrorMessage}, alerts.messages)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadPDF_InFlight(t *testing.T) {
	mockAPI := new(mockSummarizationAPI)
	c, _ := newTestController(mockAPI)

	release := make(chan struct{})
	started := make(chan struct{})
	mockAPI.On("DownloadPDF", mock.Anything, "42").
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]byte("pdf"), nil).Once()

	dir := t.TempDir()
	done := make(chan error, 1)
	go func() {
		_, err := c.DownloadPDF(context.Background(), "42", dir)
		done <- err
	}()

	<-started
	_, err := c.DownloadPDF(context.Background(), "42", dir)
	assert.ErrorIs(t, err, ErrDownloadRunning)

	close(release)
	assert.NoError(t, <-done)
	mockAPI.AssertNumberOfCalls(t, "DownloadPDF", 1)
}

func TestPDFFileName(t *testing.T) {
	assert.Equal(t, "summary-42.pdf", PDFFileName("42"))
	assert.Equal(t, "summary-a_b.pdf", PDFFileName("a/b"))
}
