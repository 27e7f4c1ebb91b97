package summarization

import (
	"testing"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/stretchr/testify/assert"
)

func TestValidateAttachment(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		file    string
		wantErr bool
	}{
		{"文本文件", KindFile, "notes.txt", false},
		{"大写扩展名", KindFile, "NOTES.PDF", false},
		{"docx", KindFile, "report.docx", false},
		{"rtf", KindFile, "report.rtf", false},
		{"doc", KindFile, "report.doc", false},
		{"图片", KindFile, "photo.png", true},
		{"无扩展名", KindFile, "README", true},
		{"音频当作文档", KindFile, "session.mp3", true},
		{"mp3", KindAudio, "session.mp3", false},
		{"wav", KindAudio, "session.wav", false},
		{"m4a", KindAudio, "session.m4a", false},
		{"ogg", KindAudio, "session.ogg", false},
		{"flac", KindAudio, "session.flac", true},
		{"文档当作音频", KindAudio, "notes.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttachment(tt.kind, api.NewBytesAttachment(tt.file, []byte("x")))
			if tt.wantErr {
				var formatErr *UnsupportedFormatError
				assert.ErrorAs(t, err, &formatErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAttachment_Nil(t *testing.T) {
	assert.Error(t, ValidateAttachment(KindFile, nil))
}

func TestAcceptedExtensions(t *testing.T) {
	assert.Equal(t, []string{".doc", ".docx", ".pdf", ".rtf", ".txt"}, AcceptedExtensions(KindFile))
	assert.Equal(t, []string{".m4a", ".mp3", ".ogg", ".wav"}, AcceptedExtensions(KindAudio))
}

func TestMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"audio/m4a", "audio/x-m4a"}, MIMETypes(KindAudio, ".M4A"))
	assert.Equal(t, []string{"application/msword"}, MIMETypes(KindFile, ".doc"))
	assert.Empty(t, MIMETypes(KindFile, ".exe"))
}
