package voice

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-anomaly-service/internal/platform/httpclient"
)

func testHTTP() *httpclient.Client {
	return httpclient.New(httpclient.Options{Timeout: 2 * time.Second, RequestsPerSec: 100, MaxRetries: 1, MaxRetryTimeout: time.Second})
}

func TestSpeak_WritesClip(t *testing.T) {
	audio := []byte("ID3-fake-mp3")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req t2aRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "speech-2.8-turbo", req.Model)
		assert.Equal(t, "hex", req.OutputFormat)
		assert.Equal(t, "Demogorgon sighted.", req.Text)
		assert.Equal(t, "English_expressive_narrator", req.VoiceSetting.VoiceID)
		assert.Equal(t, 32000, req.AudioSetting.SampleRate)
		assert.Equal(t, "mp3", req.AudioSetting.Format)

		_, _ = w.Write([]byte(`{"data":{"audio":"` + hex.EncodeToString(audio) + `"},"base_resp":{"status_code":0,"status_msg":"success"}}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	c := NewClient("key", server.URL, dir, true, testHTTP())

	clip, err := c.Speak(context.Background(), "  Demogorgon sighted.  ")

	require.NoError(t, err)
	assert.Equal(t, audio, clip.Audio)
	assert.True(t, strings.HasPrefix(clip.Path, dir))
	assert.True(t, strings.HasSuffix(clip.Path, ".mp3"))
	saved, err := os.ReadFile(clip.Path)
	require.NoError(t, err)
	assert.Equal(t, audio, saved)
}

func TestSynthesize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base_resp":{"status_code":1004,"status_msg":"auth failed"}}`))
	}))
	defer server.Close()

	c := NewClient("key", server.URL, t.TempDir(), true, testHTTP())
	_, err := c.Synthesize(context.Background(), "hello")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1004, apiErr.Code)
}

func TestSynthesize_NoAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"audio":""},"base_resp":{"status_code":0}}`))
	}))
	defer server.Close()

	c := NewClient("key", server.URL, t.TempDir(), true, testHTTP())
	_, err := c.Synthesize(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestSynthesize_Disabled(t *testing.T) {
	_, err := NewClient("", "", "", true, nil).Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewClient("key", "", "", false, nil).Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewClient("key", "", "", true, nil).Synthesize(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestBuildText(t *testing.T) {
	assert.Equal(t, "abc", BuildText("  abc\n"))

	long := strings.Repeat("ж", MaxTextRunes+20)
	got := BuildText(long)
	assert.Equal(t, MaxTextRunes, len([]rune(got)))
}
