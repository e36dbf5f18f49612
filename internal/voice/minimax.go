// Package voice озвучивает предупреждения через MiniMax T2A и сохраняет MP3.
package voice

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/platform/httpclient"
)

const (
	DefaultURL   = "https://api.minimax.io/v1/t2a_v2"
	MaxTextRunes = 1500
)

var (
	// ErrDisabled озвучка выключена или нет ключа
	ErrDisabled = errors.New("voice: disabled")
	// ErrEmptyText нечего озвучивать
	ErrEmptyText = errors.New("voice: empty text")
	// ErrNoAudio сервис ответил без аудио
	ErrNoAudio = errors.New("voice: no audio in response")
)

type voiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
}

type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type t2aRequest struct {
	Model         string       `json:"model"`
	Text          string       `json:"text"`
	Stream        bool         `json:"stream"`
	OutputFormat  string       `json:"output_format"`
	LanguageBoost string       `json:"language_boost"`
	VoiceSetting  voiceSetting `json:"voice_setting"`
	AudioSetting  audioSetting `json:"audio_setting"`
}

type t2aResponse struct {
	Data *struct {
		Audio string `json:"audio"`
	} `json:"data"`
	BaseResp struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// APIError ненулевой status_code в base_resp
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("minimax: status %d: %s", e.Code, e.Message)
}

// Clip сохраненный аудиофайл
type Clip struct {
	Path  string
	Audio []byte
}

// Client клиент MiniMax T2A
type Client struct {
	apiKey  string
	url     string
	dir     string
	enabled bool
	http    *httpclient.Client
	logger  zerolog.Logger
}

// NewClient создает клиента; пустой url означает DefaultURL, пустой dir временный каталог
func NewClient(apiKey, url, dir string, enabled bool, http *httpclient.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if http == nil {
		http = httpclient.New(httpclient.Options{Timeout: 30 * time.Second})
	}
	return &Client{
		apiKey:  apiKey,
		url:     url,
		dir:     dir,
		enabled: enabled,
		http:    http,
		logger:  log.With().Str("component", "voice").Logger(),
	}
}

// Enabled готов ли клиент к работе
func (c *Client) Enabled() bool {
	return c.enabled && c.apiKey != ""
}

// BuildText обрезает пробелы и ограничивает длину текста для синтеза
func BuildText(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > MaxTextRunes {
		return string(r[:MaxTextRunes])
	}
	return text
}

// Synthesize возвращает MP3 для текста
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	text = BuildText(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(t2aRequest{
		Model:         "speech-2.8-turbo",
		Text:          text,
		Stream:        false,
		OutputFormat:  "hex",
		LanguageBoost: "English",
		VoiceSetting:  voiceSetting{VoiceID: "English_expressive_narrator", Speed: 1.0, Vol: 1.0, Pitch: 0},
		AudioSetting:  audioSetting{SampleRate: 32000, Bitrate: 128000, Format: "mp3", Channel: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal t2a request: %w", err)
	}

	raw, err := c.http.PostJSON(ctx, c.url, map[string]string{"Authorization": "Bearer " + c.apiKey}, body)
	if err != nil {
		return nil, fmt.Errorf("t2a request: %w", err)
	}

	var resp t2aResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode t2a response: %w", err)
	}
	if resp.BaseResp.StatusCode != 0 {
		return nil, &APIError{Code: resp.BaseResp.StatusCode, Message: resp.BaseResp.StatusMsg}
	}
	if resp.Data == nil || resp.Data.Audio == "" {
		return nil, ErrNoAudio
	}

	audio, err := hex.DecodeString(resp.Data.Audio)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return audio, nil
}

// Speak синтезирует текст и пишет MP3 в каталог клиента
func (c *Client) Speak(ctx context.Context, text string) (Clip, error) {
	audio, err := c.Synthesize(ctx, text)
	if err != nil {
		return Clip{}, err
	}

	path := filepath.Join(c.dir, fmt.Sprintf("alert-%s.mp3", uuid.NewString()))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return Clip{}, fmt.Errorf("write clip: %w", err)
	}

	c.logger.Info().Str("path", path).Int("bytes", len(audio)).Msg("Voice alert saved")
	return Clip{Path: path, Audio: audio}, nil
}
