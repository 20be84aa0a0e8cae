package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lllllllleong/figureflow/internal/ocr"
	"github.com/Lllllllleong/figureflow/internal/services"

	"github.com/stretchr/testify/require"
)

func TestNewRecognizerNone(t *testing.T) {
	r, closeFn, err := services.NewRecognizer(context.Background(), services.OCRConfig{Provider: services.ProviderNone})
	require.NoError(t, err)
	defer closeFn()

	res := r.Recognize(context.Background(), blankPage(10, 10))
	require.False(t, res.OK())
	require.ErrorIs(t, res.Err, ocr.ErrDisabled)
}

func TestNewRecognizerUnknownProvider(t *testing.T) {
	_, _, err := services.NewRecognizer(context.Background(), services.OCRConfig{Provider: "abbyy"})
	require.ErrorContains(t, err, "abbyy")
}

func TestNewRecognizerBaiduMissingCredentials(t *testing.T) {
	r, _, err := services.NewRecognizer(context.Background(), services.OCRConfig{Provider: services.ProviderBaidu})
	require.NoError(t, err, "missing credentials degrade instead of failing")

	res := r.Recognize(context.Background(), blankPage(10, 10))
	require.ErrorIs(t, res.Err, ocr.ErrNoCredential)
	require.Empty(t, res.String())
}

func TestNewRecognizerBaiduRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_client",
			"error_description": "unknown client id",
		})
	}))
	defer server.Close()

	r, _, err := services.NewRecognizer(context.Background(), services.OCRConfig{
		Provider:  services.ProviderBaidu,
		APIKey:    "key",
		SecretKey: "secret",
		TokenURL:  server.URL,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)

	res := r.Recognize(context.Background(), blankPage(10, 10))
	require.ErrorIs(t, res.Err, ocr.ErrNoCredential)
}

func TestNewRecognizerBaidu(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 2592000})
	})
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "tok" {
			_ = json.NewEncoder(w).Encode(map[string]any{"error_code": 110, "error_msg": "Access token invalid"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"words_result_num": 2,
			"words_result":     []map[string]string{{"words": "图1 结构"}, {"words": "示意"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r, closeFn, err := services.NewRecognizer(context.Background(), services.OCRConfig{
		Provider:  services.ProviderBaidu,
		APIKey:    "key",
		SecretKey: "secret",
		TokenURL:  server.URL + "/token",
		URL:       server.URL + "/ocr",
		Timeout:   5 * time.Second,
		QPS:       50,
	})
	require.NoError(t, err)
	defer closeFn()

	res := r.Recognize(context.Background(), blankPage(20, 20))
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	require.Equal(t, "图1 结构\n示意", res.Text)
}

func TestPipelineConfigValidate(t *testing.T) {
	valid := services.PipelineConfig{DPI: 300, Workers: 4, MinFigureArea: 90000}
	require.NoError(t, valid.Validate())

	for name, cfg := range map[string]services.PipelineConfig{
		"dpi":     {DPI: 0, Workers: 4},
		"workers": {DPI: 300, Workers: 0},
		"area":    {DPI: 300, Workers: 4, MinFigureArea: -1},
	} {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPipelineConfigFromEnv(t *testing.T) {
	t.Setenv("RENDER_DPI", "150")
	t.Setenv("WORKERS", "3")
	t.Setenv("MIN_FIGURE_AREA", "1000")
	t.Setenv("OCR_PROVIDER", "None")
	t.Setenv("OCR_QPS", "0.5")
	t.Setenv("OCR_LANGUAGE", "chi_sim+eng")

	cfg := services.LoadPipelineConfig()
	require.Equal(t, 150, cfg.DPI)
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 1000, cfg.MinFigureArea)
	require.Equal(t, services.ProviderNone, cfg.OCR.Provider)
	require.Equal(t, 0.5, cfg.OCR.QPS)
	require.Equal(t, []string{"chi_sim", "eng"}, cfg.OCR.Languages)
}
