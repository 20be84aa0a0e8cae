package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Lllllllleong/figureflow/internal/gcp"
	"github.com/Lllllllleong/figureflow/internal/ocr"
	"github.com/Lllllllleong/figureflow/internal/ocr/baidu"
	"github.com/Lllllllleong/figureflow/internal/ocr/tesseract"
	"github.com/Lllllllleong/figureflow/internal/ocr/vertex"
	"golang.org/x/time/rate"
)

const (
	ProviderBaidu     = "baidu"
	ProviderVertex    = "vertex"
	ProviderTesseract = "tesseract"
	ProviderNone      = "none"
)

type OCRConfig struct {
	Provider  string
	APIKey    string
	SecretKey string
	TokenURL  string
	URL       string
	Timeout   time.Duration
	QPS       float64
	Languages []string

	ProjectID      string
	VertexAIRegion string
	VertexModel    string
}

// LoadOCRConfig reads the OCR settings from the environment.
func LoadOCRConfig() OCRConfig {
	var languages []string
	for _, l := range strings.Split(gcp.GetEnv("OCR_LANGUAGE", "chi_sim+eng"), "+") {
		if l = strings.TrimSpace(l); l != "" {
			languages = append(languages, l)
		}
	}

	return OCRConfig{
		Provider:       strings.ToLower(gcp.GetEnv("OCR_PROVIDER", ProviderBaidu)),
		APIKey:         gcp.GetEnv("OCR_API_KEY", ""),
		SecretKey:      gcp.GetEnv("OCR_SECRET_KEY", ""),
		TokenURL:       gcp.GetEnv("OCR_TOKEN_URL", baidu.DefaultTokenURL),
		URL:            gcp.GetEnv("OCR_URL", baidu.DefaultURL),
		Timeout:        gcp.GetEnvDuration("OCR_TIMEOUT", 30*time.Second),
		QPS:            gcp.GetEnvFloat("OCR_QPS", 2),
		Languages:      languages,
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:    gcp.GetEnv("OCR_MODEL", gcp.DefaultOCRModel),
	}
}

// NewRecognizer builds the configured OCR provider. Missing or rejected
// credentials do not fail startup: the returned recognizer reports every call
// as unavailable and extraction continues without OCR. The returned close
// function releases provider resources.
func NewRecognizer(ctx context.Context, cfg OCRConfig) (ocr.Recognizer, func() error, error) {
	noop := func() error { return nil }
	logCtx := slog.With("ocrProvider", cfg.Provider)

	var r ocr.Recognizer
	closeFn := noop

	switch cfg.Provider {
	case ProviderNone, "":
		logCtx.Info("OCR disabled by configuration.")
		return ocr.Disabled{Cause: ocr.ErrDisabled}, noop, nil

	case ProviderBaidu:
		if cfg.APIKey == "" || cfg.SecretKey == "" {
			logCtx.Warn("OCR credentials not configured, OCR disabled.")
			return ocr.Disabled{Cause: ocr.ErrNoCredential}, noop, nil
		}
		httpClient := &http.Client{Timeout: cfg.Timeout}
		cred, err := baidu.Exchange(ctx, httpClient, cfg.TokenURL, cfg.APIKey, cfg.SecretKey)
		if err != nil {
			logCtx.Error("Failed to obtain OCR access token, OCR disabled.", "error", err)
			return ocr.Disabled{Cause: fmt.Errorf("%w: %v", ocr.ErrNoCredential, err)}, noop, nil
		}
		r = baidu.New(cred, baidu.WithClient(httpClient), baidu.WithURL(cfg.URL), baidu.WithTimeout(cfg.Timeout))

	case ProviderVertex:
		vc, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexModel)
		if err != nil {
			logCtx.Error("Failed to create Vertex AI client, OCR disabled.", "error", err)
			return ocr.Disabled{Cause: fmt.Errorf("%w: %v", ocr.ErrNoCredential, err)}, noop, nil
		}
		r = vertex.New(vc.OCRModel, gcp.OCRUserPrompt, vertex.WithTimeout(cfg.Timeout))
		closeFn = vc.Close

	case ProviderTesseract:
		tc, err := tesseract.New(cfg.Languages...)
		if err != nil {
			if errors.Is(err, tesseract.ErrNotEnabled) {
				logCtx.Warn("Tesseract not compiled in, OCR disabled.")
				return ocr.Disabled{Cause: err}, noop, nil
			}
			return nil, nil, fmt.Errorf("failed to create tesseract client: %w", err)
		}
		r = tc
		closeFn = tc.Close

	default:
		return nil, nil, fmt.Errorf("unknown OCR_PROVIDER %q", cfg.Provider)
	}

	if cfg.QPS > 0 {
		r = ocr.NewLimited(rate.NewLimiter(rate.Limit(cfg.QPS), 1), r)
	}
	logCtx.Info("OCR recognizer ready.", "qps", cfg.QPS)
	return r, closeFn, nil
}
