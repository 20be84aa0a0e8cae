// Package baidu recognizes text through an OCR web service that authenticates
// with a client-credentials access token and answers with a words_result list.
package baidu

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Lllllllleong/figureflow/internal/ocr"
)

const DefaultURL = "https://aip.baidubce.com/rest/2.0/ocr/v1/general"

var _ ocr.Recognizer = &Client{}

// Provider error codes worth retrying: service busy, QPS and internal errors.
var retryableCodes = []int{2, 18, 282000}

// Error is a failure reported by the OCR service, either as an HTTP status or
// as an error_code in an otherwise successful response.
type Error struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ocr error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ocr http %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 || slices.Contains(retryableCodes, e.Code)
}

type Client struct {
	client *http.Client

	url        string
	credential Credential

	timeout time.Duration
	retries int
	backoff time.Duration

	encode ocr.EncodeOptions
}

func New(credential Credential, options ...Option) *Client {
	c := &Client{
		client: http.DefaultClient,

		url:        DefaultURL,
		credential: credential,

		timeout: 30 * time.Second,
		retries: 3,
		backoff: 500 * time.Millisecond,

		encode: ocr.DefaultEncodeOptions(),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *Client) Recognize(ctx context.Context, img image.Image) ocr.Result {
	if !c.credential.Valid() {
		return ocr.Unavailable(ocr.ErrNoCredential)
	}

	encoded, err := ocr.Encode(img, c.encode)
	if err != nil {
		return ocr.Unavailable(err)
	}

	body := url.Values{
		"image": {base64.StdEncoding.EncodeToString(encoded.Data)},
	}.Encode()

	backoff := c.backoff

	for attempt := 0; ; attempt++ {
		text, err := c.recognize(ctx, body)

		if err == nil {
			return ocr.Recognized(text)
		}

		var oerr *Error
		if !errors.As(err, &oerr) || !oerr.Temporary() || attempt >= c.retries {
			return ocr.Unavailable(err)
		}

		slog.Warn("OCR request failed, will retry.", "attempt", attempt+1, "maxRetries", c.retries, "backoff", backoff.String(), "error", err)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ocr.Unavailable(ctx.Err())
		}
	}
}

func (c *Client) recognize(ctx context.Context, body string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid ocr url: %w", err)
	}

	query := u.Query()
	query.Set("access_token", c.credential.AccessToken)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", convertError(resp)
	}

	var response Response

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}

	if response.ErrorCode != 0 {
		return "", &Error{StatusCode: resp.StatusCode, Code: response.ErrorCode, Message: response.ErrorMsg}
	}

	lines := make([]string, 0, len(response.WordsResult))
	for _, w := range response.WordsResult {
		lines = append(lines, w.Words)
	}

	return strings.Join(lines, "\n"), nil
}

func convertError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := strings.TrimSpace(string(data))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &Error{StatusCode: resp.StatusCode, Message: message}
}
