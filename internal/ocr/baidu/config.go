package baidu

import (
	"net/http"
	"time"

	"github.com/Lllllllleong/figureflow/internal/ocr"
)

type Option func(*Client)

func WithClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithTimeout bounds each OCR round-trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithRetries(retries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.backoff = backoff
	}
}

func WithEncodeOptions(options ocr.EncodeOptions) Option {
	return func(c *Client) {
		c.encode = options
	}
}
