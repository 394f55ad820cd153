package advisory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wayfarer/models"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	fetchTimeout = 30 * time.Second
	maxPageBytes = 4 << 20
	maxTextRunes = 200_000
)

// ErrHostNotAllowed is returned for URLs outside the configured advisory site.
var ErrHostNotAllowed = errors.New("advisory host not allowed")

// Extractor answers an advisory query from page text.
type Extractor interface {
	ExtractAdvisory(ctx context.Context, query models.AdvisoryQuery, page string) (string, error)
}

// Service fetches the advisory page and has the extractor answer the query.
type Service struct {
	baseURL   string
	host      string
	http      *http.Client
	extractor Extractor
	logger    *zap.Logger
}

func NewService(baseURL string, extractor Extractor, logger *zap.Logger) (*Service, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid advisory url %q", baseURL)
	}
	return &Service{
		baseURL:   baseURL,
		host:      strings.ToLower(u.Hostname()),
		http:      &http.Client{Timeout: fetchTimeout},
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Lookup returns the advisory text for the query. The critic may name a
// page on the advisory site; any other host is refused.
func (s *Service) Lookup(ctx context.Context, query models.AdvisoryQuery) (string, error) {
	target := s.baseURL
	if query.URL != "" {
		u, err := url.Parse(query.URL)
		if err != nil || !strings.EqualFold(u.Hostname(), s.host) {
			return "", fmt.Errorf("%w: %q", ErrHostNotAllowed, query.URL)
		}
		target = query.URL
	}

	text, err := s.fetchText(ctx, target)
	if err != nil {
		return "", err
	}
	s.logger.Info("Advisory page fetched", zap.String("url", target), zap.Int("chars", len(text)))
	return s.extractor.ExtractAdvisory(ctx, query, text)
}

func (s *Service) fetchText(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch advisory page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch advisory page: status %d", resp.StatusCode)
	}

	text, err := PageText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse advisory page: %w", err)
	}
	if r := []rune(text); len(r) > maxTextRunes {
		text = string(r[:maxTextRunes])
	}
	return text, nil
}

// PageText returns the visible text of an HTML document, one text block per
// line. Scripts, styles and navigation chrome are skipped.
func PageText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var (
		lines []string
		skip  int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.Join(lines, "\n"), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipped(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipped(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.Join(strings.Fields(string(z.Text())), " "); t != "" {
				lines = append(lines, t)
			}
		}
	}
}

func skipped(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "nav", "header", "footer", "svg":
		return true
	}
	return false
}
