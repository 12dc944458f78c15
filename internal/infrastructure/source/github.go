package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/infrastructure/config"
)

const maxBodySize = 32 << 20

// GitHub lists items through the contents API and fetches them from the raw
// host.
type GitHub struct {
	apiBase   string
	rawBase   string
	token     string
	userAgent string
	pageSize  int
	client    *http.Client
	logger    logrus.FieldLogger
}

// NewGitHub builds a GitHub source from the source config section.
func NewGitHub(cfg config.SourceConfig, client *http.Client, logger logrus.FieldLogger) *GitHub {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &GitHub{
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		rawBase:   strings.TrimRight(cfg.RawBase, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		pageSize:  pageSize,
		client:    client,
		logger:    logger,
	}
}

type contentItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// List pages through the directory listing until a page comes back short.
// It returns repository paths of files carrying the collection extension,
// sorted.
func (g *GitHub) List(ctx context.Context, col entity.Collection) ([]string, error) {
	var out []string
	ext := col.ItemExtension()
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(g.pageSize))
		q.Set("page", strconv.Itoa(page))
		if col.Ref != "" {
			q.Set("ref", col.Ref)
		}
		endpoint := fmt.Sprintf("%s/repos/%s/contents/%s?%s", g.apiBase, col.Repo, escapePath(col.Path), q.Encode())

		body, err := g.get(ctx, endpoint, "application/vnd.github+json")
		if err != nil {
			return nil, fmt.Errorf("list %s/%s page %d: %w", col.Repo, col.Path, page, err)
		}
		var items []contentItem
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode listing %s/%s: %w", col.Repo, col.Path, err)
		}
		for _, it := range items {
			if it.Type == "file" && strings.HasSuffix(it.Name, ext) {
				out = append(out, it.Path)
			}
		}
		g.logger.WithFields(logrus.Fields{"repo": col.Repo, "page": page, "entries": len(items)}).Debug("listed page")
		if len(items) < g.pageSize {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

// Fetch downloads one item. A 404 yields entity.ErrSourceNotFound.
func (g *GitHub) Fetch(ctx context.Context, col entity.Collection, itemPath string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s", g.rawBase, col.Repo, col.RefOrDefault(), escapePath(itemPath))
	body, err := g.get(ctx, endpoint, "")
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", itemPath, err)
	}
	return string(body), nil
}

func (g *GitHub) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	started := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	g.logger.WithFields(logrus.Fields{
		"url":      endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("http get")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", entity.ErrSourceNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &HTTPError{URL: endpoint, Status: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(path.Clean("/"+p), "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
