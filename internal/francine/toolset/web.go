package toolset

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/tansive/francine/internal/common/httpclient"
)

// Endpoints are the remote services the web tools talk to. Tests point them
// at httptest servers.
type Endpoints struct {
	Search      string // DuckDuckGo HTML endpoint
	AliExpress  string
	TikTok      string // tag pages are <TikTok>/<tag>
	IPAPI       string // lookups are <IPAPI>/<ip>
	WhoisServer string // host:port of the first WHOIS server queried
}

// DefaultEndpoints returns the public service addresses.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Search:      "https://html.duckduckgo.com/html/",
		AliExpress:  "https://www.aliexpress.com/wholesale",
		TikTok:      "https://www.tiktok.com/tag",
		IPAPI:       "http://ip-api.com/json",
		WhoisServer: "whois.iana.org:43",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Search == "" {
		e.Search = d.Search
	}
	if e.AliExpress == "" {
		e.AliExpress = d.AliExpress
	}
	if e.TikTok == "" {
		e.TikTok = d.TikTok
	}
	if e.IPAPI == "" {
		e.IPAPI = d.IPAPI
	}
	if e.WhoisServer == "" {
		e.WhoisServer = d.WhoisServer
	}
	return e
}

// Web fetches and parses HTML pages.
type Web struct {
	http      *httpclient.HTTPClient
	endpoints Endpoints
}

// NewWeb returns a Web using client, or a default client when nil.
func NewWeb(client *httpclient.HTTPClient, endpoints Endpoints) *Web {
	if client == nil {
		client = httpclient.NewClient(httpclient.StaticConfig{})
	}
	return &Web{http: client, endpoints: endpoints.withDefaults()}
}

func (w *Web) fetch(ctx context.Context, target string, query map[string]string) ([]byte, error) {
	data, err := w.http.DoRequest(ctx, httpclient.RequestOptions{
		Path:        target,
		QueryParams: query,
		Headers:     map[string]string{"Accept": "text/html,application/xhtml+xml,application/json"},
	})
	if err != nil {
		return nil, ErrFetchFailed.MsgErr("unable to fetch "+target, err)
	}
	return data, nil
}

func (w *Web) fetchHTML(ctx context.Context, target string, query map[string]string) (*html.Node, error) {
	data, err := w.fetch(ctx, target, query)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, ErrFetchFailed.MsgErr("unable to parse page from "+target, err)
	}
	return doc, nil
}

// SearchResult mirrors the fields a DuckDuckGo text search yields.
type SearchResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

var (
	resultSel  = mustSelector("div.result")
	titleSel   = mustSelector("a.result__a")
	snippetSel = mustSelector(".result__snippet")
)

func mustSelector(s string) selector {
	sel, err := parseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// Search returns up to limit organic results for query.
func (w *Web) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput.Msg("search query is empty")
	}
	doc, err := w.fetchHTML(ctx, w.endpoints.Search, map[string]string{"q": query})
	if err != nil {
		return nil, err
	}
	results := []SearchResult{}
	for _, n := range selectAll(doc, resultSel) {
		if len(results) >= limit {
			break
		}
		if contains(strings.Fields(attr(n, "class")), "result--ad") {
			continue
		}
		titles := selectAll(n, titleSel)
		if len(titles) == 0 {
			continue
		}
		r := SearchResult{
			Title: textContent(titles[0]),
			Href:  unwrapRedirect(attr(titles[0], "href")),
		}
		if snippets := selectAll(n, snippetSel); len(snippets) > 0 {
			r.Body = textContent(snippets[0])
		}
		results = append(results, r)
	}
	return results, nil
}

// unwrapRedirect turns //duckduckgo.com/l/?uddg=<target> links into target.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasPrefix(u.Path, "/l") {
		return target
	}
	return href
}

// ScrapeText returns the whitespace-collapsed text of every element matching
// sel on the page at target. An unmatched selector falls back to body.
func (w *Web) ScrapeText(ctx context.Context, target, sel string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidInput.Msg("not an http(s) URL: " + target)
	}
	if strings.TrimSpace(sel) == "" {
		sel = "body"
	}
	parsed, err := parseSelector(sel)
	if err != nil {
		return "", err
	}
	doc, err := w.fetchHTML(ctx, target, nil)
	if err != nil {
		return "", err
	}
	nodes := selectAll(doc, parsed)
	if len(nodes) == 0 {
		nodes = selectAll(doc, mustSelector("body"))
	}
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t := textContent(n); t != "" {
			parts = append(parts, t)
		}
	}
	return collapseSpace(strings.Join(parts, "\n")), nil
}
