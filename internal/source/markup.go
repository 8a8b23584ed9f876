package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// NodeSelector locates an element in the parsed HTML tree: the Pos-th
// element with tag Tag whose attribute Attr contains Val as a whitespace
// separated token. An empty Attr matches every element with the tag.
type NodeSelector struct {
	Tag  string
	Attr string
	Val  string
	Pos  int
}

// Locator finds the price text in a page. Exactly one of Selector or
// Pattern is used; Pattern wins when both are set. A Pattern with a capture
// group yields the first group, otherwise the whole match.
type Locator struct {
	Selector NodeSelector
	Pattern  string
}

// MarkupConfig configures a scraped HTML/text page.
type MarkupConfig struct {
	Source   domain.SourceConfig
	URL      string
	Header   http.Header
	Locator  Locator
	Unit     domain.Unit
	Currency string
}

// MarkupSource scrapes a server-rendered page.
type MarkupSource struct {
	cfg     MarkupConfig
	client  HTTPClient
	pattern *regexp.Regexp
	tag     atom.Atom
	now     func() time.Time
}

func NewMarkupSource(cfg MarkupConfig, hc HTTPClient) (*MarkupSource, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	s := &MarkupSource{cfg: cfg, client: hc, now: time.Now}
	if cfg.Locator.Pattern != "" {
		re, err := regexp.Compile(cfg.Locator.Pattern)
		if err != nil {
			return nil, fmt.Errorf("source %s: compile pattern: %w", cfg.Source.ID, err)
		}
		s.pattern = re
		return s, nil
	}
	s.tag = atom.Lookup([]byte(strings.ToLower(cfg.Locator.Selector.Tag)))
	if s.tag == 0 {
		return nil, fmt.Errorf("source %s: unknown tag %q", cfg.Source.ID, cfg.Locator.Selector.Tag)
	}
	return s, nil
}

func (s *MarkupSource) ID() string                  { return s.cfg.Source.ID }
func (s *MarkupSource) Config() domain.SourceConfig { return s.cfg.Source }

func (s *MarkupSource) Fetch(ctx context.Context) (domain.PriceQuote, error) {
	ctx, cancel := attemptContext(ctx, s.cfg.Source)
	defer cancel()

	body, err := get(ctx, s.client, s.ID(), s.cfg.URL, s.cfg.Header)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	text, err := s.locate(body)
	if err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(s.ID(), domain.KindParseFailure, err)
	}
	value, err := ExtractNumber(text)
	if err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(s.ID(), domain.KindParseFailure, err)
	}
	return newQuote(s.cfg.Source, value, 0, s.cfg.Unit, s.cfg.Currency, s.now)
}

func (s *MarkupSource) locate(body []byte) (string, error) {
	if s.pattern != nil {
		m := s.pattern.FindSubmatch(body)
		if m == nil {
			return "", fmt.Errorf("%w: pattern %q", domain.ErrLocatorNoMatch, s.pattern.String())
		}
		if len(m) > 1 {
			return string(m[1]), nil
		}
		return string(m[0]), nil
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	sel := s.cfg.Locator.Selector
	nodes := findNodes(doc, s.tag, sel.Attr, sel.Val)
	if sel.Pos < 0 || sel.Pos >= len(nodes) {
		return "", fmt.Errorf("%w: <%s %s=%q>[%d], found %d", domain.ErrLocatorNoMatch, sel.Tag, sel.Attr, sel.Val, sel.Pos, len(nodes))
	}
	return nodeText(nodes[sel.Pos]), nil
}

func findNodes(root *html.Node, tag atom.Atom, attr, val string) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag && hasAttr(n, attr, val) {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return nodes
}

func hasAttr(n *html.Node, attr, val string) bool {
	if attr == "" {
		return true
	}
	for _, a := range n.Attr {
		if a.Key != attr {
			continue
		}
		if a.Val == val {
			return true
		}
		for _, tok := range strings.Fields(a.Val) {
			if tok == val {
				return true
			}
		}
	}
	return false
}

// nodeText concatenates every text node below n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

var _ Source = (*MarkupSource)(nil)
