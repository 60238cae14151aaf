package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
)

// ErrNoArticle is returned when a page has no readable text
var ErrNoArticle = errors.New("no article text found")

// ErrNotHTML is returned when the response is not an HTML document
var ErrNotHTML = errors.New("response is not HTML")

// minParagraphLen filters navigation crumbs and captions out of paragraph extraction
const minParagraphLen = 40

// Article is the readable content of a news page
type Article struct {
	URL       string
	Title     string
	Body      string
	Subject   string // Title, or a readable form of the URL slug
	Truncated bool
}

// Text joins title and body the way training documents are joined
func (a *Article) Text() string {
	if a.Title == "" {
		return a.Body
	}
	return a.Title + " " + a.Body
}

// Extract pulls the headline and body paragraphs out of an HTML page.
// Body preference: paragraphs inside <article>, then all long paragraphs, then visible body text.
func Extract(rawHTML, pageURL string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template, iframe, svg, nav, header, footer, aside, form").Remove()

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = collapse(doc.Find("title").First().Text())
	}

	body := paragraphs(doc.Find("article p"), 1)
	if body == "" {
		body = paragraphs(doc.Find("p"), minParagraphLen)
	}
	if body == "" {
		if node := doc.Find("body").Nodes; len(node) > 0 {
			body = collapse(visibleText(node[0]))
		}
	}
	if body == "" && title == "" {
		return nil, ErrNoArticle
	}

	subject := title
	if subject == "" {
		subject = SubjectFromURL(pageURL)
	}
	return &Article{URL: pageURL, Title: title, Body: body, Subject: subject}, nil
}

func paragraphs(sel *goquery.Selection, minLen int) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); len(t) >= minLen {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// visibleText walks the node tree collecting text nodes
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SubjectFromURL turns the last path segment into a readable subject
// ("/2017/12/senate-passes-tax-bill.html" -> "senate passes tax bill")
func SubjectFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimSuffix(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return u.Hostname()
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	if decoded, err := url.PathUnescape(seg); err == nil {
		seg = decoded
	}
	seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	return collapse(seg)
}

// checkHTML rejects bodies that neither declare nor sniff as HTML
func checkHTML(p *Page) error {
	ct := strings.ToLower(p.ContentType)
	if strings.Contains(ct, "html") {
		return nil
	}
	for m := mimetype.Detect([]byte(p.HTML)); m != nil; m = m.Parent() {
		if m.Is("text/html") || m.Is("application/xhtml+xml") {
			return nil
		}
	}
	if ct == "" {
		ct = mimetype.Detect([]byte(p.HTML)).String()
	}
	return fmt.Errorf("%w (%s)", ErrNotHTML, ct)
}
