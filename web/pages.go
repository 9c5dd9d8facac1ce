package web

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

func esc(s string) string {
	return templ.EscapeString(s)
}

type navItem struct {
	Path  string
	Name  string
	Label string
}

var navItems = []navItem{
	{Path: "/", Name: "home", Label: "Home"},
	{Path: "/about", Name: "about", Label: "About"},
	{Path: "/demo", Name: "demo", Label: "Demo"},
	{Path: "/components", Name: "components", Label: "Components"},
}

type layoutParams struct {
	Title     string
	Current   string
	CSRFToken string
	// Integrity maps asset URL paths to SRI values.
	Integrity map[string]string
}

func htmlComponent(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func layout(p layoutParams, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		b.WriteString("<meta charset=\"utf-8\">\n")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		fmt.Fprintf(&b, "<title>%s | IronPage</title>\n", esc(p.Title))
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"/static/css/app.css\" integrity=\"%s\">\n",
			esc(p.Integrity["/static/css/app.css"]))
		fmt.Fprintf(&b, "<script src=\"/static/js/app.js\" integrity=\"%s\" defer></script>\n",
			esc(p.Integrity["/static/js/app.js"]))
		b.WriteString("</head>\n")
		fmt.Fprintf(&b, "<body data-csrf-token=\"%s\">\n<nav>\n", esc(p.CSRFToken))
		for _, item := range navItems {
			class := ""
			if item.Name == p.Current {
				class = ` class="active" aria-current="page"`
			}
			fmt.Fprintf(&b, "<a href=\"%s\"%s>%s</a>\n", item.Path, class, esc(item.Label))
		}
		b.WriteString("</nav>\n<main>\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>\n<footer>Served without third-party scripts.</footer>\n</body>\n</html>\n")
		return err
	})
}

var homeContent = htmlComponent(`<h1>IronPage</h1>
<p>Server-rendered pages with HTML fragments loaded over same-origin requests.</p>
<div class="card" id="status" data-load="/partials/status-card"></div>
`)

var aboutContent = htmlComponent(`<h1>About</h1>
<p>Every response carries a strict Content-Security-Policy. Scripts are
vendored and pinned by subresource integrity hashes.</p>
<p>Sessions live in server memory and are identified by an HttpOnly,
SameSite=Strict cookie. State-changing requests must echo a CSRF token that
is bound to the session.</p>
`)

var demoContent = htmlComponent(`<h1>Demo</h1>
<p>
  <button class="btn" type="button" data-get="/partials/status-card" data-target="#status">Refresh status</button>
  <button class="btn" type="button" data-get="/partials/item-list" data-target="#items">Load items</button>
</p>
<div class="card" id="status"></div>
<div id="items"></div>
<div id="greeting" data-load="/partials/greeting"></div>
`)

var componentsContent = htmlComponent(`<h1>Components</h1>
<div class="alert alert-success" role="status">Saved.</div>
<div class="alert alert-danger" role="alert">Something went wrong.</div>
<p>
  <button class="btn" type="button">Default</button>
  <button class="btn btn-primary" type="button">Primary</button>
</p>
<div class="card"><dl><dt>Label</dt><dd>Value</dd></dl></div>
`)

func statusCard(activeSessions int, uptime time.Duration) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<dl id="status-card">
  <dt>Active sessions</dt><dd>%d</dd>
  <dt>Uptime</dt><dd>%s</dd>
</dl>
`, activeSessions, esc(uptime.Truncate(time.Second).String()))
		return err
	})
}

type item struct {
	Name        string
	Description string
}

var demoItems = []item{
	{Name: "Content-Security-Policy", Description: "Same-origin resources only, scripts pinned by hash."},
	{Name: "CSRF tokens", Description: "HMAC-signed, bound to the session, checked on every mutating request."},
	{Name: "Session cookie", Description: "HttpOnly, SameSite=Strict, sliding one hour expiry."},
	{Name: "Subresource integrity", Description: "The browser verifies vendored assets before running them."},
}

func itemList(items []item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<ul class=\"item-list\">\n")
		for _, it := range items {
			fmt.Fprintf(&b, "  <li><strong>%s</strong> %s</li>\n", esc(it.Name), esc(it.Description))
		}
		b.WriteString("</ul>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

var greetingForm = htmlComponent(`<form data-post="/partials/greeting" data-target="#greeting" action="/partials/greeting" method="post">
  <label for="greeting-name">Name</label>
  <input id="greeting-name" type="text" name="name" maxlength="64" autocomplete="off">
  <button class="btn btn-primary" type="submit">Greet</button>
</form>
`)

func greeting(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"alert alert-success\" role=\"status\">Hello, %s!</div>\n", esc(name))
		return err
	})
}
