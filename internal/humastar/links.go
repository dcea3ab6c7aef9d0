package humastar

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// TagViewer marks Datastar endpoints; they get no hypermedia links.
const TagViewer = "viewer"

// Action is a state-dependent hypermedia action link, e.g.
//
//	<url>; rel="delete"; method="DELETE"; title="Delete area"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies that offer actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// Links holds RFC 8288 headers derived from the registered routes.
type Links struct {
	mu sync.RWMutex
	m  map[string][]string
}

// NewLinks creates an empty link table.
func NewLinks() *Links {
	return &Links{m: map[string][]string{}}
}

// Discover walks the OpenAPI paths and links items to their collection,
// collections to their items, and the /health entry point to every
// collection. Call after all routes are registered.
func (l *Links) Discover(api huma.API) {
	oapi := api.OpenAPI()

	var collections, items []string
	for p, pi := range oapi.Paths {
		if hasTag(pi, TagViewer) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.m = map[string][]string{}

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(parent, item, "item")
		}
	}
	for _, coll := range collections {
		if coll == "/health" {
			continue
		}
		l.add(coll, "/health", "up")
		l.add("/health", coll, lastSegment(coll))
	}
	l.add("/health", "/openapi.json", "service-desc")
	l.add("/health", "/docs", "service-doc")
}

// For returns the headers registered for an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.m[opPath]...)
}

// Transformer injects Link headers: discovered relations, a self link
// for item endpoints, pagination and response actions.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range l.m[from] {
		if existing == val {
			return
		}
	}
	l.m[from] = append(l.m[from], val)
}

func hasTag(pi *huma.PathItem, tag string) bool {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op == nil {
			continue
		}
		for _, t := range op.Tags {
			if t == tag {
				return true
			}
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}
