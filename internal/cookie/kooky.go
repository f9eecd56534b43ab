package cookie

import (
	"context"
	"net/http"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register cookie store finders
)

// storeSource adapts a kooky cookie store to Source.
type storeSource struct {
	store kooky.CookieStore
}

// BrowserSources returns one Source per cookie store found on this machine.
func BrowserSources() []Source {
	stores := kooky.FindAllCookieStores()
	sources := make([]Source, 0, len(stores))
	for _, store := range stores {
		sources = append(sources, &storeSource{store: store})
	}
	return sources
}

func (s *storeSource) Browser() string {
	return s.store.Browser()
}

func (s *storeSource) IsDefaultProfile() bool {
	return s.store.IsDefaultProfile()
}

func (s *storeSource) Cookies(ctx context.Context, domain string) ([]*http.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := s.store.ReadCookies(kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil && len(found) == 0 {
		return nil, err
	}

	cookies := make([]*http.Cookie, 0, len(found))
	for _, c := range found {
		if !InDomain(c.Domain, domain) {
			continue
		}
		hc := c.Cookie
		cookies = append(cookies, &hc)
	}
	return cookies, nil
}

func (s *storeSource) Close() error {
	return s.store.Close()
}
