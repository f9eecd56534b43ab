package cookie

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/handiism/libro-downloader/internal/model"
)

// DefaultBrowsers is the browser preference order used when none is configured.
var DefaultBrowsers = []string{
	"chrome",
	"chromium",
	"brave",
	"edge",
	"vivaldi",
	"opera",
	"firefox",
	"librewolf",
	"safari",
}

// Source is one browser profile that may hold cookies.
type Source interface {
	// Browser returns the browser name, e.g. "firefox".
	Browser() string

	// IsDefaultProfile reports whether this is the browser's default profile.
	IsDefaultProfile() bool

	// Cookies returns the unexpired cookies whose domain ends with domain.
	Cookies(ctx context.Context, domain string) ([]*http.Cookie, error)
}

// Finder locates session cookies across the available sources.
type Finder struct {
	// Discover lists the sources to search. Sources implementing io.Closer
	// are closed once Find returns.
	Discover func() []Source

	// Browsers is the preference order. Sources whose browser is not listed
	// are tried last.
	Browsers []string

	logger *zap.Logger
}

// NewFinder creates a Finder over the local browser cookie stores.
// A nil or empty browsers list selects DefaultBrowsers.
func NewFinder(browsers []string, logger *zap.Logger) *Finder {
	if len(browsers) == 0 {
		browsers = DefaultBrowsers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{
		Discover: BrowserSources,
		Browsers: browsers,
		logger:   logger,
	}
}

// Find returns the first non-empty set of cookies for domain.
// A source that fails or holds no cookies is skipped. If no source yields
// cookies, Find returns model.ErrAuthenticationMissing.
func (f *Finder) Find(ctx context.Context, domain string) ([]*http.Cookie, error) {
	logger := f.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sources := f.Discover()
	defer closeAll(sources)

	for _, src := range Sort(sources, f.Browsers) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cookies, err := src.Cookies(ctx, domain)
		if err != nil {
			logger.Debug("cookie source failed",
				zap.String("browser", src.Browser()),
				zap.Error(err))
			continue
		}
		if len(cookies) == 0 {
			continue
		}

		logger.Info("using browser cookies",
			zap.String("browser", src.Browser()),
			zap.Bool("default_profile", src.IsDefaultProfile()),
			zap.Int("count", len(cookies)))
		return cookies, nil
	}

	return nil, model.ErrAuthenticationMissing
}

// Sort orders sources by their browser's position in browsers, default
// profiles first within a browser. Unknown browsers keep their relative
// order at the end. The input slice is not modified.
func Sort(sources []Source, browsers []string) []Source {
	rank := func(s Source) int {
		name := strings.ToLower(s.Browser())
		for i, b := range browsers {
			if strings.ToLower(b) == name {
				return i
			}
		}
		return len(browsers)
	}

	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(a, b Source) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		switch {
		case a.IsDefaultProfile() && !b.IsDefaultProfile():
			return -1
		case !a.IsDefaultProfile() && b.IsDefaultProfile():
			return 1
		}
		return 0
	})
	return sorted
}

// InDomain reports whether a cookie domain is domain itself or one of its
// subdomains. A plain suffix match would also accept "notlibro.fm".
func InDomain(cookieDomain, domain string) bool {
	cookieDomain = strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	return cookieDomain == domain || strings.HasSuffix(cookieDomain, "."+domain)
}

func closeAll(sources []Source) {
	for _, s := range sources {
		if c, ok := s.(io.Closer); ok {
			c.Close()
		}
	}
}
