// Package cookie finds the libro.fm session cookies in the local browsers.
//
// Each browser profile is exposed as a Source. A Finder walks the sources in
// preference order and returns the first non-empty cookie set:
//
//	finder := cookie.NewFinder(nil, logger)
//	cookies, err := finder.Find(ctx, "libro.fm")
//	if errors.Is(err, model.ErrAuthenticationMissing) {
//	    // the user has to log in with a browser first
//	}
//
// Browser cookie stores are read with kooky. Tests and other callers can
// supply their own sources through Finder.Discover.
package cookie
