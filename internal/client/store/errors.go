package store

import "errors"

var (
	// ErrUnsupportedPlatform is returned by mutation paths on build targets
	// without an embedded SQL engine (js/wasm).
	ErrUnsupportedPlatform = errors.New("local database is not supported on this platform")
)
