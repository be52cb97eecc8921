// Package assets embeds the static page shell served at "/".
package assets

import _ "embed"

//go:embed index.html
var indexHTML []byte

// Index returns the page shell. The slice is shared; do not modify it.
func Index() []byte { return indexHTML }
