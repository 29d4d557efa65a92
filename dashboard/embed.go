// Package dashboard provides the embedded landing page for Heartboard.
//
// The page is compiled into the binary with Go's embed directive and served
// by the server package at "/". It talks to the JSON API only; the service
// itself has no server-side UI logic.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the landing page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Landing page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
