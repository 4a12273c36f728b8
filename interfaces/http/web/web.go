// Package web embeds the browser editor page served at the root path.
package web

import "embed"

//go:embed index.html
var content embed.FS

// Index returns the editor page
func Index() []byte {
	data, err := content.ReadFile("index.html")
	if err != nil {
		// The file is embedded at build time; failure here is a build defect.
		panic(err)
	}
	return data
}
