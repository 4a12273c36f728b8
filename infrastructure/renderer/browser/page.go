package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"mermaidview/domain/core/valueobjects"
)

// BuildPage generates the HTML document rendered by the headless browser.
// The Mermaid source is inlined into a .mermaid div; the bundled script
// initializes with startOnLoad so rendering begins as soon as the script
// loads.
func BuildPage(code valueobjects.MermaidCode, config valueobjects.RenderConfig, cdnURL string) string {
	initConfig, _ := json.Marshal(config.MermaidInitConfig())

	background := config.BackgroundColor()
	if config.Transparent() {
		background = "transparent"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
  background-color: %s;
  display: flex;
  justify-content: center;
  align-items: flex-start;
  min-height: 100vh;
  padding: %dpx;
}
.mermaid { background-color: %s; }
.mermaid svg { max-width: 100%%; height: auto; }
</style>
</head>
<body>
<div class="mermaid">
%s
</div>
<script src="%s"></script>
<script>mermaid.initialize(%s);</script>
</body>
</html>`,
		background,
		config.Padding(),
		background,
		escapeCode(code.String()),
		cdnURL,
		initConfig,
	)
}

// escapeCode escapes only the characters that would break out of the div;
// Mermaid syntax needs the rest left alone.
func escapeCode(code string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(code)
}
