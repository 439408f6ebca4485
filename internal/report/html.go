package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/researchflow/internal/models"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

const pageStyle = `body{font-family:-apple-system,Helvetica,Arial,sans-serif;max-width:56rem;margin:2rem auto;padding:0 1rem;line-height:1.5}
table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.3rem .6rem}blockquote{color:#555}`

func renderHTML(s models.Snapshot) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(buildMarkdown(s)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>Research Report: %s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(s.Request.Subject), pageStyle)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
