// Package render serializes dom trees to HTML.
//
// Text and attribute values are escaped, void elements have no closing tag
// and the content of script and style elements is written verbatim.
//
// # Basic Usage
//
//	r := render.NewRenderer(render.RendererConfig{})
//	html, err := r.RenderToString(node)
//
// # Live Mode
//
// With IDs set every element carries its node ID in a data-tal-id attribute,
// and with Comments set binding markers are kept. The live server renders
// pages and html patches this way so the client can address elements:
//
//	r := render.NewRenderer(render.RendererConfig{IDs: true, Comments: true})
//	err := r.RenderPage(w, render.PageData{Body: doc, SessionID: id})
//
// StreamingRenderer flushes the head before the body for faster first paint.
package render
