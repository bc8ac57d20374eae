package render

import (
	"bufio"
	"net/http"
)

// StreamingRenderer renders pages to an http.ResponseWriter, flushing the
// head before the body is serialized.
type StreamingRenderer struct {
	*Renderer
	flusher http.Flusher
	w       *bufio.Writer
}

// NewStreamingRenderer creates a streaming renderer. Flushing is skipped when
// w is not an http.Flusher.
func NewStreamingRenderer(w http.ResponseWriter, config RendererConfig) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	return &StreamingRenderer{
		Renderer: NewRenderer(config),
		flusher:  flusher,
		w:        bufio.NewWriter(w),
	}
}

// RenderPage renders a complete HTML document.
func (s *StreamingRenderer) RenderPage(page PageData) error {
	if err := s.writeOpening(s.w, page); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.writeBody(s.w, page); err != nil {
		return err
	}
	return s.flush()
}

func (s *StreamingRenderer) flush() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
