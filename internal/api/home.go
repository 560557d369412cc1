package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"income-predictor/internal/features"
)

//go:embed templates/index.html
var templateFS embed.FS

var homeTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type homeField struct {
	Name    string
	Options []string
}

type homeData struct {
	Version string
	Fields  []homeField
}

// renderHome executes the form template once; the vocabulary never
// changes while the server runs.
func renderHome(svc *Service) ([]byte, error) {
	vocab := svc.Vocabulary()
	data := homeData{Version: svc.Info().Version}
	for _, f := range features.EncodedFields {
		data.Fields = append(data.Fields, homeField{Name: f, Options: vocab[f]})
	}

	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render home page: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.home)
}
