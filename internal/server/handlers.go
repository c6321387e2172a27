package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/internal/imageload"
	"github.com/ericlevine/zxscan/internal/report"
	"github.com/ericlevine/zxscan/scanner"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// DecodeResponse is the body of POST /decode. Results is empty, never
// null, when nothing was found; Error then says why.
type DecodeResponse struct {
	Results []report.Entry `json:"results"`
	Error   string         `json:"error,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeHandler accepts an image either as the "image" field of a
// multipart form or as the raw request body. Query parameters formats,
// try_harder, pure_barcode, also_inverted and multi override the
// configured decode settings for this request.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	data, err := s.readUpload(r)
	if err != nil {
		if tooLarge(err) {
			writeError(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	dc, multiple, err := requestDecodeConfig(s.decode, r.URL.Query())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := dc.Options()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := imageload.Decode(bytes.NewReader(data), s.decode.MaxDimension)
	if err != nil {
		writeError(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	reader := s.newReader(opts)
	entries, err := s.decodeImage(reader, img, multiple, "http")
	if err != nil {
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	resp := DecodeResponse{Results: entries}
	if len(entries) == 0 {
		resp.Error = failureText(reader.LastErr())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, errors.New("no image provided")
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		if tooLarge(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse form data: %w", err)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("no image file provided")
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(file)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// requestDecodeConfig applies query overrides to base.
func requestDecodeConfig(base config.DecodeConfig, q url.Values) (config.DecodeConfig, bool, error) {
	dc := base
	if v := q.Get("formats"); v != "" {
		dc.Formats = strings.Split(v, ",")
	}
	flags := []struct {
		name string
		dst  *bool
	}{
		{"try_harder", &dc.TryHarder},
		{"pure_barcode", &dc.PureBarcode},
		{"also_inverted", &dc.AlsoInverted},
	}
	for _, f := range flags {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return dc, false, fmt.Errorf("%s: %q is not a boolean", f.name, v)
		}
		*f.dst = b
	}

	multiple := false
	if v := q.Get("multi"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return dc, false, fmt.Errorf("multi: %q is not a boolean", v)
		}
		multiple = b
	}
	return dc, multiple, nil
}

// decodeImage runs reader over img and converts what it finds. A decoder
// panic on hostile input comes back as an error.
func (s *Server) decodeImage(reader *scanner.BarcodeReader, img image.Image, multiple bool, source string) (entries []report.Entry, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("decoder panic", "panic", p, "source", source)
			entries, err = nil, fmt.Errorf("decoder panic: %v", p)
		}
		outcome := "found"
		switch {
		case err != nil:
			outcome = "error"
		case len(entries) == 0:
			outcome = "none"
		}
		decodesTotal.WithLabelValues(source, outcome).Inc()
		decodeDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	var results []*zxscan.Result
	if multiple {
		results, err = reader.DecodeMultiple(zxscan.NewImageSource(img))
	} else {
		var res *zxscan.Result
		res, err = reader.DecodeImage(img)
		if res != nil {
			results = []*zxscan.Result{res}
		}
	}
	if err != nil {
		return nil, err
	}

	entries = make([]report.Entry, 0, len(results))
	for _, res := range results {
		symbolsDecoded.WithLabelValues(res.Format.String()).Inc()
		entries = append(entries, report.FromResult("", res, s.parsers))
	}
	return entries, nil
}

func failureText(err error) string {
	if err == nil {
		return zxscan.ErrNotFound.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, DecodeResponse{Results: []report.Entry{}, Error: message})
}
