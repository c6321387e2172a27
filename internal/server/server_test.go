package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	qrenc "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericlevine/zxscan/internal/config"
)

// decoded mirrors the parts of report.Entry the tests look at.
type decoded struct {
	Text   string `json:"text"`
	Format string `json:"format"`
	Parsed *struct {
		Type    string `json:"type"`
		Display string `json:"display"`
	} `json:"parsed"`
}

type decodeBody struct {
	Results []decoded `json:"results"`
	Error   string    `json:"error"`
}

type scanReply struct {
	Type    string    `json:"type"`
	Frame   int       `json:"frame"`
	Results []decoded `json:"results"`
	Error   string    `json:"error"`
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := NewServer(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return s
}

func qrPNG(t *testing.T, content string) []byte {
	t.Helper()
	data, err := qrenc.Encode(content, qrenc.Medium, 256)
	require.NoError(t, err)
	return data
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "upload.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func readDecodeBody(t *testing.T, w *httptest.ResponseRecorder) decodeBody {
	t.Helper()
	var body decodeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.NoError(t, err)

	_, err = NewServer(&config.Config{Decode: config.DecodeConfig{Binarizer: "otsu"}, Server: config.ServerConfig{MaxUploadMB: 1}}, nil)
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Server.MaxUploadMB = 0
	_, err = NewServer(cfg, nil)
	assert.Error(t, err)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, httptest.NewRequest(tt.method, "/health", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "healthy", resp.Status)
			assert.NotEmpty(t, resp.Time)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestDecodeHandlerMultipart(t *testing.T) {
	s := newTestServer(t, nil)

	w := serve(s, multipartRequest(t, "/decode", "image", qrPNG(t, "geo:48.8583,2.2945")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := readDecodeBody(t, w)
	require.Len(t, body.Results, 1)
	assert.Empty(t, body.Error)
	assert.Equal(t, "geo:48.8583,2.2945", body.Results[0].Text)
	assert.Equal(t, "QR_CODE", body.Results[0].Format)
	require.NotNil(t, body.Results[0].Parsed)
	assert.Equal(t, "GEO", body.Results[0].Parsed.Type)
	assert.Equal(t, "48.8583, 2.2945", body.Results[0].Parsed.Display)
}

func TestDecodeHandlerRawBody(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(qrPNG(t, "HELLO RAW")))
	req.Header.Set("Content-Type", "image/png")
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := readDecodeBody(t, w)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "HELLO RAW", body.Results[0].Text)
	require.NotNil(t, body.Results[0].Parsed)
	assert.Equal(t, "TEXT", body.Results[0].Parsed.Type)
}

func TestDecodeHandlerNothingFound(t *testing.T) {
	s := newTestServer(t, nil)

	w := serve(s, httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(blankPNG(t))))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
	body := readDecodeBody(t, w)
	assert.Empty(t, body.Results)
	assert.Contains(t, body.Error, "barcode not found")
}

func TestDecodeHandlerFormatsFilter(t *testing.T) {
	s := newTestServer(t, nil)
	data := qrPNG(t, "FILTERED")

	w := serve(s, httptest.NewRequest(http.MethodPost, "/decode?formats=EAN_13,CODE_39", bytes.NewReader(data)))
	require.Equal(t, http.StatusOK, w.Code)
	body := readDecodeBody(t, w)
	assert.Empty(t, body.Results)
	assert.NotEmpty(t, body.Error)

	w = serve(s, httptest.NewRequest(http.MethodPost, "/decode?formats=qr_code&try_harder=true", bytes.NewReader(data)))
	require.Equal(t, http.StatusOK, w.Code)
	body = readDecodeBody(t, w)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "FILTERED", body.Results[0].Text)
}

func TestDecodeHandlerMulti(t *testing.T) {
	s := newTestServer(t, nil)

	w := serve(s, httptest.NewRequest(http.MethodPost, "/decode?multi=1", bytes.NewReader(qrPNG(t, "ONE OF MANY"))))
	require.Equal(t, http.StatusOK, w.Code)
	body := readDecodeBody(t, w)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "ONE OF MANY", body.Results[0].Text)
}

func TestDecodeHandlerErrors(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxUploadMB = 1 })

	tests := []struct {
		name           string
		req            func() *http.Request
		expectedStatus int
	}{
		{
			name: "empty body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/decode", nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not an image",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader("definitely not a png"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing form field",
			req: func() *http.Request {
				return multipartRequest(t, "/decode", "file", qrPNG(t, "X"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad boolean",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/decode?try_harder=maybe", bytes.NewReader(qrPNG(t, "X")))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown format",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/decode?formats=AZTEC", bytes.NewReader(qrPNG(t, "X")))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "too large raw body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(make([]byte, 2<<20)))
			},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name: "too large multipart",
			req: func() *http.Request {
				return multipartRequest(t, "/decode", "image", make([]byte, 2<<20))
			},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.req())
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			body := readDecodeBody(t, w)
			assert.NotEmpty(t, body.Error)
			assert.NotNil(t, body.Results)
		})
	}
}

func TestRequestDecodeConfig(t *testing.T) {
	base := config.DefaultConfig().Decode
	base.Formats = []string{"QR_CODE"}

	dc, multiple, err := requestDecodeConfig(base, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, base, dc)
	assert.False(t, multiple)

	dc, multiple, err = requestDecodeConfig(base, url.Values{
		"formats":       {"EAN_13,ITF"},
		"try_harder":    {"true"},
		"pure_barcode":  {"1"},
		"also_inverted": {"t"},
		"multi":         {"true"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"EAN_13", "ITF"}, dc.Formats)
	assert.True(t, dc.TryHarder)
	assert.True(t, dc.PureBarcode)
	assert.True(t, dc.AlsoInverted)
	assert.True(t, multiple)
	assert.Equal(t, []string{"QR_CODE"}, base.Formats, "base must not change")

	_, _, err = requestDecodeConfig(base, url.Values{"multi": {"sometimes"}})
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	serve(s, httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(qrPNG(t, "METRICS"))))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `barcodescan_http_requests_total{method="GET",route="/health",status="200"}`)
	assert.Contains(t, body, `barcodescan_decodes_total{outcome="found",source="http"}`)
	assert.Contains(t, body, `barcodescan_symbols_decoded_total{format="QR_CODE"}`)
}

func TestRecoverMiddleware(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrap(rec)
	assert.Same(t, rw, wrap(rw))

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusTeapot, rw.statusCode)

	_, _, err := rw.Hijack()
	assert.Error(t, err, "recorder cannot hijack")
}

func dialScan(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/scan", nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, messageType int, data []byte) scanReply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	require.NoError(t, conn.WriteMessage(messageType, data))
	var reply scanReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestScanWebSocket(t *testing.T) {
	s := newTestServer(t, nil)
	conn := dialScan(t, s)
	frame := qrPNG(t, "FRAME")

	reply := exchange(t, conn, websocket.BinaryMessage, frame)
	assert.Equal(t, "result", reply.Type)
	assert.Equal(t, 1, reply.Frame)
	require.Len(t, reply.Results, 1)
	assert.Equal(t, "FRAME", reply.Results[0].Text)

	reply = exchange(t, conn, websocket.BinaryMessage, frame)
	assert.Equal(t, 2, reply.Frame)
	require.Len(t, reply.Results, 1, "the cached readers serve the next frame too")

	reply = exchange(t, conn, websocket.TextMessage, []byte(`{"formats":["EAN_13"]}`))
	assert.Equal(t, "options", reply.Type)

	reply = exchange(t, conn, websocket.BinaryMessage, frame)
	assert.Equal(t, "result", reply.Type)
	assert.Equal(t, 3, reply.Frame)
	assert.Empty(t, reply.Results)
	assert.NotEmpty(t, reply.Error)

	reply = exchange(t, conn, websocket.TextMessage, []byte(`{"formats":["QR_CODE"],"multi":true}`))
	assert.Equal(t, "options", reply.Type)

	reply = exchange(t, conn, websocket.BinaryMessage, frame)
	require.Len(t, reply.Results, 1)
	assert.Equal(t, "FRAME", reply.Results[0].Text)
}

func TestScanWebSocketErrors(t *testing.T) {
	s := newTestServer(t, nil)
	conn := dialScan(t, s)

	reply := exchange(t, conn, websocket.TextMessage, []byte(`{"formats":`))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Error, "invalid options")

	reply = exchange(t, conn, websocket.TextMessage, []byte(`{"formats":["NOT_A_FORMAT"]}`))
	assert.Equal(t, "error", reply.Type)

	reply = exchange(t, conn, websocket.BinaryMessage, []byte("garbage"))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, 1, reply.Frame)
	assert.Contains(t, reply.Error, "invalid image")

	// The connection survives bad frames.
	reply = exchange(t, conn, websocket.BinaryMessage, qrPNG(t, "STILL HERE"))
	require.Len(t, reply.Results, 1)
	assert.Equal(t, "STILL HERE", reply.Results[0].Text)
}

func TestServeShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	lsn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, lsn) }()

	resp, err := http.Get("http://" + lsn.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
