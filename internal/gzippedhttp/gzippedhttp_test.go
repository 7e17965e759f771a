package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())
	return buf.Bytes()
}

func gunzip(t *testing.T, input []byte) string {
	t.Helper()
	reader, err := gzip.NewReader(bytes.NewReader(input))
	require.NoError(t, err)
	defer reader.Close()
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(out)
}

func jsonHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestGzipResponse(t *testing.T) {
	testCases := []struct {
		name           string
		acceptEncoding string
		handler        http.Handler
		wantGzip       bool
		wantBody       string
	}{
		{
			name:           "json is compressed",
			acceptEncoding: "gzip, deflate",
			handler:        jsonHandler(http.StatusOK, `{"name":"Ann"}`),
			wantGzip:       true,
			wantBody:       `{"name":"Ann"}`,
		},
		{
			name:           "client does not accept gzip",
			acceptEncoding: "",
			handler:        jsonHandler(http.StatusOK, `{"name":"Ann"}`),
			wantGzip:       false,
			wantBody:       `{"name":"Ann"}`,
		},
		{
			name:           "error responses are not compressed",
			acceptEncoding: "gzip",
			handler:        jsonHandler(http.StatusNotFound, `"not found"`),
			wantGzip:       false,
			wantBody:       `"not found"`,
		},
		{
			name:           "binary content is not compressed",
			acceptEncoding: "gzip",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write([]byte("raw"))
			}),
			wantGzip: false,
			wantBody: "raw",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.Header.Set("Accept-Encoding", testCase.acceptEncoding)
			recorder := httptest.NewRecorder()

			GzipResponse(testCase.handler).ServeHTTP(recorder, request)

			if testCase.wantGzip {
				assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
				assert.Equal(t, testCase.wantBody, gunzip(t, recorder.Body.Bytes()))
				return
			}
			assert.Empty(t, recorder.Header().Get("Content-Encoding"))
			assert.Equal(t, testCase.wantBody, recorder.Body.String())
		})
	}
}

func TestUngzipRequest(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(body)
	})

	request := httptest.NewRequest(http.MethodPost, "/user", bytes.NewReader(gzipString(t, `{"name":"Ann"}`)))
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	UngzipRequest(echo).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `{"name":"Ann"}`, recorder.Body.String())

	request = httptest.NewRequest(http.MethodPost, "/user", strings.NewReader("not gzip at all"))
	request.Header.Set("Content-Encoding", "gzip")
	recorder = httptest.NewRecorder()
	UngzipRequest(echo).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
