package report

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGotenberg answers the convert route with statuses in order, repeating the last.
func fakeGotenberg(t *testing.T, calls *atomic.Int32, statuses ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		status := statuses[min(n, len(statuses)-1)]
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(status)
		case "/forms/chromium/convert/html":
			file, header, err := r.FormFile("files")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			if header.Filename != "index.html" || r.FormValue("paperWidth") != "8.27" || r.FormValue("marginTop") != "0.4" {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			html, _ := io.ReadAll(file)
			w.WriteHeader(status)
			if status < 300 {
				_, _ = w.Write(append([]byte("%PDF-"), html...))
			} else {
				_, _ = w.Write([]byte("chromium down"))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fastClient(url string) *Client {
	c := NewClient(url+"/", time.Second)
	c.interval = time.Millisecond
	return c
}

func TestRenderHTML(t *testing.T) {
	var calls atomic.Int32
	client := fastClient(fakeGotenberg(t, &calls, http.StatusOK).URL)

	pdf, err := client.RenderHTML(context.Background(), "<p>folio</p>")
	require.NoError(t, err)
	require.Equal(t, "%PDF-<p>folio</p>", string(pdf))
	require.NoError(t, client.Ping(context.Background()))
}

func TestRenderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := fastClient(fakeGotenberg(t, &calls, http.StatusBadGateway, http.StatusOK).URL)

	pdf, err := client.RenderHTML(context.Background(), "<p>folio</p>")
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	require.EqualValues(t, 2, calls.Load())
}

func TestRenderGivesUpOnClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := fastClient(fakeGotenberg(t, &calls, http.StatusUnprocessableEntity).URL)

	_, err := client.RenderHTML(context.Background(), "<p>folio</p>")
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusUnprocessableEntity, serr.Status)
	require.Equal(t, "chromium down", serr.Body)
	require.EqualValues(t, 1, calls.Load())
}

func TestRenderExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client := fastClient(fakeGotenberg(t, &calls, http.StatusServiceUnavailable).URL)

	_, err := client.RenderHTML(context.Background(), "<p>folio</p>")
	require.Error(t, err)
	require.EqualValues(t, defaultRetries+1, calls.Load())
	require.Error(t, client.Ping(context.Background()))
}
