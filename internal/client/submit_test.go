package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSendsRawBinaryBody(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33, 0x00, 0xFF}
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"result":"总结：好"}`))
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, time.Second)
	text, err := s.Submit(context.Background(), audio)
	require.NoError(t, err)

	assert.Equal(t, "总结：好", text)
	assert.Equal(t, audio, gotBody)
	assert.Equal(t, "audio/mpeg", gotContentType)
}

func TestSubmitErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, time.Second)
	_, err := s.Submit(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSubmitErrorFieldOnOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"relay failure"}`))
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, time.Second)
	_, err := s.Submit(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay failure")
}

func TestSubmitStatusOnlyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSubmitter(srv.URL, time.Second)
	_, err := s.Submit(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
