package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/auth-service/server"
)

func TestGenerateCsrfToken(t *testing.T) {
	first, err := server.GenerateCsrfToken()
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := server.GenerateCsrfToken()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestCsrfMissingCookie(t *testing.T) {
	ts := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, server.RouteDemoSession, nil)
	w := ts.do(r)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCsrfMissingHeader(t *testing.T) {
	ts := newTestServer(t)

	cookie, _ := csrfPair(t)
	r := httptest.NewRequest(http.MethodPost, server.RouteDemoSession, nil)
	r.AddCookie(cookie)
	w := ts.do(r)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCsrfMismatch(t *testing.T) {
	ts := newTestServer(t)

	cookie, _ := csrfPair(t)
	_, otherToken := csrfPair(t)
	r := httptest.NewRequest(http.MethodPost, server.RouteDemoSession, nil)
	r.AddCookie(cookie)
	r.Header.Set(server.CsrfHeaderName, otherToken)
	w := ts.do(r)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCsrfMatchAllowsRequest(t *testing.T) {
	ts := newTestServer(t)

	cookie, header := csrfPair(t)
	r := httptest.NewRequest(http.MethodPost, server.RouteDemoSession, strings.NewReader("{}"))
	r.AddCookie(cookie)
	r.Header.Set(server.CsrfHeaderName, header)
	w := ts.do(r)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCsrfNotRequiredForSafeMethods(t *testing.T) {
	ts := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		r := httptest.NewRequest(method, "/about", nil)
		w := ts.do(r)
		require.NotEqual(t, http.StatusForbidden, w.Code, "method %s", method)
	}
}
