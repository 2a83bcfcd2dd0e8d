package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testClientURL = "http://client.test"

type outbox struct {
	mu   sync.Mutex
	msgs []mailer.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

// lastTo returns the newest message addressed to "to" with the given subject.
func (o *outbox) lastTo(t *testing.T, to, subject string) mailer.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To == to && o.msgs[i].Subject == subject {
			return o.msgs[i]
		}
	}
	t.Fatalf("no %q mail to %s", subject, to)
	return mailer.Message{}
}

// linkPath strips the client origin so the link can be replayed against the router.
func linkPath(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.EscapedPath()
}

func lastSegment(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return path.Base(u.Path)
}

type testServer struct {
	srv   *HTTPServer
	codec *auth.Codec
	repos *memory.Repositories
	mail  *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repos := memory.NewRepositories(nil)
	codec := auth.NewCodec(map[auth.Purpose]auth.Key{
		auth.PurposeAccess:  {Secret: []byte("access-secret")},
		auth.PurposeRefresh: {Secret: []byte("refresh-secret")},
		auth.PurposeReset:   {Secret: []byte("reset-secret")},
	})
	box := &outbox{}

	us := services.NewUserService(
		services.Stores{Users: repos.Users, Tokens: repos.Tokens, EmailChanges: repos.EmailChanges},
		codec,
		cryptox.NewBcryptHasher(bcrypt.MinCost),
		mailer.New(testClientURL, box),
		logging.Nop(),
	)

	srv := NewHTTPServer("127.0.0.1:0", logging.Nop(), us, codec, Options{AllowedOrigins: []string{testClientURL}})
	return &testServer{srv: srv, codec: codec, repos: repos, mail: box}
}

type request struct {
	method  string
	path    string
	body    any
	raw     string
	access  string
	refresh string
}

func (ts *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doWithHeaders(t, req, nil)
}

// doWithHeader sends req with a literal Authorization header ("" means none).
func (ts *testServer) doWithHeader(t *testing.T, req request, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	if authorization == "" {
		return ts.doWithHeaders(t, req, nil)
	}
	return ts.doWithHeaders(t, req, map[string]string{"Authorization": authorization})
}

func (ts *testServer) doWithHeaders(t *testing.T, req request, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch {
	case req.raw != "":
		buf.WriteString(req.raw)
	case req.body != nil:
		require.NoError(t, json.NewEncoder(&buf).Encode(req.body))
	}

	r := httptest.NewRequest(req.method, req.path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if req.access != "" {
		r.Header.Set("Authorization", "Bearer "+req.access)
	}
	if req.refresh != "" {
		r.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: req.refresh})
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, r)
	return rec
}

type sessionResponse struct {
	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

type errorResponse struct {
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.RefreshTokenCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", common.RefreshTokenCookieName)
	return nil
}

type client struct {
	access  string
	refresh string
	user    sessionResponse
}

// signUp registers and activates an account through the HTTP surface.
func (ts *testServer) signUp(t *testing.T, email, password, name string) *client {
	t.Helper()

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/registration",
		body: map[string]string{"email": email, "password": password, "name": name}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	msg := ts.mail.lastTo(t, email, "Account activation")
	rec = ts.do(t, request{method: http.MethodGet, path: linkPath(t, msg.Link)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sess := decode[sessionResponse](t, rec)
	return &client{access: sess.AccessToken, refresh: refreshCookie(t, rec).Value, user: sess}
}
