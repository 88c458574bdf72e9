package caldav

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_basicAuthTransport_SetsCredentials(t *testing.T) {
	var user, pass, agent string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
		agent = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &basicAuthTransport{Username: "ana", Password: "secret", Transport: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, ok)
	assert.Equal(t, "ana", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, userAgent, agent)
}

func Test_objectPath(t *testing.T) {
	c := &Client{calendarPath: "/123/calendars/work/"}

	assert.Equal(t, "/123/calendars/work/e1.ics", c.objectPath("e1"))
	assert.Equal(t, "/123/calendars/work/a%2Fb.ics", c.objectPath("a/b"))
}
