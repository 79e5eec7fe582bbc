package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const grantHTML = `<html><head><title>  Green Futures   Fund </title><script>var x = 1;</script></head>
<body>
<nav><a href="/">Home</a></nav>
<header><h1>Site Banner</h1></header>
<main>
  <h1>Green Futures Fund</h1>
  <p>Grants of up to <b>$25,000</b> for small businesses.</p>
  <ul><li>Deadline: 2099-03-31</li><li>Eligibility: Registered in Ohio</li></ul>
</main>
<footer>Copyright</footer>
</body></html>`

func TestLocalSource_ReadsMainContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "GrantSeeker")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(grantHTML))
	}))
	defer srv.Close()

	page, err := NewLocalSource(nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Green Futures Fund", page.Title)
	assert.Equal(t, "Green Futures Fund\nGrants of up to $25,000 for small businesses.\nDeadline: 2099-03-31\nEligibility: Registered in Ohio", page.Content)
	assert.NotContains(t, page.Content, "Site Banner")
	assert.NotContains(t, page.Content, "Copyright")
	assert.NotContains(t, page.Content, "var x")
}

func TestLocalSource_Cloudflare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("cf-ray", "abc")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html>Attention</html>"))
	}))
	defer srv.Close()

	_, err := NewLocalSource(nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked (cloudflare)")
}

func TestLocalSource_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewLocalSource(nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLocalSource_PDFContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	_, err := NewLocalSource(nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf content")
}

func TestLocalSource_Supports(t *testing.T) {
	s := NewLocalSource(nil)
	assert.Equal(t, "local", s.Name())
	assert.True(t, s.Supports("https://fund.org/apply"))
	assert.False(t, s.Supports("https://fund.org/guide.pdf"))
}

func TestReadHTML_FallsBackToBody(t *testing.T) {
	title, text, err := readHTML([]byte(`<html><body><div>Plain   body
	text</div></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Equal(t, "Plain body text", text)
}

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		want   BlockType
	}{
		{"clean", 200, nil, "<html><p>" + strings.Repeat("grant ", 500) + "</p></html>", BlockNone},
		{"cloudflare header", 503, map[string]string{"Server": "cloudflare"}, "", BlockCloudflare},
		{"cloudflare body", 200, nil, "Checking your browser before accessing", BlockCloudflare},
		{"captcha", 200, nil, `<div class="g-recaptcha"></div>`, BlockCaptcha},
		{"js shell", 200, nil, "<noscript>Please enable JavaScript</noscript>", BlockJSShell},
		{"meta refresh", 200, nil, `<meta http-equiv="refresh" content="0">`, BlockJSShell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.header {
				resp.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, DetectBlock(resp, []byte(tt.body)))
		})
	}

	assert.Equal(t, BlockNone, DetectBlock(nil, nil))
}
