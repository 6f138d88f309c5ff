//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rollcall/internal/browser"
)

// composerPage mimics a chat surface: the composer shows up after a delay and
// Enter records the submission in the document title.
const composerPage = `
<html>
<body>
<script>
setTimeout(() => {
	const box = document.createElement('div');
	box.setAttribute('contenteditable', 'true');
	box.id = 'composer';
	box.textContent = new URLSearchParams(location.search).get('text') || '';
	box.addEventListener('keydown', (ev) => {
		if (ev.key === 'Enter') { document.title = 'sent:' + box.textContent; }
	});
	document.body.appendChild(box);
	box.focus();
}, 300);
</script>
</body>
</html>`

func startSession(t *testing.T) (*browser.Session, context.Context) {
	t.Helper()
	cfg := browser.DefaultConfig()
	cfg.Headless = true
	cfg.UserDataDir = filepath.Join(t.TempDir(), "profile")
	cfg.NavigationTimeoutMs = 10000

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	s := browser.NewSession(cfg)
	require.NoError(t, s.Start(ctx), "Failed to start browser")
	t.Cleanup(func() {
		if err := s.Shutdown(); err != nil {
			t.Logf("Shutdown error: %v", err)
		}
	})
	return s, ctx
}

func TestSession_SendFlow_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, composerPage)
	}))
	defer ts.Close()

	s, ctx := startSession(t)
	require.NotEmpty(t, s.ControlURL())

	require.NoError(t, s.Open(ctx, ts.URL+"/send?phone=5511999999999&text=hello"))
	require.NoError(t, s.WaitVisible(ctx, `div[contenteditable="true"]`, 5*time.Second))
	require.NoError(t, s.PressEnter(ctx))
}

func TestSession_WaitVisibleTimeout_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>logged out</p></body></html>")
	}))
	defer ts.Close()

	s, ctx := startSession(t)
	require.NoError(t, s.Open(ctx, ts.URL))

	start := time.Now()
	err := s.WaitVisible(ctx, `div[contenteditable="true"]`, time.Second)
	require.Error(t, err)
	require.Less(t, time.Since(start), 10*time.Second)
}
