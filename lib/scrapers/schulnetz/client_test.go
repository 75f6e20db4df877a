package schulnetz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"snassist-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const (
	testNavPage  = "21311"
	testReadPage = "40000"
)

// fakePortal mimics the portal's login flow, transaction id rotation
// and cookie behavior, and records overlapping request intervals so
// the serialization guarantees can be asserted.
type fakePortal struct {
	server *httptest.Server

	mu        sync.Mutex
	loggedIn  bool
	transid   int
	logins    int
	exclusive int
	stable    int
	maxStable int
	violation error

	keepAlives   atomic.Int64
	failRequests atomic.Bool

	navDelay  time.Duration
	readDelay time.Duration
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{}

	mux := http.NewServeMux()
	mux.HandleFunc("/loginto.php", p.handleLoginPage)
	mux.HandleFunc("/index.php", p.handleIndex)
	mux.HandleFunc("/xajax_js.php", p.handleKeepAlive)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) navLink() string {
	return fmt.Sprintf(
		`<a href="index.php?pageid=1&id=S1&transid=%d">Start</a>`,
		p.transid,
	)
}

func (p *fakePortal) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Set-Cookie", "layout=wide; Path=/")
	fmt.Fprint(w, `<html><form><input name="loginhash" value="h4sh"></form></html>`)
}

func (p *fakePortal) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	if p.failRequests.Load() {
		http.Error(w, "session expired", http.StatusInternalServerError)
		return
	}
	p.keepAlives.Add(1)
}

func (p *fakePortal) handleIndex(w http.ResponseWriter, r *http.Request) {
	if p.failRequests.Load() {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodPost {
		p.handleLoginPost(w, r)
		return
	}

	query := r.URL.Query()
	pageid := query.Get("pageid")

	p.mu.Lock()
	if !p.loggedIn || query.Get("id") != "S1" {
		p.mu.Unlock()
		http.Error(w, "not logged in", http.StatusForbidden)
		return
	}

	switch pageid {
	case pageLogout:
		p.loggedIn = false
		p.mu.Unlock()
		fmt.Fprint(w, "bye")

	case testReadPage:
		if p.exclusive > 0 {
			p.violation = fmt.Errorf("read overlapped a state-changing fetch")
		}
		p.stable++
		if p.stable > p.maxStable {
			p.maxStable = p.stable
		}
		delay := p.readDelay
		p.mu.Unlock()

		time.Sleep(delay)

		p.mu.Lock()
		p.stable--
		p.mu.Unlock()
		fmt.Fprint(w, "<html>read-only content</html>")

	default:
		if query.Get("transid") != strconv.Itoa(p.transid) {
			p.violation = fmt.Errorf(
				"stale transid %s, expected %d",
				query.Get("transid"), p.transid,
			)
		}
		if p.exclusive > 0 {
			p.violation = fmt.Errorf("two state-changing fetches overlapped")
		}
		if p.stable > 0 {
			p.violation = fmt.Errorf("state-changing fetch overlapped a read")
		}
		p.exclusive++
		delay := p.navDelay
		p.mu.Unlock()

		time.Sleep(delay)

		p.mu.Lock()
		p.exclusive--
		p.transid++
		link := p.navLink()
		p.mu.Unlock()
		fmt.Fprintf(w, "<html>%s<div>page %s</div></html>", link, pageid)
	}
}

func (p *fakePortal) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("login") != "alice" ||
		r.PostForm.Get("passwort") != "secret" ||
		r.PostForm.Get("loginhash") != "h4sh" {
		http.Error(w, "bad credentials", http.StatusForbidden)
		return
	}

	p.mu.Lock()
	p.loggedIn = true
	p.logins++
	p.transid = 1000
	link := p.navLink()
	p.mu.Unlock()

	w.Header().Add("Set-Cookie", "sn_session=abc123; Path=/; HttpOnly")
	w.Header().Add("Set-Cookie", "sn_csrf=tok; Secure")
	fmt.Fprintf(w, "<html>%s</html>", link)
}

func (p *fakePortal) assertNoViolation(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.violation != nil {
		t.Fatal(p.violation)
	}
}

func newTestClient(t *testing.T, portal *fakePortal) *Client {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/schulnetz")
	t.Cleanup(cleanup)

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:  portal.server.URL,
		Login:    "alice",
		Password: "secret",
	})
	require.NoError(t, err)
	return client
}

func TestClientLoginLogout(t *testing.T) {
	portal := newFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.False(t, client.LoggedIn())

	require.NoError(t, client.Login(ctx))
	require.True(t, client.LoggedIn())

	// cookies from both login requests ended up in the jar
	client.mu.Lock()
	require.Equal(t, "wide", client.cookies["layout"])
	require.Equal(t, "abc123", client.cookies["sn_session"])
	require.Equal(t, "tok", client.cookies["sn_csrf"])
	client.mu.Unlock()

	// a second login is a no-op
	require.NoError(t, client.Login(ctx))
	portal.mu.Lock()
	require.Equal(t, 1, portal.logins)
	portal.mu.Unlock()

	require.NoError(t, client.Logout(ctx))
	require.False(t, client.LoggedIn())
}

func TestFetchPageNotLoggedIn(t *testing.T) {
	portal := newFakePortal(t)
	client := newTestClient(t, portal)

	_, err := client.FetchPage(context.Background(), testNavPage, true, nil)
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestFetchPageRotatesTransid(t *testing.T) {
	portal := newFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	// the fake portal rejects stale transaction ids, so two
	// sequential state-changing fetches passing means the rotation
	// was picked up
	_, err := client.FetchPage(ctx, testNavPage, true, nil)
	require.NoError(t, err)
	_, err = client.FetchPage(ctx, testNavPage, true, nil)
	require.NoError(t, err)
	portal.assertNoViolation(t)

	require.Contains(t, client.VisitedPages(), testNavPage)
}

func TestExclusiveFetchesNeverOverlap(t *testing.T) {
	portal := newFakePortal(t)
	portal.navDelay = 10 * time.Millisecond
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FetchPage(ctx, testNavPage, true, nil)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	portal.assertNoViolation(t)
}

func TestStableFetchesOverlapButNotWithExclusive(t *testing.T) {
	portal := newFakePortal(t)
	portal.navDelay = 10 * time.Millisecond
	portal.readDelay = 30 * time.Millisecond
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FetchPage(ctx, testReadPage, false, nil)
			require.NoError(t, err)
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FetchPage(ctx, testNavPage, true, nil)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	portal.assertNoViolation(t)
	portal.mu.Lock()
	maxStable := portal.maxStable
	portal.mu.Unlock()
	require.GreaterOrEqual(t, maxStable, 2, "reads should run concurrently")
}

func TestTransportFailureForcesLogout(t *testing.T) {
	portal := newFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	portal.failRequests.Store(true)
	_, err := client.FetchPage(ctx, testNavPage, true, nil)
	require.Error(t, err)
	require.False(t, client.LoggedIn())

	// the session is gone, the precondition fails immediately
	_, err = client.FetchPage(ctx, testNavPage, true, nil)
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLogoutCancelsQueuedFetches(t *testing.T) {
	portal := newFakePortal(t)
	client := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	// simulate an in-flight state-changing operation holding the lock
	token, err := client.lock.acquire(ctx)
	require.NoError(t, err)

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := client.FetchPage(ctx, testNavPage, true, nil)
			results <- err
		}()
	}
	waitForQueued(t, &client.lock, 3)

	require.NoError(t, client.Logout(ctx))
	for i := 0; i < 3; i++ {
		select {
		case err := <-results:
			require.ErrorIs(t, err, ErrLockCancelled)
		case <-time.After(time.Second):
			t.Fatal("queued fetch neither granted nor cancelled")
		}
	}
	require.False(t, client.LoggedIn())

	client.lock.release(token)
}

func TestHeartbeatKeepsSessionAlive(t *testing.T) {
	portal := newFakePortal(t)
	client := newTestClient(t, portal)
	client.keepAliveInterval = 10 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	require.Eventually(t, func() bool {
		return portal.keepAlives.Load() >= 2
	}, time.Second, time.Millisecond, "keep-alive requests should be sent repeatedly")

	// a failing keep-alive tears the session down
	portal.failRequests.Store(true)
	require.Eventually(t, func() bool {
		return !client.LoggedIn()
	}, time.Second, time.Millisecond, "heartbeat failure should force a logout")
}
