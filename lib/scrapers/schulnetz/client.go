package schulnetz

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"snassist-backend/lib/htmlutil"
	"snassist-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/schulnetz")

var (
	ErrNotLoggedIn = fmt.Errorf("not logged in")
	ErrLoginFailed = fmt.Errorf("failed to login to your account")
)

// the page id recorded right after a successful login, before any
// real navigation happened
const pageJustLoggedIn = "justLoggedIn"

// how long the portal keeps a session alive without traffic is dictated
// by the server (30 minutes), refresh a bit before that
const defaultKeepAliveInterval = 25 * time.Minute

type ClientOptions struct {
	// base url of the portal instance, e.g. https://schulnetz.example.ch
	BaseUrl  string
	Login    string
	Password string
}

// Client owns one logical login to the portal: cookie jar, session id,
// transaction id and page-identifier continuity, the lock that
// serializes state-changing navigation, and the keep-alive heartbeat.
type Client struct {
	http    *resty.Client
	options ClientOptions

	lock stateLock

	mu                sync.Mutex
	authenticated     bool
	id                string
	transId           string
	lastVisitedPageId string
	visitedPages      map[string]struct{}
	cookies           map[string]string
	heartbeatStop     chan struct{}
	keepAliveInterval time.Duration
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", opts.BaseUrl)
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	// the portal routes through redirects whose Set-Cookie headers we
	// must observe ourselves, so never follow them automatically
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/schulnetz/http")

	c := &Client{
		http:              client,
		options:           opts,
		visitedPages:      map[string]struct{}{},
		cookies:           map[string]string{},
		keepAliveInterval: defaultKeepAliveInterval,
	}
	return c, nil
}

// LoggedIn reports whether the session is usable: the internal flag is
// set and the session id, transaction id and last visited page are all
// known.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedInLocked()
}

func (c *Client) loggedInLocked() bool {
	return c.authenticated &&
		c.id != "" &&
		c.transId != "" &&
		c.lastVisitedPageId != ""
}

// mergeResponseCookies folds the response's combined Set-Cookie header
// into the jar.
func (c *Client) mergeResponseCookies(res *resty.Response) {
	combined := joinHeaderValues(res.Header().Values("Set-Cookie"))
	if combined == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	parseSetCookie(combined, c.cookies)
}

func joinHeaderValues(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	var buffer bytes.Buffer
	for i, v := range values {
		if i > 0 {
			buffer.WriteString(", ")
		}
		buffer.WriteString(v)
	}
	return buffer.String()
}

// resetSession tears every session field down to the logged-out state
// and stops the heartbeat. it never fails.
func (c *Client) resetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = false
	c.id = ""
	c.transId = ""
	c.lastVisitedPageId = ""
	c.visitedPages = map[string]struct{}{}
	c.cookies = map[string]string{}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

// Login performs the form login. It is a no-op when already logged in.
// It jumps ahead of any queued navigation so that a re-login ordered
// after a failure is never stuck behind doomed fetches.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	if c.LoggedIn() {
		return nil
	}

	token, err := c.lock.acquireWithPriority(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire state lock")
		return err
	}
	defer c.lock.release(token)

	err = c.performLogin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		c.resetSession()
		return err
	}
	return nil
}

// performLogin runs with the state lock held.
func (c *Client) performLogin(ctx context.Context) error {
	res, err := c.request(ctx).Get("/loginto.php")
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("fetch login page: unexpected status %d", res.StatusCode())
	}
	c.mergeResponseCookies(res)

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse login page: %w", err)
	}
	loginhash := htmlutil.Attr(doc.Find("input[name=loginhash]"), "value")
	if loginhash == "" {
		return fmt.Errorf("could not find login hash")
	}

	// the login redirect chain may legitimately answer non-200,
	// status is deliberately not checked here
	res, err = c.request(ctx).
		SetFormData(map[string]string{
			"login":     c.options.Login,
			"passwort":  c.options.Password,
			"loginhash": loginhash,
		}).
		Post("/index.php")
	if err != nil {
		return fmt.Errorf("post credentials: %w", err)
	}
	c.mergeResponseCookies(res)

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse post-login page: %w", err)
	}
	id, transId, err := extractSessionIds(doc)
	if err != nil {
		return ErrLoginFailed
	}

	c.mu.Lock()
	c.authenticated = true
	c.id = id
	c.transId = transId
	c.lastVisitedPageId = pageJustLoggedIn
	c.visitedPages = map[string]struct{}{}
	c.mu.Unlock()

	c.startHeartbeat()
	return nil
}

// Logout must not fail to clean up, even when the network request
// errors or other operations are still queued on the state lock; those
// waiters observe ErrLockCancelled.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	if !c.LoggedIn() {
		c.resetSession()
		return nil
	}

	token := c.lock.forceAcquire()
	defer c.lock.release(token)

	c.mu.Lock()
	id := c.id
	transId := c.transId
	c.mu.Unlock()

	// best effort, the session is torn down locally regardless
	_, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"pageid":  pageLogout,
			"id":      id,
			"transid": transId,
		}).
		Get("/index.php")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "logout request failed")
	}

	c.resetSession()
	return nil
}

// request builds a request carrying the current cookie jar.
func (c *Client) request(ctx context.Context) *resty.Request {
	c.mu.Lock()
	jar := cookieHeader(c.cookies)
	c.mu.Unlock()

	req := c.http.R().SetContext(ctx)
	if jar != "" {
		req.SetHeader("Cookie", jar)
	}
	return req
}

// extractSessionIds pulls the session id and transaction id out of the
// query parameters of a known navigation link. the server embeds both
// in every menu anchor.
func extractSessionIds(doc *goquery.Document) (id string, transId string, err error) {
	var found bool
	doc.Find("a[href*='transid=']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := htmlutil.Attr(sel, "href")
		link, parseErr := url.Parse(href)
		if parseErr != nil {
			return true
		}
		query := link.Query()
		if query.Get("id") == "" || query.Get("transid") == "" {
			return true
		}
		id = query.Get("id")
		transId = query.Get("transid")
		found = true
		return false
	})
	if !found {
		return "", "", fmt.Errorf("could not find a navigation link carrying id and transid")
	}
	return id, transId, nil
}

// startHeartbeat launches the keep-alive loop. at most one loop runs
// per session.
func (c *Client) startHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.heartbeatStop != nil {
		return
	}
	stop := make(chan struct{})
	c.heartbeatStop = stop
	interval := c.keepAliveInterval

	go c.heartbeat(stop, interval)
}

// heartbeat refreshes the server-side session timeout on a fixed
// interval. a failed refresh means the session is gone, so the client
// is force-logged-out. the loop stops when the session is torn down.
func (c *Client) heartbeat(stop chan struct{}, interval time.Duration) {
	for {
		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		err := c.resetTimeout(context.Background())
		if err != nil {
			ctx, span := tracer.Start(context.Background(), "client:heartbeatFailure")
			span.RecordError(err)
			span.SetStatus(codes.Error, "session keep-alive failed")
			c.Logout(ctx)
			span.End()
			return
		}
	}
}

func (c *Client) resetTimeout(ctx context.Context) error {
	c.mu.Lock()
	id := c.id
	transId := c.transId
	c.mu.Unlock()

	res, err := c.request(ctx).
		SetFormData(map[string]string{
			"xajax":   "reset_timeout",
			"id":      id,
			"transid": transId,
		}).
		Post("/xajax_js.php")
	if err != nil {
		return err
	}
	if res.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("reset timeout: unexpected status %d", res.StatusCode())
	}
	c.mergeResponseCookies(res)
	return nil
}
