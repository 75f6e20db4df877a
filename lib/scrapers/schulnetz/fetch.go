package schulnetz

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FetchPage requests one portal page and returns its raw text.
//
// changesState must be true for any page whose navigation may rotate
// the server-tracked transaction id; those fetches are serialized
// against each other and against all state-preserving reads. A
// state-preserving fetch only holds a stable-state slot and may run
// concurrently with other reads.
//
// Any transport failure tears the whole session down: the caller must
// treat "no longer logged in" as the recovery signal.
func (c *Client) FetchPage(ctx context.Context, pageId string, changesState bool, extraParams map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchPage", trace.WithAttributes(
		attribute.String("pageid", pageId),
		attribute.Bool("changes_state", changesState),
	))
	defer span.End()

	if !c.LoggedIn() {
		span.SetStatus(codes.Error, ErrNotLoggedIn.Error())
		return "", ErrNotLoggedIn
	}

	if changesState {
		token, err := c.lock.acquire(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to acquire state lock")
			return "", err
		}
		defer c.lock.release(token)
	} else {
		err := c.lock.retainStable(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to enter stable-state section")
			return "", err
		}
		defer c.lock.releaseStable()
	}

	// the lock may have been handed to us after a logout reset the
	// session in the meantime
	if !c.LoggedIn() {
		span.SetStatus(codes.Error, ErrNotLoggedIn.Error())
		return "", ErrNotLoggedIn
	}

	c.mu.Lock()
	params := map[string]string{
		"pageid":  pageId,
		"id":      c.id,
		"transid": c.transId,
	}
	c.mu.Unlock()
	for key, value := range extraParams {
		params[key] = value
	}

	res, err := c.request(ctx).SetQueryParams(params).Get("/index.php")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "page request failed")
		c.resetSession()
		return "", err
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("fetch page %s: unexpected status %d", pageId, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "page request failed")
		c.resetSession()
		return "", err
	}

	c.mergeResponseCookies(res)
	body := string(res.Body())

	if changesState {
		// the server may rotate the transaction id on navigation,
		// failing to re-verify it is a session-ending error
		doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(body))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse page html")
			c.resetSession()
			return "", err
		}
		id, transId, err := extractSessionIds(doc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to re-verify session ids")
			c.resetSession()
			return "", err
		}
		c.mu.Lock()
		c.id = id
		c.transId = transId
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.lastVisitedPageId = pageId
	c.visitedPages[pageId] = struct{}{}
	c.mu.Unlock()

	return body, nil
}

// VisitedPages returns the page identifiers fetched so far in this
// session.
func (c *Client) VisitedPages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := make([]string, 0, len(c.visitedPages))
	for id := range c.visitedPages {
		pages = append(pages, id)
	}
	return pages
}
