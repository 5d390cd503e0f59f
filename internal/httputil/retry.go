// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries    = 3
	defaultBackoffFactor = 500 * time.Millisecond
)

// sleep waits for d or until ctx is done. Tests replace it to record
// delays without real waits.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy controls Fetch retries.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so a
	// target that fails exactly MaxRetries times and then answers is a
	// success. Zero disables retries; negative uses the default (3).
	MaxRetries int

	// BackoffFactor is the delay before retry 0; retry n waits
	// BackoffFactor * 2^n. Zero uses the default (500ms).
	BackoffFactor time.Duration

	// Logger receives one entry per failed attempt. Nil discards.
	Logger logrus.FieldLogger
}

// FetchError describes a failed Fetch. Permanent errors (HTTP 4xx) were
// returned without retrying; transient ones exhausted the retry budget.
type FetchError struct {
	Target     string
	Attempts   int
	StatusCode int
	Err        error
	permanent  bool
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.permanent {
		kind = "permanent"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): HTTP %d", e.Target, kind, e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v", e.Target, kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Permanent reports whether the failure was a client error that retrying
// cannot fix.
func (e *FetchError) Permanent() bool { return e.permanent }

// IsPermanent reports whether err wraps a permanent FetchError.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Permanent()
}

// Backoff returns the delay before retry attempt n (0-indexed).
func Backoff(factor time.Duration, n int) time.Duration {
	return time.Duration(float64(factor) * math.Pow(2, float64(n)))
}

// Fetch executes req and retries on network failure or HTTP 5xx with
// exponential backoff. HTTP 4xx is returned immediately as a permanent
// FetchError. Any other status is a success and the caller owns the
// response body.
//
// The request body is replayed through req.GetBody on retries, so POST
// requests built with http.NewRequest over a bytes reader retry safely. If
// ctx is cancelled during a backoff wait the FetchError wraps ctx.Err().
func Fetch(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = defaultBackoffFactor
	}
	log := p.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	target := req.URL.Redacted()

	for attempt := 0; ; attempt++ {
		attemptReq, err := replay(ctx, req, attempt)
		if err != nil {
			return nil, &FetchError{Target: target, Attempts: attempt + 1, Err: err, permanent: true}
		}

		resp, err := client.Do(attemptReq)
		var status int
		if err == nil {
			status = resp.StatusCode
			if status < 500 {
				if status >= 400 {
					drain(resp)
					log.WithFields(logrus.Fields{
						"op":      "fetch",
						"target":  target,
						"attempt": attempt,
						"status":  status,
					}).Warn("client error, not retrying")
					return nil, &FetchError{Target: target, Attempts: attempt + 1, StatusCode: status, permanent: true}
				}
				return resp, nil
			}
			drain(resp)
			err = fmt.Errorf("server returned HTTP %d", status)
		}

		entry := log.WithFields(logrus.Fields{
			"op":      "fetch",
			"target":  target,
			"attempt": attempt,
		}).WithError(err)

		// A cancelled context is not worth another attempt.
		if ctxErr := ctx.Err(); ctxErr != nil {
			entry.Warn("request abandoned")
			return nil, &FetchError{Target: target, Attempts: attempt + 1, StatusCode: status, Err: ctxErr}
		}

		if attempt >= maxRetries {
			entry.Error("retries exhausted")
			return nil, &FetchError{Target: target, Attempts: attempt + 1, StatusCode: status, Err: err}
		}

		backoff := Backoff(factor, attempt)
		entry.WithField("backoff", backoff).Warn("transient failure, retrying")

		if err := sleep(ctx, backoff); err != nil {
			return nil, &FetchError{Target: target, Attempts: attempt + 1, StatusCode: status, Err: err}
		}
	}
}

// replay returns the request to send for the given attempt.
func replay(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	r := req.Clone(ctx)
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	r.Body = body
	return r, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
