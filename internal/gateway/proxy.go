package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// maxMultipartMemory bounds the in-memory portion of a parsed upload;
// larger file parts spill to disk.
const maxMultipartMemory = 32 << 20

// hopHeaders are never forwarded in either direction.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// strippedRequestHeaders are owned by the gateway: the caller's credential
// never crosses, Host and Content-Length are recomputed by the transport.
var strippedRequestHeaders = []string{
	"Host",
	"Authorization",
	"Cookie",
	"Content-Length",
}

// Forwarder executes bounded upstream calls over one shared client. Each
// call carries its own deadline so a stalled backend releases the socket.
// Retries are never attempted; downstream idempotency cannot be assumed.
type Forwarder struct {
	upstream *url.URL
	client   *http.Client
	timeout  time.Duration
	log      *zap.Logger
}

// NewForwarder builds a Forwarder targeting the upstream base URL.
func NewForwarder(upstream string, timeout time.Duration, log *zap.Logger) (*Forwarder, error) {
	parsed, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("upstream url %q needs a scheme and host", upstream)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Forwarder{
		upstream: parsed,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
		log:     log,
	}, nil
}

// Forward proxies r to the upstream. mintedAuth, when non-empty, becomes the
// outbound Authorization header. cacheMaxAge marks the route cacheable; the
// directive is attached only to 200 responses to GET.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, mintedAuth string, cacheMaxAge time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()

	out, err := f.buildRequest(ctx, r, mintedAuth)
	if err != nil {
		f.log.Warn("unable to build upstream request", zap.Error(err))
		WriteError(w, f.log, http.StatusBadGateway, APIError{
			Code:    CodeUpstreamError,
			Message: "unable to forward request",
		})
		return
	}

	resp, err := f.client.Do(out)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.GatewayUpstreamTimeouts.Inc()
			WriteError(w, f.log, http.StatusGatewayTimeout, APIError{
				Code:    CodeUpstreamTimeout,
				Message: "upstream did not answer in time",
			})
			return
		}
		WriteError(w, f.log, http.StatusBadGateway, APIError{
			Code:    CodeUpstreamError,
			Message: "upstream request failed",
		})
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	if cacheMaxAge > 0 && r.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		w.Header().Set("Cache-Control", cacheDirective(cacheMaxAge))
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		f.log.Debug("response copy interrupted", zap.Error(err))
	}
}

// buildRequest clones method, path, query, headers and body onto a fresh
// upstream request. Multipart bodies are re-encoded with a new boundary so
// content-type and length are recomputed rather than trusted from the caller.
func (f *Forwarder) buildRequest(ctx context.Context, r *http.Request, mintedAuth string) (*http.Request, error) {
	target := *f.upstream
	target.Path = strings.TrimSuffix(f.upstream.Path, "/") + r.URL.Path
	target.RawQuery = r.URL.RawQuery

	body := io.Reader(r.Body)
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		rebuilt, freshType, err := rebuildMultipart(r)
		if err != nil {
			return nil, fmt.Errorf("re-encode multipart body: %w", err)
		}
		body, contentType = rebuilt, freshType
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	copyRequestHeaders(out.Header, r.Header)
	if contentType != "" {
		out.Header.Set("Content-Type", contentType)
	}
	if mintedAuth != "" {
		out.Header.Set("Authorization", mintedAuth)
	}
	return out, nil
}

// rebuildMultipart re-encodes the parsed form with a fresh boundary. Part
// headers are carried over so field names, filenames and part content types
// survive the rewrap.
func rebuildMultipart(r *http.Request) (io.Reader, string, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, "", fmt.Errorf("parse multipart form: %w", err)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, values := range r.MultipartForm.Value {
		for _, value := range values {
			if err := mw.WriteField(field, value); err != nil {
				return nil, "", err
			}
		}
	}
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			if err := copyFilePart(mw, fh); err != nil {
				return nil, "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func copyFilePart(mw *multipart.Writer, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	part, err := mw.CreatePart(fh.Header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

func copyRequestHeaders(dst, src http.Header) {
	skip := make(map[string]struct{}, len(hopHeaders)+len(strippedRequestHeaders))
	for _, h := range hopHeaders {
		skip[h] = struct{}{}
	}
	for _, h := range strippedRequestHeaders {
		skip[h] = struct{}{}
	}
	copyHeaders(dst, src, skip)
}

func copyResponseHeaders(dst, src http.Header) {
	skip := make(map[string]struct{}, len(hopHeaders))
	for _, h := range hopHeaders {
		skip[h] = struct{}{}
	}
	copyHeaders(dst, src, skip)
}

func copyHeaders(dst, src http.Header, skip map[string]struct{}) {
	for name, values := range src {
		if _, drop := skip[http.CanonicalHeaderKey(name)]; drop {
			continue
		}
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}

// cacheDirective emits the private caching policy for a whitelisted route.
// The stale-while-revalidate allowance is always double the max-age.
func cacheDirective(maxAge time.Duration) string {
	seconds := int(maxAge.Seconds())
	return fmt.Sprintf("private, max-age=%d, stale-while-revalidate=%d", seconds, 2*seconds)
}
