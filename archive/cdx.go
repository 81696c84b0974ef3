package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"imgur-archive-hunter/tr"
)

const (
	DefaultCDXEndpoint  = "https://web.archive.org/cdx/search/cdx"
	DefaultWebEndpoint  = "https://web.archive.org/web"
	DefaultProbeTimeout = 20 * time.Second
)

var tracer = otel.Tracer("archive")

// ErrNotFound means no candidate extension had an archived capture.
var ErrNotFound = errors.New("not found in archive")

// Snapshot is one archived capture chosen for an imgur ID.
type Snapshot struct {
	ArchiveURL string
	Extension  string
	Timestamp  string
}

// Resolver looks imgur probe URLs up in the Wayback Machine CDX index.
// The zero value is not usable; fill in at least Client, or use
// NewResolver for the public archive defaults.
type Resolver struct {
	Client      *http.Client
	CDXEndpoint string
	WebEndpoint string
	Timeout     time.Duration

	// Log, when set, receives one short line per probe. Used to feed
	// the batch event stream.
	Log func(msg string)
}

func NewResolver() *Resolver {
	return &Resolver{
		Client:      &http.Client{},
		CDXEndpoint: DefaultCDXEndpoint,
		WebEndpoint: DefaultWebEndpoint,
		Timeout:     DefaultProbeTimeout,
	}
}

// Resolve probes the CDX index for id under each extension in order and
// returns the snapshot for the first extension that has one. Earlier
// extensions win outright, even when a later one also has captures.
// Transient failures on a single probe are logged and skipped; a
// cancelled context aborts immediately. When every extension comes up
// empty, Resolve fails with ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, id string, exts []string) (snap Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "resolve")
	defer tr.End(span, &err)
	span.SetAttributes(attribute.String("imgur_id", id))

	for _, ext := range exts {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		r.logf("Checking %s...", ext)

		snap, found, probeErr := r.probe(ctx, id, ext)
		if probeErr != nil {
			if ctx.Err() != nil {
				return Snapshot{}, ctx.Err()
			}
			// Treated the same as no capture for this extension.
			r.logf("probe %s failed: %v", ext, probeErr)
			continue
		}
		if found {
			span.SetAttributes(attribute.String("matched_extension", ext))
			return snap, nil
		}
	}

	return Snapshot{}, ErrNotFound
}

func (r *Resolver) probe(ctx context.Context, id, ext string) (Snapshot, bool, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := url.Values{
		"url":    {fmt.Sprintf("https://i.imgur.com/%s%s", id, ext)},
		"output": {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.CDXEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("building cdx request: %w", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("querying cdx index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logf("cdx status %s probing %s, skipping", resp.Status, ext)
		return Snapshot{}, false, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("reading cdx response: %w", err)
	}

	// The CDX JSON output is an array of rows where row 0 is a header.
	// The last row is the most recent capture; fields 1 and 2 are the
	// timestamp and the original URL.
	rows := gjson.ParseBytes(body).Array()
	if len(rows) == 0 {
		return Snapshot{}, false, nil
	}
	if len(rows) < 2 {
		r.logf("cdx returned no capture rows for %s, skipping", ext)
		return Snapshot{}, false, nil
	}
	last := rows[len(rows)-1].Array()
	if len(last) < 3 {
		r.logf("cdx capture row for %s is malformed, skipping", ext)
		return Snapshot{}, false, nil
	}

	ts := last[1].String()
	orig := last[2].String()
	if ts == "" || orig == "" {
		r.logf("cdx capture row for %s is malformed, skipping", ext)
		return Snapshot{}, false, nil
	}

	web := r.WebEndpoint
	if web == "" {
		web = DefaultWebEndpoint
	}

	// The if_ modifier asks the archive for the raw resource instead of
	// the replay-wrapped page.
	return Snapshot{
		ArchiveURL: fmt.Sprintf("%s/%sif_/%s", web, ts, orig),
		Extension:  ext,
		Timestamp:  ts,
	}, true, nil
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log(fmt.Sprintf(format, args...))
	}
}
