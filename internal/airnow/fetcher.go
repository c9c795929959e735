package airnow

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	// MaxLookbackHours is the largest historical window a single fetch may cover.
	MaxLookbackHours = 168

	// DefaultWorkers is the default number of concurrent snapshot requests.
	DefaultWorkers = 56

	minWorkers = 2
	maxWorkers = 70

	// DefaultFetchTimeout bounds a single hourly snapshot request.
	DefaultFetchTimeout = 10 * time.Second

	// publicationLag is how far behind real time the newest snapshot is
	// expected to be available upstream.
	publicationLag = 3 * time.Hour
)

// Fetcher retrieves hourly AirNow snapshots concurrently.
type Fetcher struct {
	client  *http.Client
	baseURL string
	workers int
	timeout time.Duration
}

// NewFetcher creates a Fetcher. workers is clamped to [2,70]; zero or
// negative values select the default. A zero timeout selects the default
// per-hour timeout.
func NewFetcher(client *http.Client, baseURL string, workers int, timeout time.Duration) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers < minWorkers {
		workers = minWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		client:  client,
		baseURL: baseURL,
		workers: workers,
		timeout: timeout,
	}
}

// ReferenceTime returns the newest snapshot hour expected to be published:
// Eastern time minus the upstream publication lag.
func ReferenceTime(now time.Time) time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Add(-publicationLag)
}

// SnapshotURL maps a target hour to its deterministic snapshot resource.
func (f *Fetcher) SnapshotURL(t time.Time) string {
	year := t.Format("2006")
	date := t.Format("20060102")
	hour := t.Format("15")
	return fmt.Sprintf("%s/airnow/%s/%s/HourlyAQObs_%s%s.dat", f.baseURL, year, date, date, hour)
}

// FetchWindow retrieves snapshots for hour offsets 0..hours-1 back from ref
// (offset i = ref minus i hours) and returns the records concatenated in
// offset order. Completion order never leaks into the output: results are
// collected keyed by offset and replayed 0..hours-1 once every request has
// resolved. A per-hour failure yields zero records for that hour and does
// not abort the batch. hours is clamped to [1,168].
func (f *Fetcher) FetchWindow(ctx context.Context, ref time.Time, hours int) ([]HourlyRecord, error) {
	if hours < 1 {
		hours = 1
	}
	if hours > MaxLookbackHours {
		hours = MaxLookbackHours
	}

	workers := f.workers
	if workers > hours {
		workers = hours
	}

	// Each worker writes only its own offsets, so the results slice needs
	// no lock.
	results := make([][]HourlyRecord, hours)
	offsets := make(chan int)

	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for i := range offsets {
				results[i] = f.fetchHour(ctx, ref.Add(-time.Duration(i)*time.Hour))
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < hours; i++ {
		offsets <- i
	}
	close(offsets)
	for w := 0; w < workers; w++ {
		<-done
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []HourlyRecord
	for i := 0; i < hours; i++ {
		all = append(all, results[i]...)
	}
	log.Printf("airnow: fetched %d records across %d hours", len(all), hours)
	return all, nil
}

// fetchHour retrieves and parses a single snapshot. All failures are
// absorbed: they are logged and produce an empty hour.
func (f *Fetcher) fetchHour(ctx context.Context, target time.Time) []HourlyRecord {
	url := f.SnapshotURL(target)

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("airnow: build request for %s: %v", url, err)
		return nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("airnow: fetch %s: %v", url, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("airnow: fetch %s: status %d", url, resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("airnow: read %s: %v", url, err)
		return nil
	}

	return ParseSnapshot(string(body))
}
