// Command seed bulk-loads a newline-delimited "lon,lat" (or "lon,lat,id")
// source into a quadtree.Tree and reports construction throughput, the
// scenario the engine's "rebuild beats insert_many" serialization design
// exists to make fast.
package main

import (
	"bufio"
	"flag"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/444lessio/fastquadtree/internal/applog"
	"github.com/444lessio/fastquadtree/quadtree"
)

var (
	source   = flag.String("source", "", "path or http(s) URL of the lon,lat[,id] source (required)")
	capacity = flag.Int("capacity", 16, "leaf bucket capacity")
	maxDepth = flag.Int("max-depth", int(quadtree.UnlimitedDepth), "max tree depth, -1 for unlimited")
	bulk     = flag.Bool("bulk", true, "use InsertManyBulk's parallel-slice path instead of InsertMany")
	snapshot = flag.String("snapshot", "", "if set, write the built tree's binary snapshot to this path")
)

var worldBounds = mustRect(-180, -90, 180, 90)

func mustRect(minX, minY, maxX, maxY float64) quadtree.Rect[float64] {
	r, err := quadtree.NewRect(minX, minY, maxX, maxY)
	if err != nil {
		panic(err)
	}
	return r
}

// open returns a reader for source, retrying with backoff if it looks like
// a remote URL (mirroring tormol/AIS's NewSourceBackoff reconnection
// policy, applied here to a one-shot fetch instead of a long-lived stream).
func open(log *applog.Logger, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.Open(source)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 5 * time.Minute

	var resp *http.Response
	err := backoff.Retry(func() error {
		r, err := http.Get(source)
		if err != nil {
			return err
		}
		if r.StatusCode != http.StatusOK {
			r.Body.Close()
			return errHTTPStatus(r.StatusCode)
		}
		resp = r
		return nil
	}, b)
	if err != nil {
		return nil, err
	}
	log.Info("fetched %s", source)
	return resp.Body, nil
}

type errHTTPStatus int

func (e errHTTPStatus) Error() string {
	return "unexpected status " + strconv.Itoa(int(e))
}

// parseLines reads "lon,lat" or "lon,lat,id" records, returning parallel
// coordinate slices plus an id slice (nil if no record supplied an id),
// exactly the shape InsertManyBulk wants.
func parseLines(r io.Reader) (xs, ys []float64, ids []uint64, err error) {
	scanner := bufio.NewScanner(r)
	haveIDs := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		lon, e := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if e != nil {
			return nil, nil, nil, e
		}
		lat, e := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if e != nil {
			return nil, nil, nil, e
		}
		xs = append(xs, lon)
		ys = append(ys, lat)
		if len(parts) >= 3 {
			id, e := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 64)
			if e != nil {
				return nil, nil, nil, e
			}
			ids = append(ids, id)
			haveIDs = true
		} else {
			ids = append(ids, 0)
		}
	}
	if !haveIDs {
		ids = nil
	}
	return xs, ys, ids, scanner.Err()
}

func main() {
	flag.Parse()
	log := applog.New(os.Stdout, applog.Info, 0)
	if *source == "" {
		log.Fatal("-source is required")
	}

	r, err := open(log, *source)
	log.FatalIfErr(err, "open source")
	defer r.Close()

	xs, ys, ids, err := parseLines(r)
	log.FatalIfErr(err, "parse source")
	log.Info("parsed %d records", len(xs))

	tree, err := quadtree.NewTree[float64](worldBounds, *capacity, *maxDepth)
	log.FatalIfErr(err, "construct tree")

	started := time.Now()
	var n int
	if *bulk {
		n, err = tree.InsertManyBulk(xs, ys, ids)
	} else {
		points := make([]quadtree.Point[float64], len(xs))
		for i := range xs {
			points[i] = quadtree.Point[float64]{X: xs[i], Y: ys[i]}
		}
		n, err = tree.InsertMany(points)
	}
	elapsed := time.Since(started)
	if err != nil {
		log.Warning("stopped after %d/%d inserts: %s", n, len(xs), err.Error())
	}
	rate := float64(n) / elapsed.Seconds()
	log.Info("inserted %d points in %s (%.0f points/sec)", n, elapsed, rate)

	if *snapshot != "" {
		blob := tree.Bytes()
		log.FatalIfErr(os.WriteFile(*snapshot, blob, 0o644), "write snapshot")
		log.Info("wrote %d-byte snapshot to %s", len(blob), *snapshot)
	}
}
