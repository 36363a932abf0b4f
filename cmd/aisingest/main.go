// Command aisingest reads raw AIS sentences from a TCP source, decodes
// class A/B position reports, and keeps a live point index of the most
// recent position per vessel (keyed by MMSI), periodically snapshotted to
// disk via the engine's binary format.
package main

import (
	"flag"
	"net"
	"os"
	"sync"
	"time"

	ais "github.com/andmarios/aislib"
	"github.com/cenkalti/backoff"

	"github.com/444lessio/fastquadtree/internal/applog"
	"github.com/444lessio/fastquadtree/quadtree"
)

var (
	sourceAddr    = flag.String("source", "153.44.253.27:5631", "ip:port of the AIS TCP feed")
	silence       = flag.Duration("silence-timeout", 30*time.Second, "reconnect if no data arrives for this long")
	snapshotOut   = flag.String("snapshot", "", "if set, write a binary snapshot of the index to this path periodically")
	snapshotEvery = flag.Duration("snapshot-interval", time.Minute, "how often to write the snapshot")
	logLevel      = flag.Int("log-level", int(applog.Info), "log verbosity threshold (1 fatal .. 9 debug)")
)

// worldBounds covers the full range of AIS longitude/latitude in
// hundred-thousandths of a degree, stored as i32 coordinates so the index
// never pays floating-point overhead for the common "is this ship near
// that point" query.
var worldBounds = mustRect(-18000000, -9000000, 18000000, 9000000)

func mustRect(minX, minY, maxX, maxY int32) quadtree.Rect[int32] {
	r, err := quadtree.NewRect(minX, minY, maxX, maxY)
	if err != nil {
		panic(err)
	}
	return r
}

func toFixed(deg float64) int32 { return int32(deg * 1e5) }

// fleet is the shared, mutex-guarded index of live vessel positions. The
// quadtree core itself has no internal locking (single-writer by design),
// so the ingest goroutine and any HTTP reader goroutine must serialize
// through this mutex the same way the core's concurrency model expects.
type fleet struct {
	mu        sync.RWMutex
	tree      *quadtree.ObjectTree[int32, uint32]
	positions map[uint32]quadtree.Point[int32]
}

func newFleet() *fleet {
	tree, err := quadtree.NewObjectTree[int32, uint32](worldBounds, 64, quadtree.UnlimitedDepth)
	if err != nil {
		panic(err)
	}
	return &fleet{tree: tree, positions: make(map[uint32]quadtree.Point[int32])}
}

// upsert replaces mmsi's last known position: the object map only recovers
// id<->handle, not a point, so the previous point is kept in positions to
// make delete-then-reinsert possible (DeleteByHandle requires the exact
// stored point).
func (f *fleet) upsert(mmsi uint32, lon, lat float64) {
	p := quadtree.Point[int32]{X: toFixed(lon), Y: toFixed(lat)}
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.positions[mmsi]; ok {
		f.tree.DeleteByHandle(mmsi, old)
	}
	if _, err := f.tree.InsertObject(p, mmsi); err == nil {
		f.positions[mmsi] = p
	}
}

func (f *fleet) snapshot() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tree.Tree.Bytes()
}

func newIngestBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 0 // retry forever; a feed outage isn't fatal
	return b
}

// readAIS dials addr, decodes sentences through aislib's router, and feeds
// class A/B position reports into f until the connection drops, then
// reconnects with exponential backoff.
func readAIS(log *applog.Logger, addr string, timeout time.Duration, f *fleet) {
	b := newIngestBackoff()
	for {
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			log.Warning("dial %s failed: %s", addr, err.Error())
			time.Sleep(b.NextBackOff())
			continue
		}
		b.Reset()
		log.Info("connected to %s", addr)
		drainConn(log, conn.(*net.TCPConn), timeout, f)
		log.Warning("connection to %s lost, reconnecting", addr)
	}
}

func drainConn(log *applog.Logger, conn *net.TCPConn, timeout time.Duration, f *fleet) {
	defer conn.Close()
	send := make(chan string, 4096)
	receive := make(chan ais.Message, 4096)
	failed := make(chan ais.FailedSentence, 4096)
	go ais.Router(send, receive, failed)

	go func() {
		for {
			select {
			case msg := <-receive:
				handleMessage(log, f, msg)
			case bad := <-failed:
				log.Debug("unparseable sentence: %s", bad.Issue)
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		conn.SetReadDeadline(time.Now().Add(timeout))
		n, err := conn.Read(buf)
		if err != nil {
			close(send)
			return
		}
		send <- string(buf[:n])
	}
}

func handleMessage(log *applog.Logger, f *fleet, msg ais.Message) {
	switch msg.Type {
	case 1, 2, 3:
		report, err := ais.DecodeClassAPositionReport(msg.Payload)
		if err != nil {
			log.Debug("bad class A report: %s", err.Error())
			return
		}
		f.upsert(report.MMSI, report.Lon, report.Lat)
	case 18:
		report, err := ais.DecodeClassBPositionReport(msg.Payload)
		if err != nil {
			log.Debug("bad class B report: %s", err.Error())
			return
		}
		f.upsert(report.MMSI, report.Lon, report.Lat)
	}
}

func main() {
	flag.Parse()
	log := applog.New(os.Stdout, applog.Level(*logLevel), 10*time.Second)
	f := newFleet()

	log.AddPeriodicStat("fleet-size", 10*time.Second, func(l *applog.Logger, _ time.Duration) {
		f.mu.RLock()
		n := f.tree.Tree.Size()
		f.mu.RUnlock()
		l.Info("tracking %d vessels", n)
	})

	if *snapshotOut != "" {
		go func() {
			for range time.Tick(*snapshotEvery) {
				blob := f.snapshot()
				if err := os.WriteFile(*snapshotOut, blob, 0o644); err != nil {
					log.Error("failed to write snapshot: %s", err.Error())
					continue
				}
				log.Info("wrote snapshot (%d bytes) to %s", len(blob), *snapshotOut)
			}
		}()
	}

	readAIS(log, *sourceAddr, *silence, f)
}
