// Command geoquadserver exposes a quadtree.Tree[float64] over HTTP: insert,
// delete, range query, and k-nearest-neighbor, adapted from GeoRunner's
// single-endpoint driver-tracking demo to the generic engine's full surface.
package main

import (
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/444lessio/fastquadtree/internal/config"
	"github.com/444lessio/fastquadtree/quadtree"
)

var worldBounds = mustRect(-180, -90, 180, 90)

func mustRect(minX, minY, maxX, maxY float64) quadtree.Rect[float64] {
	r, err := quadtree.NewRect(minX, minY, maxX, maxY)
	if err != nil {
		panic(err)
	}
	return r
}

const (
	numSimulatedDrivers = 10000
	moveInterval        = 2 * time.Second
)

var (
	capacity = flag.Int("capacity", 4, "leaf bucket capacity")
	maxDepth = flag.Int("max-depth", int(quadtree.UnlimitedDepth), "max tree depth, -1 for unlimited")
	addr     = flag.String("addr", ":8080", "listen address")
	simulate = flag.Bool("simulate", false, "run the synthetic driver-movement workload for local load testing")
)

// index wraps a Tree with the mutex the engine itself doesn't provide —
// mutating calls (Insert/Delete) and reads (Query/NearestNeighbors) must be
// externally synchronized per the core's single-writer concurrency model.
type index struct {
	mu   sync.RWMutex
	tree *quadtree.Tree[float64]
}

func (ix *index) insert(p quadtree.Point[float64]) (uint64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.Insert(p)
}

func (ix *index) delete(id uint64, p quadtree.Point[float64]) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.Delete(id, p)
}

func (ix *index) query(rng quadtree.Rect[float64]) []quadtree.Entry[float64] {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.Query(rng)
}

func (ix *index) nearest(p quadtree.Point[float64], k int, maxDist *float64) []quadtree.Entry[float64] {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.NearestNeighbors(p, k, maxDist)
}

// simulateDriver reproduces GeoRunner's synthetic driver-movement workload
// (random-walk lon/lat with wraparound at the antimeridian/poles) against
// the generic tree instead of the teacher's float64-only Boundary type.
func simulateDriver(ix *index, id uint64, seed int64) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + seed))
	time.Sleep(time.Duration(rng.Intn(5000)) * time.Millisecond)

	p := quadtree.Point[float64]{X: rng.Float64()*360 - 180, Y: rng.Float64()*180 - 90}
	entryID, err := ix.insert(p)
	if err != nil {
		return
	}

	for {
		time.Sleep(moveInterval)
		ix.delete(entryID, p)

		next := quadtree.Point[float64]{
			X: wrap(p.X+(rng.Float64()-0.5)*0.1, -180, 180),
			Y: wrap(p.Y+(rng.Float64()-0.5)*0.1, -90, 90),
		}
		newID, err := ix.insert(next)
		if err != nil {
			return
		}
		entryID, p = newID, next
	}
}

func wrap(v, lo, hi float64) float64 {
	switch {
	case v > hi:
		return lo
	case v < lo:
		return hi
	default:
		return v
	}
}

type insertRequest struct {
	Lon float64 `json:"lon" binding:"required,gte=-180,lte=180"`
	Lat float64 `json:"lat" binding:"required,gte=-90,lte=90"`
}

type insertResponse struct {
	ID uint64 `json:"id"`
}

func handleInsert(ix *index) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req insertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := ix.insert(quadtree.Point[float64]{X: req.Lon, Y: req.Lat})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, insertResponse{ID: id})
	}
}

type entryResponse struct {
	ID  uint64  `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func entriesToResponse(entries []quadtree.Entry[float64]) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = entryResponse{ID: e.ID, Lon: e.Point.X, Lat: e.Point.Y}
	}
	return out
}

// handleFindNearby generalizes GeoRunner's fixed-rectangle /find-nearby: if
// k is supplied it runs a NearestNeighbors search, otherwise it falls back
// to the teacher's behavior of querying a radius-sized rectangle around the
// point.
func handleFindNearby(ix *index) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
		if errLat != nil || errLon != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing 'lat'/'lon'"})
			return
		}
		p := quadtree.Point[float64]{X: lon, Y: lat}

		if kStr := c.Query("k"); kStr != "" {
			k, err := strconv.Atoi(kStr)
			if err != nil || k < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'k'"})
				return
			}
			var maxDist *float64
			if rStr := c.Query("radius"); rStr != "" {
				r, err := strconv.ParseFloat(rStr, 64)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'radius'"})
					return
				}
				maxDist = &r
			}
			c.JSON(http.StatusOK, entriesToResponse(ix.nearest(p, k, maxDist)))
			return
		}

		radius := 20.0
		if rStr := c.Query("radius"); rStr != "" {
			if r, err := strconv.ParseFloat(rStr, 64); err == nil {
				radius = r
			}
		}
		rng, err := quadtree.NewRect(lon-radius, lat-radius, lon+radius, lat+radius)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entriesToResponse(ix.query(rng)))
	}
}

func handleQuery(ix *index) gin.HandlerFunc {
	return func(c *gin.Context) {
		minLon, e1 := strconv.ParseFloat(c.Query("min_lon"), 64)
		minLat, e2 := strconv.ParseFloat(c.Query("min_lat"), 64)
		maxLon, e3 := strconv.ParseFloat(c.Query("max_lon"), 64)
		maxLat, e4 := strconv.ParseFloat(c.Query("max_lat"), 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing min_lon/min_lat/max_lon/max_lat"})
			return
		}
		rng, err := quadtree.NewRect(minLon, minLat, maxLon, maxLat)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entriesToResponse(ix.query(rng)))
	}
}

func handleDelete(ix *index) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		lon, e1 := strconv.ParseFloat(c.Query("lon"), 64)
		lat, e2 := strconv.ParseFloat(c.Query("lat"), 64)
		if e1 != nil || e2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing 'lat'/'lon'"})
			return
		}
		ok := ix.delete(id, quadtree.Point[float64]{X: lon, Y: lat})
		c.JSON(http.StatusOK, gin.H{"deleted": ok})
	}
}

func main() {
	flag.Parse()

	cfg := config.TreeConfig{
		MinX: worldBounds.MinX, MinY: worldBounds.MinY,
		MaxX: worldBounds.MaxX, MaxY: worldBounds.MaxY,
		Capacity: *capacity, MaxDepth: *maxDepth,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	tree, err := quadtree.NewTree[float64](worldBounds, *capacity, *maxDepth)
	if err != nil {
		log.Fatal(err)
	}
	ix := &index{tree: tree}

	if *simulate {
		log.Printf("starting simulation with %d drivers...", numSimulatedDrivers)
		for i := 0; i < numSimulatedDrivers; i++ {
			go simulateDriver(ix, uint64(i), int64(i))
		}
		log.Println("simulation started in the background")
	}

	r := gin.Default()
	r.Use(cors.Default())

	r.POST("/points", handleInsert(ix))
	r.GET("/find-nearby", handleFindNearby(ix))
	r.GET("/query", handleQuery(ix))
	r.DELETE("/points/:id", handleDelete(ix))

	log.Printf("API server listening on http://localhost%s", *addr)
	r.Run(*addr)
}
