package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/internal/applog"
	"github.com/voxelkeep/voxelworld/octree"
	"github.com/voxelkeep/voxelworld/storage"
	"github.com/voxelkeep/voxelworld/world"
)

// worldFlags is the set of flags every subcommand needs to open the same
// World a prior `create` call configured; grounded on cc-backend's
// cmd/cc-backend/cli.go flat flag.*Var declarations.
type worldFlags struct {
	prefix    string
	w, h, d   int
	nlod      int
	usage     string
	maxCached int
	debug     bool
}

func (wf *worldFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&wf.prefix, "prefix", ".", "world directory prefix")
	fs.IntVar(&wf.w, "w", 32, "per-node brick width (must match the value given to create)")
	fs.IntVar(&wf.h, "h", 32, "per-node brick height (must match the value given to create)")
	fs.IntVar(&wf.d, "d", 32, "per-node brick depth (must match the value given to create)")
	fs.IntVar(&wf.nlod, "nlod", 1, "number of LOD levels (must match the value given to create)")
	fs.StringVar(&wf.usage, "usage", "density", "voxel usage: `density` or `material` (must match the value given to create)")
	fs.IntVar(&wf.maxCached, "max-cached", 256, "per-tree brick LRU bound")
	fs.BoolVar(&wf.debug, "debug", false, "enable debug logging")
}

func (wf *worldFlags) usageKind() (octree.Usage, error) {
	switch wf.usage {
	case "density":
		return octree.Density, nil
	case "material":
		return octree.Material, nil
	default:
		return 0, fmt.Errorf("unknown -usage %q (want density or material)", wf.usage)
	}
}

func (wf *worldFlags) open(createTrees bool) (*world.World, applog.Logger, error) {
	usage, err := wf.usageKind()
	if err != nil {
		return nil, nil, err
	}
	logger := applog.NewStderr(wf.debug)
	w, err := world.New(world.Config{
		FS:             storage.OSFileSystem{},
		Mkdir:          storage.OSMkdir,
		Prefix:         wf.prefix,
		W:              wf.w,
		H:              wf.h,
		D:              wf.d,
		NLod:           wf.nlod,
		Usage:          usage,
		MaxCachedBrick: wf.maxCached,
		CreateTrees:    createTrees,
		Logger:         logger,
	})
	return w, logger, err
}

// regionFlags describes a rect argument shared by import/fill/regenerate-lod:
// an origin and extent at a given LOD level.
type regionFlags struct {
	level      int
	x, y, z    int
	sx, sy, sz int
}

func (rf *regionFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&rf.level, "level", 0, "LOD level the region is expressed at")
	fs.IntVar(&rf.x, "x", 0, "region origin x")
	fs.IntVar(&rf.y, "y", 0, "region origin y")
	fs.IntVar(&rf.z, "z", 0, "region origin z")
	fs.IntVar(&rf.sx, "sx", 0, "region extent x")
	fs.IntVar(&rf.sy, "sy", 0, "region extent y")
	fs.IntVar(&rf.sz, "sz", 0, "region extent z")
}

func (rf *regionFlags) rect() geom.IntRect3 {
	return geom.RectFromSize(geom.Vec3i{X: rf.x, Y: rf.y, Z: rf.z}, rf.sx, rf.sy, rf.sz)
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	wf := &worldFlags{}
	wf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, log, err := wf.open(true)
	if err != nil {
		return err
	}
	if err := w.SaveManifest(); err != nil {
		return err
	}
	log.Infof("created world at %s (w=%d h=%d d=%d nlod=%d usage=%s)", wf.prefix, wf.w, wf.h, wf.d, wf.nlod, wf.usage)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	wf := &worldFlags{}
	wf.register(fs)
	rf := &regionFlags{}
	rf.register(fs)
	dataPath := fs.String("data", "-", "path to a raw voxel byte stream, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, log, err := wf.open(true)
	if err != nil {
		return err
	}
	if err := w.LoadManifest(); err != nil {
		return fmt.Errorf("loading world manifest (run \"create\" first): %w", err)
	}

	rect := rf.rect()
	r := os.Stdin
	if *dataPath != "-" {
		f, err := os.Open(*dataPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	data := make([]byte, rect.Volume())
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("reading voxel stream for %s: %w", rect, err)
	}
	if err := w.SetRegion(rf.level, rect, data); err != nil {
		return err
	}

	touched, err := w.GenerateAllLOD(rf.level, rect)
	if err != nil {
		return err
	}
	log.Infof("imported %s at level %d, LOD regenerated up to %s", rect, rf.level, touched)

	if err := w.SyncAll(); err != nil {
		return err
	}
	if err := w.SaveManifest(); err != nil {
		return err
	}
	return drainUpdatedRegions(w, log)
}

func runFill(args []string) error {
	fs := flag.NewFlagSet("fill", flag.ExitOnError)
	wf := &worldFlags{}
	wf.register(fs)
	rf := &regionFlags{}
	rf.register(fs)
	material := fs.Int("material", 255, "fill byte (0-255)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *material < 0 || *material > 255 {
		return fmt.Errorf("-material %d out of byte range", *material)
	}

	w, log, err := wf.open(true)
	if err != nil {
		return err
	}
	if err := w.LoadManifest(); err != nil {
		return fmt.Errorf("loading world manifest (run \"create\" first): %w", err)
	}

	rect := rf.rect()
	if err := w.FillRegion(rf.level, rect, byte(*material)); err != nil {
		return err
	}

	touched, err := w.GenerateAllLOD(rf.level, rect)
	if err != nil {
		return err
	}
	log.Infof("filled %s at level %d with %d, LOD regenerated up to %s", rect, rf.level, *material, touched)

	if err := w.SyncAll(); err != nil {
		return err
	}
	if err := w.SaveManifest(); err != nil {
		return err
	}
	return drainUpdatedRegions(w, log)
}

func runRegenerateLOD(args []string) error {
	fs := flag.NewFlagSet("regenerate-lod", flag.ExitOnError)
	wf := &worldFlags{}
	wf.register(fs)
	rf := &regionFlags{}
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, log, err := wf.open(false)
	if err != nil {
		return err
	}
	if err := w.LoadManifest(); err != nil {
		return fmt.Errorf("loading world manifest (run \"create\" first): %w", err)
	}

	rect := rf.rect()
	touched, err := w.GenerateAllLOD(rf.level, rect)
	if err != nil {
		return err
	}
	log.Infof("LOD above %s (level %d) regenerated up to %s", rect, rf.level, touched)

	if err := w.SyncAll(); err != nil {
		return err
	}
	if err := w.SaveManifest(); err != nil {
		return err
	}
	return drainUpdatedRegions(w, log)
}

// drainUpdatedRegions prints and empties the ring of regions a downstream
// mesh extractor would need to revisit (spec.md §4.5).
func drainUpdatedRegions(w *world.World, log applog.Logger) error {
	n := w.PendingUpdatedRegions()
	for i := 0; i < n; i++ {
		level, rect, err := w.GetNextUpdatedRegion()
		if err != nil {
			return err
		}
		fmt.Printf("updated level=%d rect=%s\n", level, rect)
	}
	log.Infof("drained %d updated region(s)", n)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	wf := &worldFlags{}
	wf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, log, err := wf.open(false)
	if err != nil {
		return err
	}
	if err := w.LoadManifest(); err != nil {
		return fmt.Errorf("loading world manifest: %w", err)
	}

	trees := w.Trees()
	keys := make([]geom.Vec3i, 0, len(trees))
	for k := range trees {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	// minB/maxB accumulate the AABB of every non-empty node found at the
	// finest loaded level, the same corner/min-max combining style as
	// XBrickMap.ComputeAABB, generalized from a flat sector map to the
	// paged octree's FetchNodes.
	minB := mgl32.Vec3{1e20, 1e20, 1e20}
	maxB := mgl32.Vec3{-1e20, -1e20, -1e20}
	found := false
	var totalNodes, totalFull, totalLeaf, totalInterior int

	for _, key := range keys {
		t := trees[key]
		nodes, err := w.FetchNodes(0, t.RootRect0())
		if err != nil {
			return err
		}
		var full, leaf, interior int
		for _, n := range nodes {
			switch n.Status {
			case octree.StatusFull:
				full++
			case octree.StatusLeaf:
				leaf++
			case octree.StatusInterior:
				interior++
			}
			lo := mgl32.Vec3{float32(n.Rect0.P1.X), float32(n.Rect0.P1.Y), float32(n.Rect0.P1.Z)}
			hi := mgl32.Vec3{float32(n.Rect0.P2.X), float32(n.Rect0.P2.Y), float32(n.Rect0.P2.Z)}
			minB = mgl32.Vec3{min(minB.X(), lo.X()), min(minB.Y(), lo.Y()), min(minB.Z(), lo.Z())}
			maxB = mgl32.Vec3{max(maxB.X(), hi.X()), max(maxB.Y(), hi.Y()), max(maxB.Z(), hi.Z())}
			found = true
		}
		stats := t.CacheStats()
		fmt.Printf("region %d,%d,%d: footprint=%s nodes=%d (full=%d leaf=%d interior=%d) cache=%d/%d dirty=%d\n",
			key.X, key.Y, key.Z, t.RootRect0(), len(nodes), full, leaf, interior, stats.Cached, stats.Max, stats.Dirty)
		totalNodes += len(nodes)
		totalFull += full
		totalLeaf += leaf
		totalInterior += interior
	}

	fmt.Printf("trees=%d nodes=%d (full=%d leaf=%d interior=%d)\n", len(trees), totalNodes, totalFull, totalLeaf, totalInterior)
	if found {
		fmt.Printf("aabb: (%.0f,%.0f,%.0f)-(%.0f,%.0f,%.0f)\n", minB.X(), minB.Y(), minB.Z(), maxB.X(), maxB.Y(), maxB.Z())
	} else {
		fmt.Println("aabb: empty (no non-empty content)")
	}
	log.Debugf("inspected %d trees", len(trees))
	return nil
}
