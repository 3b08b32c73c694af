// Command voxelworldctl is the external-collaborator entry point spec.md §6
// describes for an editor or terrain generator driving a world out-of-process:
// create a world, push raw voxel data or a constant fill into it, regenerate
// its LOD pyramid, and inspect what's on disk.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "create":
		err = runCreate(args)
	case "import":
		err = runImport(args)
	case "fill":
		err = runFill(args)
	case "regenerate-lod":
		err = runRegenerateLOD(args)
	case "inspect":
		err = runInspect(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "voxelworldctl: unknown command %q\n", sub)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "voxelworldctl %s: %v\n", sub, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: voxelworldctl <command> [flags]

commands:
  create          initialize a new, empty world manifest
  import          load a raw voxel byte stream into a region and regenerate its LOD pyramid
  fill            fill a region with a constant density/material and regenerate its LOD pyramid
  regenerate-lod  regenerate the LOD pyramid above an already-written region
  inspect         report per-tree occupancy, brick cache stats, and the loaded-content AABB

Run "voxelworldctl <command> -h" for a command's flags.
`)
}
