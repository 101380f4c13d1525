// meshtool is a CLI utility for inspecting terrain mesh dumps.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Faultbox/quadsphere/internal/engine/terrain/meshdump"
	"github.com/Faultbox/quadsphere/pkg/cubesphere"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - terrain mesh dump utility

Usage:
  meshtool <command> [options]

Commands:
  info <dump.qsmd>                     Show dump summary
  list <dump.qsmd> [face]              List patches (optional face filter, e.g. +X)
  extract <dump.qsmd> <index> [output] Write one patch as Wavefront OBJ

Examples:
  meshtool info sphere.qsmd
  meshtool list -level 12 sphere.qsmd -Z
  meshtool extract sphere.qsmd 42 patch42.obj`)
}

func openDump(path string) meshdump.Dump {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	d, err := meshdump.Read(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return d
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool info <dump.qsmd>")
		os.Exit(1)
	}

	d := openDump(args[0])

	var vertices, triangles int
	perFace := make(map[cubesphere.Face]int)
	perLevel := make(map[int]int)
	for _, p := range d.Patches {
		vertices += p.Mesh.VertexCount()
		triangles += p.Mesh.TriangleCount()
		perFace[p.Face]++
		perLevel[p.Level]++
	}

	fmt.Printf("Dump:      %s\n", args[0])
	fmt.Printf("Radius:    %.1f\n", d.Radius)
	fmt.Printf("Patches:   %d\n", len(d.Patches))
	fmt.Printf("Vertices:  %d\n", vertices)
	fmt.Printf("Triangles: %d\n", triangles)
	fmt.Println()
	fmt.Println("Patches by face:")
	for _, f := range cubesphere.Faces {
		fmt.Printf("  %-4s %d\n", f, perFace[f])
	}

	levels := make([]int, 0, len(perLevel))
	for l := range perLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	fmt.Println()
	fmt.Println("Patches by level:")
	for _, l := range levels {
		fmt.Printf("  %-4d %d\n", l, perLevel[l])
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N patches (0 = all)")
	level := fs.Int("level", -1, "Only list patches at this level")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool list <dump.qsmd> [face]")
		os.Exit(1)
	}

	d := openDump(fs.Arg(0))

	face := ""
	if fs.NArg() > 1 {
		face = fs.Arg(1)
	}

	count := 0
	for i, p := range d.Patches {
		if face != "" && p.Face.String() != face {
			continue
		}
		if *level >= 0 && p.Level != *level {
			continue
		}
		fmt.Printf("%5d  %-3s L%-2d center=(%+.6f, %+.6f) verts=%d tris=%d\n",
			i, p.Face, p.Level, p.Center.X, p.Center.Y, p.Mesh.VertexCount(), p.Mesh.TriangleCount())
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if face != "" || *level >= 0 {
		fmt.Fprintf(os.Stderr, "\n(%d patches matched)\n", count)
	}
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool extract <dump.qsmd> <index> [output.obj]")
		os.Exit(1)
	}

	d := openDump(fs.Arg(0))

	index, err := strconv.Atoi(fs.Arg(1))
	if err != nil || index < 0 || index >= len(d.Patches) {
		fmt.Fprintf(os.Stderr, "Patch index out of range: %s (dump has %d patches)\n", fs.Arg(1), len(d.Patches))
		os.Exit(1)
	}
	p := d.Patches[index]

	outputPath := fmt.Sprintf("patch_%d.obj", index)
	if fs.NArg() > 2 {
		outputPath = fs.Arg(2)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
		os.Exit(1)
	}
	if err := meshdump.WriteOBJ(f, p); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Extracted: %s (%s level %d, %d triangles)\n", outputPath, p.Face, p.Level, p.Mesh.TriangleCount())
}
