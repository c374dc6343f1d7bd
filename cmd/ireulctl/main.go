// ireulctl is the operator client for the ireul control endpoint.
//
//	ireulctl [-addr host:port] status
//	ireulctl [-addr host:port] enqueue [-meta KEY=value ...] <file>
//	ireulctl [-addr host:port] fast-forward
//	ireulctl [-addr host:port] replace-fallback [-meta KEY=value ...] <file>
//
// When no -meta flags are given, enqueue reads ARTIST and TITLE from the
// file's own tags.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/rpc"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
)

type metaFlags []vorbis.Comment

func (m *metaFlags) String() string {
	parts := make([]string, 0, len(*m))
	for _, c := range *m {
		parts = append(parts, c.Key+"="+c.Value)
	}
	return strings.Join(parts, ",")
}

func (m *metaFlags) Set(value string) error {
	key, val, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("metadata must be KEY=value, got %q", value)
	}
	*m = append(*m, vorbis.Comment{Key: strings.ToUpper(key), Value: val})
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	addr := flag.String("addr", envOr("IREUL_ADDR", "127.0.0.1:3001"), "control endpoint address")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-addr host:port] <status|enqueue|fast-forward|replace-fallback> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	client, err := rpc.Dial(*addr)
	if err != nil {
		fatalf("failed to connect to %s: %v", *addr, err)
	}
	defer client.Close()

	switch flag.Arg(0) {
	case "status":
		runStatus(client)
	case "enqueue":
		runSubmit(client, flag.Args()[1:], false)
	case "fast-forward":
		if err := client.FastForward(); err != nil {
			fatalf("fast-forward failed: %v", err)
		}
		fmt.Println("ok")
	case "replace-fallback":
		runSubmit(client, flag.Args()[1:], true)
	default:
		fatalf("unknown command %q", flag.Arg(0))
	}
}

func runStatus(client *rpc.Client) {
	queue, err := client.QueueStatus()
	if err != nil {
		fatalf("status failed: %v", err)
	}

	fmt.Println("upcoming:")
	if len(queue.Upcoming) == 0 {
		fmt.Println("  (empty)")
	}
	for i, info := range queue.Upcoming {
		printInfo(i, info)
	}

	fmt.Println("history:")
	if len(queue.History) == 0 {
		fmt.Println("  (empty)")
	}
	for i, info := range queue.History {
		printInfo(i, info)
	}
}

func printInfo(i int, info core.TrackInfo) {
	line := fmt.Sprintf("  %2d. handle=%d samples=%d", i+1, info.Handle, info.SamplePosition)
	if info.StartedAt != nil {
		line += fmt.Sprintf(" started=%s", info.StartedAt.Format("15:04:05"))
	}
	fmt.Println(line)
}

func runSubmit(client *rpc.Client, args []string, fallback bool) {
	name := "enqueue"
	if fallback {
		name = "replace-fallback"
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var meta metaFlags
	fs.Var(&meta, "meta", "metadata entry KEY=value (repeatable; replaces the track's comments)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fatalf("%s needs exactly one file argument", name)
	}
	path := fs.Arg(0)

	buf, err := os.ReadFile(path)
	if err != nil {
		fatalf("failed to read %s: %v", path, err)
	}

	metadata := []vorbis.Comment(meta)
	if metadata == nil {
		metadata = probeTags(path)
	}

	if fallback {
		if err := client.ReplaceFallback(buf, metadata); err != nil {
			fatalf("replace-fallback failed: %v", err)
		}
		fmt.Println("ok")
		return
	}

	handle, err := client.Enqueue(buf, metadata)
	if err != nil {
		fatalf("enqueue failed: %v", err)
	}
	fmt.Printf("enqueued with handle %d\n", handle)
}

// probeTags pulls ARTIST and TITLE out of the file's own tags, leaving the
// track's comments untouched if the file has none.
func probeTags(path string) []vorbis.Comment {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}

	var out []vorbis.Comment
	if artist := m.Artist(); artist != "" {
		out = append(out, vorbis.Comment{Key: "ARTIST", Value: artist})
	}
	if title := m.Title(); title != "" {
		out = append(out, vorbis.Comment{Key: "TITLE", Value: title})
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
