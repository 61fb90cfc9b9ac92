// Command debug renders a single image file through the full
// transform+dither pipeline outside of a running server, prints an ASCII
// preview of the result, and optionally pushes it to a device — a
// standalone sanity check for a palette/dithering/fit combination before
// it goes into a frame's config.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/jwulff/photoframe-server/internal/dither"
	"github.com/jwulff/photoframe-server/internal/domain"
	"github.com/jwulff/photoframe-server/internal/palette"
	"github.com/jwulff/photoframe-server/internal/transform"
	"github.com/jwulff/photoframe-server/internal/transport"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: debug <image> <panelWidth> <panelHeight> [host:port]")
		fmt.Println("  Renders <image> through the default palette (black/white) and")
		fmt.Println("  'contain' fit, prints an ASCII preview, and optionally pushes the")
		fmt.Println("  result as a BMP to host:port.")
		os.Exit(1)
	}

	path := os.Args[1]
	width, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Printf("invalid panelWidth: %v\n", err)
		os.Exit(1)
	}
	height, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fmt.Printf("invalid panelHeight: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("read %s: %v\n", path, err)
		os.Exit(1)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		fmt.Printf("decode %s: %v\n", path, err)
		os.Exit(1)
	}

	resolver := palette.Resolve([]string{"#000000", "#ffffff"})
	settings := domain.DefaultFrameSettings()
	exifTag := transform.ExifOrientation(data)
	overscan := transform.EffectiveOverscan(domain.Overscan{}, settings)

	intermediate, err := transform.Run(src, width, height, overscan, domain.FitContain, settings, exifTag, domain.NewRGB(255, 255, 255), time.Now())
	if err != nil {
		fmt.Printf("transform: %v\n", err)
		os.Exit(1)
	}

	encoded := dither.Apply(dither.ID(settings.Dithering), intermediate, resolver)

	fmt.Printf("%dx%d frame preview:\n\n", width, height)
	printFrameASCII(encoded)
	fmt.Println()
	fmt.Println("Legend: #=dark ·=light (space)=out of bounds")

	if len(os.Args) < 5 {
		return
	}
	target := os.Args[4]
	fmt.Printf("\nPushing to %s...\n", target)

	cfg := domain.PushTransportConfig{Host: target}
	if host, portStr, err := net.SplitHostPort(target); err == nil {
		cfg.Host = host
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pusher := transport.NewPusher()
	if err := pusher.Push(ctx, cfg, encoded); err != nil {
		fmt.Printf("push failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("push ok")
}

// printFrameASCII renders an indexed frame's brightness as ASCII art,
// adapted from the teacher's block-art frame preview for a palette that
// can be larger than two colors: brightness is the average of whichever
// RGB entry each pixel's index resolves to.
func printFrameASCII(frame *domain.IndexedFrame) {
	fmt.Print("  +")
	for x := 0; x < frame.Width; x++ {
		fmt.Print("-")
	}
	fmt.Println("+")

	for y := 0; y < frame.Height; y++ {
		fmt.Printf("%3d|", y)
		for x := 0; x < frame.Width; x++ {
			idx := frame.Index(x, y)
			if int(idx) >= len(frame.Palette) {
				fmt.Print(" ")
				continue
			}
			c := frame.Palette[idx]
			brightness := (int(c.R) + int(c.G) + int(c.B)) / 3
			if brightness < 128 {
				fmt.Print("#")
			} else {
				fmt.Print("·")
			}
		}
		fmt.Println("|")
	}

	fmt.Print("  +")
	for x := 0; x < frame.Width; x++ {
		fmt.Print("-")
	}
	fmt.Println("+")
}
