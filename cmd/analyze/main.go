// cmd/analyze/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sozercan/instrument-lens/apimodels"
	"github.com/sozercan/instrument-lens/internal/client"
)

const maxImages = 4

func main() {
	serverURL := pflag.StringP("server", "s", client.DefaultBaseURL, "base URL of the instrument-lens server")
	timeout := pflag.DurationP("timeout", "t", 3*time.Minute, "request timeout")
	rawJSON := pflag.Bool("json", false, "print the raw analysis object instead of a summary")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] IMAGE [IMAGE...]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	paths := pflag.Args()
	if len(paths) == 0 || len(paths) > maxImages {
		pflag.Usage()
		log.Fatalf("expected 1 to %d images, got %d", maxImages, len(paths))
	}

	images := make([]apimodels.ImageInput, 0, len(paths))
	for _, path := range paths {
		img, err := client.ImageFromFile(path)
		if err != nil {
			log.Fatalf("failed to load %s: %v", path, err)
		}
		images = append(images, img)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.NewClient(client.ClientOpts{BaseURL: *serverURL, Timeout: *timeout})
	resp, err := c.Analyze(ctx, images)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	if *rawJSON {
		var out any
		if err := json.Unmarshal(resp.Analysis, &out); err != nil {
			log.Fatalf("invalid analysis: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatal(err)
		}
		return
	}

	result, err := resp.Result()
	if err != nil {
		log.Fatalf("analysis does not match the expected schema: %v", err)
	}
	render(os.Stdout, result)
}

func render(w io.Writer, r *apimodels.AnalysisResult) {
	fmt.Fprintf(w, "%s %s (%s)\n", r.Brand, r.BrandModel, r.MusicalInstrumentCategory)
	fmt.Fprintf(w, "  Finish:     %s\n", orNone(r.Finish))
	fmt.Fprintf(w, "  Condition:  %s\n", r.Condition)
	fmt.Fprintf(w, "  Serial:     %s\n", orNone(r.MetadataSummary.SerialNumber))
	fmt.Fprintf(w, "  Colors:     %s\n", list(r.MetadataSummary.Colors))
	fmt.Fprintf(w, "  Materials:  %s\n", list(r.MetadataSummary.Materials))
	fmt.Fprintf(w, "  Est. value: %s\n", orNone(r.MetadataSummary.EstimatedValue))
	if len(r.NotedBlemishes) > 0 {
		fmt.Fprintln(w, "  Blemishes:")
		for _, b := range r.NotedBlemishes {
			fmt.Fprintf(w, "    - %s\n", b)
		}
	}
}

func orNone(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
