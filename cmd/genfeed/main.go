// Command genfeed fabricates Markdown model listings for local runs.
// It writes one listing to a file or stdout, or serves a fresh listing
// per request so a tracker's source URL can point at it.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/okian/modelrank/internal/feedgen"
)

const (
	defaultModels       = 20
	defaultServeTimeout = 10 * time.Second
)

func main() {
	var (
		numModels = flag.Int("models", defaultModels, "Number of models to generate")
		format    = flag.String("format", feedgen.FormatTable, "Listing format: table or bullets")
		output    = flag.String("output", "", "Output file (default: stdout)")
		serve     = flag.String("serve", "", "Serve a fresh listing per request at this address instead of writing one")
	)
	flag.Parse()

	if *serve != "" {
		srv := &http.Server{
			Addr:         *serve,
			ReadTimeout:  defaultServeTimeout,
			WriteTimeout: defaultServeTimeout,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				doc, err := feedgen.Generate(*numModels, *format)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
				_, _ = w.Write([]byte(doc))
			}),
		}
		if err := srv.ListenAndServe(); err != nil {
			os.Stderr.WriteString("genfeed: " + err.Error() + "\n")
			os.Exit(1)
		}
		return
	}

	doc, err := feedgen.Generate(*numModels, *format)
	if err != nil {
		os.Stderr.WriteString("genfeed: " + err.Error() + "\n")
		os.Exit(1)
	}

	if *output == "" {
		os.Stdout.WriteString(doc)
		return
	}
	if err := os.WriteFile(*output, []byte(doc), 0o644); err != nil {
		os.Stderr.WriteString("genfeed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
