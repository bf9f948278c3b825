package commands

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/livefir/livebind"
	"github.com/livefir/livebind/internal/metrics"
)

// Serve mounts the fragment as a live page. Every connection gets its own
// engine built from the same files.
func Serve(args []string) error {
	var src source
	var addr, title string

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&src.def, "def", "", "definition file (YAML)")
	fs.StringVar(&src.html, "html", "", "HTML fragment file")
	fs.StringVar(&src.data, "data", "", "JSON data file")
	fs.Var(&src.maps, "map", "data map to fill")
	fs.Var(&src.states, "state", "state to activate")
	fs.StringVar(&addr, "addr", ":8080", "listen address")
	fs.StringVar(&title, "title", "livebind", "page title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := src.validate(); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "livebind: ", log.LstdFlags)
	collector := metrics.NewCollector()
	factory := func() (*livebind.Engine, error) {
		e, err := src.build(livebind.WithLogger(logger), livebind.WithCollector(collector))
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, binding := range e.EventBindings() {
			for _, action := range binding.Actions {
				if seen[action] {
					continue
				}
				seen[action] = true
				e.On(action, func(action string, ev *livebind.Event) {
					logger.Printf("%s at %s -> %s", ev.Type, ev.Path, action)
				})
			}
		}
		return e, nil
	}

	// Fail early on a broken definition rather than on the first request.
	if _, err := factory(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", livebind.Mount(factory, livebind.WithTitle(title), livebind.WithMountCollector(collector)))
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		m := collector.GetMetrics()
		fmt.Fprintf(w, "active_connections %d\nevents_dispatched %d\nevents_absorbed_percent %.1f\nactions_emitted %d\n",
			m.ActiveConnections, m.EventsDispatched, collector.GetAbsorbedRate(), m.ActionsEmitted)
		counters := collector.GetCustomCounters()
		for _, name := range sortedKeys(counters) {
			fmt.Fprintf(w, "%s %d\n", name, counters[name])
		}
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Serving %s on http://localhost%s", src.html, addr)
	return server.ListenAndServe()
}
