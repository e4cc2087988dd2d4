package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/observability"
	"github.com/jmylchreest/calcprobe/internal/stubapp"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve a local stand-in for the health calculator app",
	Long: `Serve a stub of the health calculator deployment: the backend API,
an SPA shell for every catalog route, robots.txt, sitemap.xml,
manifest.json and _redirects.

Fault flags make individual checks warn or fail, which is useful for
rehearsing a run before pointing calcprobe at a real deployment:

  calcprobe stub --listen :3000 &
  calcprobe run --frontend-url http://localhost:3000 --backend-url http://localhost:3000`,
	RunE: runStub,
}

func init() {
	rootCmd.AddCommand(stubCmd)

	stubCmd.Flags().String("listen", "127.0.0.1:3000", "address to listen on")
	stubCmd.Flags().String("site-url", "", "public origin used in canonical links and the sitemap")
	stubCmd.Flags().String("catalog", "", "route catalog YAML file")
	stubCmd.Flags().Duration("delay", 0, "delay added to every frontend response")
	stubCmd.Flags().Bool("backend-down", false, "answer every /api request with 503")
	stubCmd.Flags().Bool("no-cors", false, "omit CORS headers from backend responses")
	stubCmd.Flags().Bool("no-seo", false, "strip SEO meta tags and structured data")
	stubCmd.Flags().StringSlice("broken-route", nil, "routes answering 500")
}

func stubFaults(cmd *cobra.Command) stubapp.Faults {
	flags := cmd.Flags()
	var f stubapp.Faults
	f.Delay, _ = flags.GetDuration("delay")
	f.BackendDown, _ = flags.GetBool("backend-down")
	f.NoCORS, _ = flags.GetBool("no-cors")
	f.NoSEO, _ = flags.GetBool("no-seo")
	if broken, _ := flags.GetStringSlice("broken-route"); len(broken) > 0 {
		f.RouteStatus = make(map[string]int, len(broken))
		for _, route := range broken {
			f.RouteStatus[route] = http.StatusInternalServerError
		}
	}
	return f
}

func runStub(cmd *cobra.Command, _ []string) error {
	logger := observability.WithComponent(slog.Default(), "stub")

	cat := catalog.Default()
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		loaded, err := catalog.Load(path)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		cat = loaded
	}

	listen, _ := cmd.Flags().GetString("listen")
	siteURL, _ := cmd.Flags().GetString("site-url")

	stub := stubapp.New(stubapp.Options{Catalog: cat, Logger: logger, SiteURL: siteURL})
	stub.SetFaults(stubFaults(cmd))

	srv := &http.Server{
		Addr:              listen,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("serving stub deployment",
			slog.String("address", listen),
			slog.Int("routes", len(cat.AllRoutes())))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down stub: %w", err)
		}
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving stub: %w", err)
	}
}
