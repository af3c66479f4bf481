package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/auth"
	"github.com/longbark/outpost/pkg/config"
	"github.com/longbark/outpost/pkg/events"
	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
	"github.com/longbark/outpost/pkg/netcheck"
	"github.com/longbark/outpost/pkg/notify"
	"github.com/longbark/outpost/pkg/repository"
	"github.com/longbark/outpost/pkg/storage"
	"github.com/longbark/outpost/pkg/stream"
	"github.com/longbark/outpost/pkg/syncer"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "outpost",
	Short: "Outpost - offline-resilient monitoring sync agent",
	Long: `Outpost keeps a local cache of your agency's monitored clients and
sites reconciled with the remote monitoring API, survives flaky
networking by serving cached data, and streams live alerts from a
ntfy-style feed into severity channels.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Outpost version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("data-dir", defaultDataDir(), "Directory for config and local cache")
	rootCmd.PersistentFlags().String("server", "", "Remote API base URL (overrides config)")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(checkCmd)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".outpost"
	}
	return filepath.Join(home, ".outpost")
}

// lazyTokens defers the token source so the API client's transport can
// be built before the auth manager that backs it.
type lazyTokens struct {
	src auth.TokenSource
}

func (l *lazyTokens) Token() (string, bool) {
	if l.src == nil {
		return "", false
	}
	return l.src.Token()
}

// app wires the full component graph: config, store, broker, API
// client, auth and the repositories.
type app struct {
	cfg           *config.Store
	store         *storage.BoltStore
	broker        *events.Broker
	api           *api.Client
	auth          *auth.Manager
	clients       *repository.Clients
	sites         *repository.Sites
	dashboard     *repository.Dashboard
	notifications *repository.Notifications
	reports       *repository.Reports
}

func newApp(cmd *cobra.Command) (*app, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	serverFlag, _ := cmd.Flags().GetString("server")

	cfg, err := config.Open(dataDir)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel()),
		JSONOutput: cfg.LogJSON(),
	})

	serverURL := cfg.ServerURL()
	if serverFlag != "" {
		serverURL = serverFlag
	}
	if serverURL == "" {
		return nil, fmt.Errorf("no server URL configured; pass --server or set server_url in %s", cfg.Path())
	}

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return nil, err
	}

	broker := events.NewBroker()
	broker.Start()
	store.SetBroker(broker)

	tokens := &lazyTokens{}
	httpc := &http.Client{
		Timeout:   30 * time.Second,
		Transport: auth.NewTransport(nil, tokens),
	}
	apiClient := api.NewClient(serverURL, httpc)
	authMgr := auth.NewManager(apiClient, store)
	tokens.src = authMgr

	return &app{
		cfg:           cfg,
		store:         store,
		broker:        broker,
		api:           apiClient,
		auth:          authMgr,
		clients:       repository.NewClients(apiClient, store, broker),
		sites:         repository.NewSites(apiClient, store, broker),
		dashboard:     repository.NewDashboard(apiClient, store, broker, cfg),
		notifications: repository.NewNotifications(apiClient, store, broker),
		reports:       repository.NewReports(apiClient, store, broker),
	}, nil
}

func (a *app) close() {
	a.broker.Stop()
	if err := a.store.Close(); err != nil {
		log.Errorf("failed to close store", err)
	}
}

// refreshers returns the repositories in sync order. The dashboard
// snapshot goes first so its server-side aggregate matches what the
// entity refreshes are about to pull.
func (a *app) refreshers() []syncer.Refresher {
	return []syncer.Refresher{a.dashboard, a.clients, a.sites}
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the background agent (sync scheduler + alert stream)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		connectivity, err := netcheck.NewDialChecker(a.api.BaseURL())
		if err != nil {
			return fmt.Errorf("invalid server URL: %w", err)
		}
		if a.cfg.WifiOnly() {
			log.Warn("sync.wifi_only is set but this host cannot sense metered networks; syncing on any connection")
		}

		sched := syncer.NewScheduler(syncer.Config{
			Interval: a.cfg.SyncInterval(),
		}, connectivity, a.cfg, a.refreshers()...)
		sched.Start(ctx)
		defer sched.Stop()
		fmt.Println("✓ Sync scheduler started")

		channels := notify.DefaultChannels()
		if path, _ := cmd.Flags().GetString("channels"); path != "" {
			channels, err = notify.LoadChannels(path)
			if err != nil {
				return err
			}
		}
		router := notify.NewRouter(notify.NewLogDeliverer(), a.notifications, channels)

		if a.cfg.FeedEnabled() {
			feed := stream.NewClient(a.cfg.FeedServerURL(), a.cfg.FeedTopic(), router)
			go feed.Run(ctx)
			router.ServiceNotice("Alert stream running")
			fmt.Printf("✓ Alert stream subscribed to %s/%s\n", a.cfg.FeedServerURL(), a.cfg.FeedTopic())
		}

		if metricsAddr != "" {
			metrics.Register()
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("metrics server error", err)
				}
			}()
			defer srv.Close()
			fmt.Printf("✓ Metrics on %s/metrics\n", metricsAddr)
		}

		fmt.Println()
		fmt.Println("Agent is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		router.ServiceNotice("Alert stream stopped")
		cancel()
		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		connectivity, err := netcheck.NewDialChecker(a.api.BaseURL())
		if err != nil {
			return fmt.Errorf("invalid server URL: %w", err)
		}

		sched := syncer.NewScheduler(syncer.Config{}, connectivity, a.cfg, a.refreshers()...)
		if err := sched.RunOnce(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %v", err)
		}

		st := sched.Status()
		if st.State != syncer.StateSucceeded {
			fmt.Println("Sync deferred: no connectivity")
			return nil
		}
		fmt.Printf("✓ Sync complete at %s\n", st.LastSuccess.Format(time.RFC3339))
		return nil
	},
}

func init() {
	agentCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Prometheus metrics listen address (empty to disable)")
	agentCmd.Flags().String("channels", "", "YAML file overriding alert channel definitions")
}
