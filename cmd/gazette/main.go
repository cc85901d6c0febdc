package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"gazette/internal/cache"
	"gazette/internal/config"
	"gazette/internal/ga"
	"gazette/internal/server"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "gazette",
		Short: "Web Traffic Gazette - a printed analytics publication service",
		Long: `Gazette serves a periodic printed report of website-traffic analytics
for small-format printer subscribers. It authenticates subscribers against
Google Analytics via OAuth2 and generates comparison-period editions on demand.

Examples:
  gazette config set --client-id <id> --client-secret <secret>
  gazette serve
  gazette auth url --redirect-url http://localhost:8080/daily/return/
  gazette auth exchange --code <code> --redirect-url http://localhost:8080/daily/return/`,
		Version: version,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the publication HTTP server",
		Long:  "Serve the edition, sample, and configuration endpoints for each cadence",
		RunE:  serveCmdHandler,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage service configuration",
		Long:  "Configure OAuth client credentials and delivery options",
	}

	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "OAuth helper commands",
		Long:  "Build consent URLs and exchange authorization codes for refresh tokens",
	}
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.gazette/config.yaml)")

	configSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Set service configuration",
		Long:  "Write OAuth client credentials and delivery options to the config file",
		RunE:  configSetCmdHandler,
	}
	configSetCmd.Flags().String("client-id", "", "Google OAuth client ID")
	configSetCmd.Flags().String("client-secret", "", "Google OAuth client secret")
	configSetCmd.Flags().Int("weekly-delivery-day", 1, "Weekday for weekly editions, 1=Monday..7=Sunday")
	configSetCmd.Flags().String("listen-addr", ":8080", "HTTP listen address")
	configSetCmd.Flags().String("cache-dir", "", "Directory for the reporting query cache (empty disables caching)")

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  configShowCmdHandler,
	}

	configCmd.AddCommand(configSetCmd, configShowCmd)

	authURLCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the OAuth consent URL",
		RunE:  authURLCmdHandler,
	}
	authURLCmd.Flags().String("redirect-url", "", "Redirect URL registered with the OAuth client (required)")
	authURLCmd.MarkFlagRequired("redirect-url")

	authExchangeCmd := &cobra.Command{
		Use:   "exchange",
		Short: "Exchange an authorization code for a refresh token",
		RunE:  authExchangeCmdHandler,
	}
	authExchangeCmd.Flags().String("code", "", "Authorization code from the consent redirect (required)")
	authExchangeCmd.Flags().String("redirect-url", "", "Redirect URL used for the consent page (required)")
	authExchangeCmd.MarkFlagRequired("code")
	authExchangeCmd.MarkFlagRequired("redirect-url")

	authCmd.AddCommand(authURLCmd, authExchangeCmd)

	rootCmd.AddCommand(serveCmd, configCmd, authCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// provider bundles the two per-request API clients behind the server's
// Provider interface.
type provider struct {
	*ga.ManagementClient
	*ga.ReportingClient
}

func serveCmdHandler(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.ClientID == "" || settings.ClientSecret == "" {
		return fmt.Errorf("OAuth credentials not configured - run 'gazette config set' first")
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	var queryCache ga.QueryCache
	if settings.CacheDir != "" {
		client, err := cache.Open(settings.CacheDir)
		if err != nil {
			return fmt.Errorf("failed to open query cache: %w", err)
		}
		defer client.Close()
		queryCache = client
		log.Info().Str("dir", settings.CacheDir).Msg("query cache enabled")
	}

	auth := ga.NewAuthClient(settings.ClientID, settings.ClientSecret)
	connect := func(ctx context.Context, token *oauth2.Token) server.Provider {
		httpClient := auth.HTTPClient(ctx, token)
		return &provider{
			ManagementClient: ga.NewManagementClient(httpClient),
			ReportingClient:  ga.NewReportingClient(httpClient, queryCache),
		}
	}

	srv := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           server.New(settings, log, auth, connect).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", settings.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func configSetCmdHandler(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}

	// Start from the existing file so unset flags keep their values.
	settings, err := config.Load(path)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("client-id") {
		settings.ClientID, _ = cmd.Flags().GetString("client-id")
	}
	if cmd.Flags().Changed("client-secret") {
		settings.ClientSecret, _ = cmd.Flags().GetString("client-secret")
	}
	if cmd.Flags().Changed("weekly-delivery-day") {
		settings.WeeklyDeliveryDay, _ = cmd.Flags().GetInt("weekly-delivery-day")
	}
	if cmd.Flags().Changed("listen-addr") {
		settings.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}
	if cmd.Flags().Changed("cache-dir") {
		settings.CacheDir, _ = cmd.Flags().GetString("cache-dir")
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, settings); err != nil {
		return err
	}

	fmt.Printf("✅ Configuration saved to %s\n", path)
	return nil
}

func configShowCmdHandler(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Listen address:      %s\n", settings.ListenAddr)
	fmt.Printf("Weekly delivery day: %d (1=Monday..7=Sunday)\n", settings.WeeklyDeliveryDay)
	if settings.CacheDir != "" {
		fmt.Printf("Query cache:         %s\n", settings.CacheDir)
	} else {
		fmt.Println("Query cache:         disabled")
	}
	if settings.ClientID != "" {
		fmt.Printf("OAuth client ID:     %s\n", settings.ClientID)
	} else {
		fmt.Println("OAuth client ID:     (not set)")
	}
	if settings.ClientSecret != "" {
		fmt.Println("OAuth client secret: (set)")
	} else {
		fmt.Println("OAuth client secret: (not set)")
	}
	return nil
}

func authURLCmdHandler(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.ClientID == "" || settings.ClientSecret == "" {
		return fmt.Errorf("OAuth credentials not configured - run 'gazette config set' first")
	}

	redirectURL, _ := cmd.Flags().GetString("redirect-url")
	auth := ga.NewAuthClient(settings.ClientID, settings.ClientSecret)

	fmt.Println("Open this URL in a browser and approve read-only analytics access:")
	fmt.Println(auth.AuthCodeURL(redirectURL, ""))
	return nil
}

func authExchangeCmdHandler(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.ClientID == "" || settings.ClientSecret == "" {
		return fmt.Errorf("OAuth credentials not configured - run 'gazette config set' first")
	}

	code, _ := cmd.Flags().GetString("code")
	redirectURL, _ := cmd.Flags().GetString("redirect-url")
	auth := ga.NewAuthClient(settings.ClientID, settings.ClientSecret)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	token, err := auth.Exchange(ctx, code, redirectURL)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Refresh token: %s\n", token.RefreshToken)
	fmt.Printf("   Access token expires: %s\n", token.Expiry.Format(time.RFC3339))
	return nil
}
