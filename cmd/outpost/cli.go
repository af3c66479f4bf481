package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/longbark/outpost/pkg/types"
)

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).Format(time.RFC3339)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the remote API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			fmt.Print("Password: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			password = strings.TrimSpace(line)
		}

		res := a.auth.Login(cmd.Context(), email, password)
		user, ok := res.Value()
		if !ok {
			return fmt.Errorf("login failed: %v", res.Err())
		}

		if serverFlag, _ := cmd.Flags().GetString("server"); serverFlag != "" {
			if err := a.cfg.SetServerURL(serverFlag); err != nil {
				return err
			}
		}

		fmt.Printf("✓ Logged in as %s (%s)\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.auth.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✓ Logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached dashboard stats and sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		res := a.dashboard.Get(cmd.Context())
		stats, ok := res.Value()
		if !ok {
			return fmt.Errorf("dashboard unavailable: %v", res.Err())
		}

		fmt.Printf("Sites:    %d total, %d healthy, %d warning, %d critical\n",
			stats.TotalSites, stats.HealthySites, stats.WarningSites, stats.CriticalSites)
		if stats.LastSyncTimestamp > 0 {
			fmt.Printf("Last sync: %s\n", time.UnixMilli(stats.LastSyncTimestamp).Format(time.RFC3339))
		} else {
			fmt.Println("Last sync: never")
		}
		if a.auth.IsLoggedIn() {
			if user, ok := a.auth.CurrentUser(); ok {
				fmt.Printf("Account:  %s\n", user.Email)
			}
		} else {
			fmt.Println("Account:  not logged in")
		}

		if len(stats.RecentAlerts) > 0 {
			fmt.Println("\nRecent alerts:")
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Severity", "Title", "When"})
			for _, n := range stats.RecentAlerts {
				tw.AppendRow(table.Row{n.Severity, n.Title, time.UnixMilli(n.Timestamp).Format(time.RFC3339)})
			}
			tw.Render()
		}
		return nil
	},
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List cached clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			if err := a.clients.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %v", err)
			}
		}

		clients, err := a.clients.List()
		if err != nil {
			return err
		}
		if len(clients) == 0 {
			fmt.Println("No clients cached. Run 'outpost sync' first.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Name", "Sites", "Health", "Last Check"})
		for _, c := range clients {
			tw.AppendRow(table.Row{c.ID, c.Name, c.SiteCount, c.HealthStatus, formatMillis(c.LastCheckTimestamp)})
		}
		tw.Render()
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List cached sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			if err := a.sites.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %v", err)
			}
		}

		clientID, _ := cmd.Flags().GetString("client")
		var (
			sites []*types.Site
			err2  error
		)
		if clientID != "" {
			sites, err2 = a.sites.ListByClient(clientID)
		} else {
			sites, err2 = a.sites.List()
		}
		if err2 != nil {
			return err2
		}
		if len(sites) == 0 {
			fmt.Println("No sites cached. Run 'outpost sync' first.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Name", "URL", "Health", "Uptime %"})
		for _, s := range sites {
			tw.AppendRow(table.Row{s.ID, s.Name, s.URL, s.HealthStatus, fmt.Sprintf("%.2f", s.UptimePercentage)})
		}
		tw.Render()
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List cached report metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			if err := a.reports.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %v", err)
			}
		}

		reports, err := a.reports.List()
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports cached. Run 'outpost reports --refresh' first.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Title", "Type", "Format", "Generated"})
		for _, r := range reports {
			tw.AppendRow(table.Row{r.ID, r.Title, r.Type, r.Format, formatMillis(r.GeneratedAt)})
		}
		tw.Render()
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List cached notifications, mark them read",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			if err := a.notifications.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %v", err)
			}
		}

		if id, _ := cmd.Flags().GetString("mark-read"); id != "" {
			if res := a.notifications.MarkRead(cmd.Context(), id); res.IsError() {
				return fmt.Errorf("mark read failed: %v", res.Err())
			}
			fmt.Printf("✓ Notification %s marked read\n", id)
			return nil
		}
		if all, _ := cmd.Flags().GetBool("mark-all-read"); all {
			if res := a.notifications.MarkAllRead(cmd.Context()); res.IsError() {
				return fmt.Errorf("mark all read failed: %v", res.Err())
			}
			fmt.Println("✓ All notifications marked read")
			return nil
		}

		ns, err := a.notifications.List()
		if err != nil {
			return err
		}
		if len(ns) == 0 {
			fmt.Println("No notifications cached. Run 'outpost sync' first.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Severity", "Title", "Read", "When"})
		for _, n := range ns {
			tw.AppendRow(table.Row{n.ID, n.Severity, n.Title, n.IsRead, formatMillis(n.Timestamp)})
		}
		tw.Render()
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [SITE_ID]",
	Short: "Trigger an immediate server-side check of one site, or all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 1 {
			res := a.sites.TriggerCheck(cmd.Context(), args[0])
			if res.IsError() {
				return fmt.Errorf("check failed: %v", res.Err())
			}
			fmt.Printf("✓ Check queued for site %s\n", args[0])
			return nil
		}

		res := a.sites.TriggerAllChecks(cmd.Context())
		if res.IsError() {
			return fmt.Errorf("check failed: %v", res.Err())
		}
		fmt.Println("✓ Check queued for all sites")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (prompted when omitted)")
	clientsCmd.Flags().Bool("refresh", false, "Refresh from the remote API before listing")
	sitesCmd.Flags().Bool("refresh", false, "Refresh from the remote API before listing")
	sitesCmd.Flags().String("client", "", "Only sites belonging to this client ID")
	reportsCmd.Flags().Bool("refresh", false, "Refresh from the remote API before listing")
	notificationsCmd.Flags().Bool("refresh", false, "Refresh from the remote API before listing")
	notificationsCmd.Flags().String("mark-read", "", "Mark the given notification ID read and exit")
	notificationsCmd.Flags().Bool("mark-all-read", false, "Mark every notification read and exit")
}
