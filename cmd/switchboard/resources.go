package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperdxio/switchboard/pkg/client"
	"github.com/hyperdxio/switchboard/pkg/events"
)

// newClient builds an API client from the --server flag, scoped to
// --team when the command carries one.
func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	c := client.New(server)
	if team, _ := cmd.Flags().GetString("team"); team != "" {
		c = c.WithTeam(team)
	}
	return c
}

func requireTeamFlag(cmd *cobra.Command) (string, error) {
	team, _ := cmd.Flags().GetString("team")
	if team == "" {
		return "", fmt.Errorf("--team is required")
	}
	return team, nil
}

// printIssued shows a freshly minted token. The plaintext is printed
// exactly here and nowhere else; the server will never return it again.
func printIssued(issued *client.IssuedToken) {
	fmt.Printf("✓ Ingestion token %s on %s\n", issued.TokenRecord.ID, issued.TokenRecord.AssignedShard)
	fmt.Println()
	fmt.Printf("    %s\n", issued.Token)
	fmt.Println()
	fmt.Println("Store this token now. It will not be shown again.")
}

// Team commands
var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage teams",
}

var teamCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a team and bootstrap its tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := newClient(cmd).CreateTeam(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Team created: %s (ID: %s)\n", team.Name, team.ID)
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams",
	RunE: func(cmd *cobra.Command, args []string) error {
		teams, err := newClient(cmd).ListTeams()
		if err != nil {
			return err
		}

		fmt.Printf("%-38s %-24s %s\n", "ID", "NAME", "CREATED")
		for _, team := range teams {
			fmt.Printf("%-38s %-24s %s\n", team.ID, team.Name, team.CreatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamListCmd)
}

// Token commands
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage ingestion tokens",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new ingestion token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}
		description, _ := cmd.Flags().GetString("description")

		issued, err := newClient(cmd).CreateToken(description)
		if err != nil {
			return err
		}
		printIssued(issued)
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the team's ingestion tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}

		tokens, err := newClient(cmd).ListTokens()
		if err != nil {
			return err
		}

		fmt.Printf("%-38s %-14s %-8s %-10s %s\n", "ID", "PREFIX", "STATUS", "SHARD", "DESCRIPTION")
		for _, tok := range tokens {
			fmt.Printf("%-38s %-14s %-8s %-10s %s\n",
				tok.ID, tok.TokenPrefix, tok.Status, tok.AssignedShard, tok.Description)
		}
		return nil
	},
}

var tokenRotateCmd = &cobra.Command{
	Use:   "rotate ID",
	Short: "Rotate an ingestion token",
	Long: `Revoke a token and issue its replacement in one step. The replacement
keeps the team's shard, so collector routing is undisturbed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}

		issued, err := newClient(cmd).RotateToken(args[0])
		if err != nil {
			return err
		}
		printIssued(issued)
		return nil
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke ID",
	Short: "Revoke an ingestion token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}

		record, err := newClient(cmd).RevokeToken(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Token revoked: %s (%s)\n", record.ID, record.TokenPrefix)
		return nil
	},
}

var tokenAssignCmd = &cobra.Command{
	Use:   "assign ID SHARD",
	Short: "Move a token to a specific shard",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}

		if err := newClient(cmd).AssignShard(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("✓ Token %s assigned to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	tokenCmd.PersistentFlags().String("team", "", "Team ID (required)")
	tokenCreateCmd.Flags().String("description", "", "Free-form token description")

	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRotateCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	tokenCmd.AddCommand(tokenAssignCmd)
}

// Source commands
var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage query sources",
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the team's sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}

		sources, err := newClient(cmd).ListSources()
		if err != nil {
			return err
		}

		fmt.Printf("%-38s %-10s %-10s %-20s %s\n", "ID", "KIND", "NAME", "DATABASE", "TABLE")
		for _, src := range sources {
			table := src.Table
			if src.MetricTables != nil {
				table = src.MetricTables.Gauge
			}
			fmt.Printf("%-38s %-10s %-10s %-20s %s\n", src.ID, src.Kind, src.Name, src.Database, table)
		}
		return nil
	},
}

var sourceDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one of the team's sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTeamFlag(cmd); err != nil {
			return err
		}

		if err := newClient(cmd).DeleteSource(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Source deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	sourceCmd.PersistentFlags().String("team", "", "Team ID (required)")
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceDeleteCmd)
}

// Operator commands
var shardsCmd = &cobra.Command{
	Use:   "shards",
	Short: "Show shard occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := newClient(cmd).ListShards()
		if err != nil {
			return err
		}

		fmt.Printf("%-10s %-38s %s\n", "SHARD", "TEAM", "ACTIVE_TOKENS")
		for _, st := range statuses {
			team := st.TeamID
			if team == "" {
				team = "-"
			}
			fmt.Printf("%-10s %-38s %d\n", st.Shard, team, st.ActiveTokens)
		}
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Show tracked collector agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		agents, err := newClient(cmd).ListAgents()
		if err != nil {
			return err
		}

		fmt.Printf("%-34s %-10s %-15s %s\n", "INSTANCE_UID", "SHARD", "STATUS", "LAST_SEEN")
		for _, st := range agents {
			shard := st.ShardID()
			if shard == "" {
				shard = "-"
			}
			fmt.Printf("%-34s %-10s %-15s %s\n",
				st.InstanceUID, shard, st.Status, st.LastSeenAt.Format(time.RFC3339))
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream control-plane events",
	Long:  `Follow the control-plane event stream until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := newClient(cmd).StreamEvents(ctx, func(ev *events.Event) {
			fmt.Printf("%s  %-22s %s\n", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Message)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
