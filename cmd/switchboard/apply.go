package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyperdxio/switchboard/pkg/client"
	"github.com/hyperdxio/switchboard/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a configuration file",
	Long: `Apply switchboard resources from a YAML file. A file may hold
multiple documents separated by ---.

Examples:
  # Create a team with its initial tokens
  switchboard apply -f team.yaml

  # Bootstrap several teams at once
  switchboard apply -f tenants.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// Resource is a declarative switchboard object
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       ResourceSpec     `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

type ResourceSpec struct {
	Tokens []TokenSpec `yaml:"tokens,omitempty"`
}

type TokenSpec struct {
	Description string `yaml:"description"`
	Shard       string `yaml:"shard,omitempty"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}
	defer f.Close()

	c := newClient(cmd)

	dec := yaml.NewDecoder(f)
	for {
		var resource Resource
		if err := dec.Decode(&resource); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to parse YAML: %v", err)
		}

		switch resource.Kind {
		case "Team":
			if err := applyTeam(c, &resource); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported resource kind: %s", resource.Kind)
		}
	}
}

func applyTeam(c *client.Client, resource *Resource) error {
	name := resource.Metadata.Name
	if name == "" {
		return fmt.Errorf("team name is required")
	}

	team, err := findTeam(c, name)
	if err != nil {
		return err
	}
	if team == nil {
		team, err = c.CreateTeam(name)
		if err != nil {
			return fmt.Errorf("failed to create team: %v", err)
		}
		fmt.Printf("✓ Team created: %s (ID: %s)\n", team.Name, team.ID)
	} else {
		fmt.Printf("Team already exists: %s (skipping)\n", name)
	}

	scoped := c.WithTeam(team.ID)
	existing, err := scoped.ListTokens()
	if err != nil {
		return err
	}

	for _, spec := range resource.Spec.Tokens {
		if hasActiveToken(existing, spec.Description) {
			fmt.Printf("Token already exists: %q (skipping)\n", spec.Description)
			continue
		}

		issued, err := scoped.CreateToken(spec.Description)
		if err != nil {
			return fmt.Errorf("failed to create token: %v", err)
		}
		if spec.Shard != "" && spec.Shard != issued.TokenRecord.AssignedShard {
			if err := scoped.AssignShard(issued.TokenRecord.ID, spec.Shard); err != nil {
				return fmt.Errorf("failed to assign shard: %v", err)
			}
			issued.TokenRecord.AssignedShard = spec.Shard
		}
		printIssued(issued)
	}

	return nil
}

func findTeam(c *client.Client, name string) (*types.Team, error) {
	teams, err := c.ListTeams()
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		if team.Name == name {
			return team, nil
		}
	}
	return nil, nil
}

func hasActiveToken(tokens []*client.TokenRecord, description string) bool {
	for _, tok := range tokens {
		if tok.Status == types.TokenStatusActive && tok.Description == description {
			return true
		}
	}
	return false
}
