package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewEnvCommand creates the environments command group.
func NewEnvCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments",
	}

	cmd.AddCommand(newEnvListCommand(configPath))
	cmd.AddCommand(newEnvCreateCommand(configPath))
	cmd.AddCommand(newEnvUseCommand(configPath))
	cmd.AddCommand(newEnvSetCommand(configPath))
	cmd.AddCommand(newEnvDeleteCommand(configPath))

	return cmd
}

func newEnvListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshEnvironments(cmd.Context()); err != nil {
				return err
			}
			environments := ws.Environments()
			if len(environments) == 0 {
				dim.Fprintln(cmd.OutOrStdout(), "No environments")
				return nil
			}
			for _, env := range environments {
				marker := " "
				if env.IsActive {
					marker = statusOK.Sprint("*")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %d variables  %s\n",
					marker, env.Name, len(env.Variables), dim.Sprint(env.ID))
			}
			return nil
		},
	}
}

func newEnvCreateCommand(configPath *string) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			variables, err := parseVars(vars)
			if err != nil {
				return err
			}
			env, err := ws.CreateEnvironment(cmd.Context(), args[0], variables)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q  %s\n", env.Name, dim.Sprint(env.ID))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&vars, "var", "v", nil, "Variables (format: key=value)")
	return cmd
}

func newEnvUseCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "use [ID]",
		Short: "Activate an environment, or deactivate all with no argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshEnvironments(cmd.Context()); err != nil {
				return err
			}
			var id *string
			if len(args) == 1 {
				id = &args[0]
			}
			return ws.SetActiveEnvironment(cmd.Context(), id)
		},
	}
}

func newEnvSetCommand(configPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "set ID key=value...",
		Short: "Update an environment's variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshEnvironments(cmd.Context()); err != nil {
				return err
			}

			id := args[0]
			var current map[string]string
			envName := name
			for _, env := range ws.Environments() {
				if env.ID == id {
					current = env.Variables
					if envName == "" {
						envName = env.Name
					}
				}
			}
			if current == nil {
				current = make(map[string]string)
			}

			updates, err := parseVars(args[1:])
			if err != nil {
				return err
			}
			for key, value := range updates {
				current[key] = value
			}

			if err := ws.UpdateEnvironment(cmd.Context(), id, envName, current); err != nil {
				return err
			}

			keys := make([]string, 0, len(current))
			for key := range current {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, current[key])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Rename the environment")
	return cmd
}

func newEnvDeleteCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an environment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, cleanup, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ws.RefreshEnvironments(cmd.Context()); err != nil {
				return err
			}
			return ws.DeleteEnvironment(cmd.Context(), args[0])
		},
	}
}

func parseVars(pairs []string) (map[string]string, error) {
	variables := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", pair)
		}
		variables[key] = value
	}
	return variables, nil
}
