package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mcpswap/internal/model"
	"mcpswap/internal/store"
)

var serverJSONBody string
var extractAs string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage server definitions",
	Long: `Server definitions are JSON files under ~/.mcpswap/servers. Each file is
stored verbatim under its name inside the target's mcpServers block when a
profile referencing it is activated.`,
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		names, err := ctx.Store.ListServers()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No servers defined. Add one with: mcpswap server add <name>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOMMAND\tARGS\tDISABLED")
		for _, name := range names {
			def, err := ctx.Store.LoadServer(name)
			if err != nil {
				fmt.Fprintf(w, "%s\t(unreadable: %v)\t\t\n", name, err)
				continue
			}
			sum, err := def.Summary()
			if err != nil {
				fmt.Fprintf(w, "%s\t(unreadable: %v)\t\t\n", name, err)
				continue
			}
			command := sum.Command
			if command == "" && sum.URL != "" {
				command = sum.URL
			}
			disabled := ""
			if sum.Disabled {
				disabled = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, command, strings.Join(sum.Args, " "), disabled)
		}
		return w.Flush()
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a server definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		def, err := ctx.Store.LoadServer(args[0])
		if err != nil {
			return err
		}
		var buf map[string]json.RawMessage
		if err := json.Unmarshal(def.Raw, &buf); err != nil {
			return fmt.Errorf("%w: %s", store.ErrInvalidJSON, ctx.Store.ServerPath(args[0]))
		}
		pretty, err := json.MarshalIndent(buf, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(pretty))
		return nil
	},
}

const serverSkeleton = `{
  "command": "",
  "args": [],
  "env": {}
}
`

var serverAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new server definition",
	Long: `Add a server definition. With --json the body is stored directly;
otherwise a skeleton opens in your editor.

Secret fields should use placeholders rather than literal values, e.g.
  "env": {"API_KEY": "{{ENV:API_KEY}}"}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := validateName(name); err != nil {
			return err
		}
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if _, err := ctx.Store.LoadServer(name); err == nil {
			return fmt.Errorf("server %q already exists, use: mcpswap server edit %s", name, name)
		}

		if serverJSONBody != "" {
			if err := ctx.Store.SaveServer(name, json.RawMessage(serverJSONBody)); err != nil {
				return err
			}
			fmt.Printf("Added server %q\n", name)
			return nil
		}

		if err := ctx.Store.SaveServer(name, json.RawMessage(serverSkeleton)); err != nil {
			return err
		}
		if err := ctx.openEditor(ctx.Store.ServerPath(name)); err != nil {
			return err
		}
		if _, err := ctx.Store.LoadServer(name); err != nil {
			return fmt.Errorf("saved file is not valid JSON, fix with: mcpswap server edit %s (%v)", name, err)
		}
		fmt.Printf("Added server %q\n", name)
		return nil
	},
}

var serverEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a server definition in your editor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if _, err := ctx.Store.LoadServer(name); err != nil {
			return err
		}
		if err := ctx.openEditor(ctx.Store.ServerPath(name)); err != nil {
			return err
		}
		if _, err := ctx.Store.LoadServer(name); err != nil {
			return fmt.Errorf("saved file is not valid JSON: %v", err)
		}
		fmt.Printf("Updated server %q\n", name)
		return nil
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if err := ctx.Store.DeleteServer(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed server %q\n", args[0])
		return nil
	},
}

var serverExtractCmd = &cobra.Command{
	Use:   "extract <name>",
	Short: "Copy an entry from the target config into a server definition",
	Long: `Extract pulls an existing entry out of the target config's mcpServers
block and stores it as a server definition, so hand-maintained setups can
be brought under profile management. Note that extracted values are the
resolved ones; replace secrets with placeholders afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		storedName := name
		if extractAs != "" {
			storedName = extractAs
		}
		if err := validateName(storedName); err != nil {
			return err
		}

		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		raw, err := store.ReadDocument(ctx.Settings.TargetConfig)
		if err != nil {
			return err
		}
		var target map[string]json.RawMessage
		if err := json.Unmarshal(raw, &target); err != nil {
			return fmt.Errorf("%w: %s", store.ErrInvalidJSON, ctx.Settings.TargetConfig)
		}

		var servers map[string]json.RawMessage
		if managed, ok := target[model.ManagedKey]; ok {
			if err := json.Unmarshal(managed, &servers); err != nil {
				return fmt.Errorf("%w: %s key of %s", store.ErrInvalidJSON, model.ManagedKey, ctx.Settings.TargetConfig)
			}
		}
		body, ok := servers[name]
		if !ok {
			return fmt.Errorf("%w: no %q entry under %s in %s", store.ErrNotFound, name, model.ManagedKey, ctx.Settings.TargetConfig)
		}

		if err := ctx.Store.SaveServer(storedName, body); err != nil {
			return err
		}
		fmt.Printf("Extracted %q into server %q\n", name, storedName)
		return nil
	},
}

func init() {
	serverAddCmd.Flags().StringVar(&serverJSONBody, "json", "", "Server definition body as inline JSON")
	serverExtractCmd.Flags().StringVar(&extractAs, "as", "", "Store the extracted definition under a different name")

	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverShowCmd)
	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverEditCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	serverCmd.AddCommand(serverExtractCmd)
	rootCmd.AddCommand(serverCmd)
}
