package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcpswap/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles",
	Long: `A profile is an ordered list of server names stored under
~/.mcpswap/profiles. Activating a profile swaps exactly those servers into
the target config; order matters because a name listed twice keeps its
last definition.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles, marking the active one",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		names, err := ctx.Store.ListProfiles()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No profiles defined. Create one with: mcpswap profile create <name>")
			return nil
		}

		active := ctx.Store.LoadedProfile()
		for _, name := range names {
			marker := "  "
			if name == active {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, name)
		}
		if active == model.ReservedSnapshotName {
			fmt.Println("\n(currently loaded: rollback snapshot, not a named profile)")
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's server list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		p, err := ctx.Store.LoadProfile(args[0])
		if err != nil {
			return err
		}
		if len(p.Servers) == 0 {
			fmt.Printf("Profile %q is empty\n", args[0])
			return nil
		}
		for i, s := range p.Servers {
			fmt.Printf("%d. %s\n", i+1, s)
		}
		return nil
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name> [server...]",
	Short: "Create a profile, optionally with an initial server list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := validateName(name); err != nil {
			return err
		}
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if _, err := ctx.Store.LoadProfile(name); err == nil {
			return fmt.Errorf("profile %q already exists", name)
		}

		p := &model.Profile{Servers: append([]string{}, args[1:]...)}
		warnIfUnknownServers(ctx.Store, p.Servers)
		if err := ctx.Store.SaveProfile(name, p); err != nil {
			return err
		}
		fmt.Printf("Created profile %q with %d server(s)\n", name, len(p.Servers))
		return nil
	},
}

var profileCopyCmd = &cobra.Command{
	Use:   "copy <src> <dst>",
	Short: "Copy a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		if err := validateName(dst); err != nil {
			return err
		}
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if _, err := ctx.Store.LoadProfile(dst); err == nil {
			return fmt.Errorf("profile %q already exists", dst)
		}
		p, err := ctx.Store.LoadProfile(src)
		if err != nil {
			return err
		}
		if err := ctx.Store.SaveProfile(dst, p); err != nil {
			return err
		}
		fmt.Printf("Copied profile %q to %q\n", src, dst)
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile in your editor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if _, err := ctx.Store.LoadProfile(name); err != nil {
			return err
		}
		if err := ctx.openEditor(ctx.Store.ProfilePath(name)); err != nil {
			return err
		}
		p, err := ctx.Store.LoadProfile(name)
		if err != nil {
			return fmt.Errorf("saved file is not a valid profile: %v", err)
		}
		warnIfUnknownServers(ctx.Store, p.Servers)
		fmt.Printf("Updated profile %q\n", name)
		return nil
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add <profile> <server>...",
	Short: "Append servers to a profile",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, servers := args[0], args[1:]
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		p, err := ctx.Store.LoadProfile(name)
		if err != nil {
			return err
		}
		p.Servers = append(p.Servers, servers...)
		warnIfUnknownServers(ctx.Store, servers)
		if err := ctx.Store.SaveProfile(name, p); err != nil {
			return err
		}
		fmt.Printf("Profile %q now lists: %s\n", name, strings.Join(p.Servers, ", "))
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <profile> <server>",
	Short: "Remove the first occurrence of a server from a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, server := args[0], args[1]
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		p, err := ctx.Store.LoadProfile(name)
		if err != nil {
			return err
		}
		if !p.Remove(server) {
			return fmt.Errorf("profile %q does not list server %q", name, server)
		}
		if err := ctx.Store.SaveProfile(name, p); err != nil {
			return err
		}
		fmt.Printf("Removed %q from profile %q\n", server, name)
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}
		if err := ctx.Store.DeleteProfile(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted profile %q\n", args[0])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileCopyCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
