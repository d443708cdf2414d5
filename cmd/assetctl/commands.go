package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recommerce/asset/config"
	"github.com/recommerce/asset/core"
)

func newPutCmd(configPath func() string) *cobra.Command {
	var deleteAfter bool

	cmd := &cobra.Command{
		Use:   "put <local-file|http-url> <asset>",
		Short: "Upload a local file or an http(s) URL as an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				return client.Put(cmd.Context(), args[0], args[1], deleteAfter)
			})
		},
	}
	cmd.Flags().BoolVar(&deleteAfter, "delete-after", false, "Remove the local file once uploaded")

	return cmd
}

func newGetCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <asset> [local-file]",
		Short: "Download an asset and print the local file name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localFile := ""
			if len(args) == 2 {
				localFile = args[1]
			}

			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				local, err := client.Get(cmd.Context(), args[0], localFile)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), local)
				return nil
			})
		},
	}
}

func newListCmd(configPath func() string) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the assets of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				files, err := client.ListFiles(cmd.Context(), dir, pattern)
				if err != nil {
					return err
				}
				for _, file := range files {
					fmt.Fprintln(cmd.OutOrStdout(), file)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Keep entries containing this text (case-insensitive)")

	return cmd
}

func newMoveCmd(configPath func() string) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "mv <asset> <dest-dir>",
		Short: "Move an asset into another directory and print its new path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := core.ThrowOnConflict
			if overwrite {
				policy = core.Overwrite
			}

			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				newFile, err := client.Move(cmd.Context(), args[0], args[1], policy)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), newFile)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing asset at the destination")

	return cmd
}

func newRemoveCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <asset>...",
		Short: "Remove assets; missing assets are not an error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				if len(args) == 1 {
					return client.Remove(cmd.Context(), args[0])
				}

				err := client.RemoveFiles(cmd.Context(), args)
				if failed := core.FailedPaths(err); len(failed) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "not removed: %s\n", strings.Join(failed, ", "))
				}
				return err
			})
		},
	}
}

func newExistsCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <asset>",
		Short: "Print whether an asset exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				exists, err := client.Exists(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), exists)
				return nil
			})
		},
	}
}

func newURLCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "url <asset>",
		Short: "Print the public URL of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), configPath(), func(_ *app, client *core.Client) error {
				u, err := client.URL(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}
}

func newValidateCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long:  "Validate the configuration and display the loaded settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.LoadConfigFromFile(configPath())
			if err != nil {
				fmt.Fprintf(out, "Configuration validation failed: %v\n", err)
				return err
			}

			fmt.Fprintln(out, "Configuration is valid")
			fmt.Fprintf(out, "Adapter: %s\n", cfg.Asset.Identifier())
			fmt.Fprintf(out, "Listen Address: %s\n", cfg.Server.ListenAddr)
			fmt.Fprintf(out, "Log: %s/%s\n", cfg.Log.Level, cfg.Log.Format)

			return nil
		},
	}
}
