package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/berrythewa/clipvault/pkg/format"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage item tags",
		Long: `Tags are free-form labels. Tags starting with # are shown as categories
and tags starting with @ as people.`,
	}

	cmd.AddCommand(newTagAddCmd(), newTagRemoveCmd(), newTagSetCmd(), newTagAllCmd())
	return cmd
}

func printTags(out io.Writer, id int64, tags []string) {
	if len(tags) == 0 {
		fmt.Fprintf(out, "Item #%d has no tags\n", id)
		return
	}
	fmt.Fprintf(out, "Item #%d tags: %s\n", id, strings.Join(tags, ", "))
}

func newTagAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <tag>",
		Short: "Add a tag to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tags, err := newClient().AddTag(cmd.Context(), id, args[1])
			if err != nil {
				return clientError(err)
			}
			printTags(cmd.OutOrStdout(), id, tags)
			return nil
		},
	}
}

func newTagRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id> <tag>",
		Aliases: []string{"remove"},
		Short:   "Remove a tag from an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tags, err := newClient().RemoveTag(cmd.Context(), id, args[1])
			if err != nil {
				return clientError(err)
			}
			printTags(cmd.OutOrStdout(), id, tags)
			return nil
		},
	}
}

func newTagSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> [tag]...",
		Short: "Replace the tags of an item; no tags clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tags, err := newClient().SetTags(cmd.Context(), id, args[1:])
			if err != nil {
				return clientError(err)
			}
			printTags(cmd.OutOrStdout(), id, tags)
			return nil
		},
	}
}

func newTagAllCmd() *cobra.Command {
	var (
		asJSON  bool
		display displayFlags
	)

	cmd := &cobra.Command{
		Use:     "all",
		Aliases: []string{"ls", "list"},
		Short:   "List every tag in use",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := newClient().AllTags(cmd.Context())
			if err != nil {
				return clientError(err)
			}
			if asJSON {
				if tags == nil {
					tags = []string{}
				}
				return printJSON(cmd.OutOrStdout(), tags)
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.FormatTagList(tags, display.apply(format.DefaultOptions())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print tags as a JSON array")
	cmd.Flags().BoolVar(&display.noColors, "no-colors", false, "disable colored output")
	cmd.Flags().BoolVar(&display.noIcons, "no-icons", false, "disable icons")
	return cmd
}
