package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/berrythewa/clipvault/internal/ipc"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/format"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		filter   string
		search   string
		tag      string
		page     int
		perPage  int
		asJSON   bool
		compact  bool
		maxLines int
		display  displayFlags
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "history"},
		Short:   "List clipboard history, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := types.ParseFilter(filter)
			if err != nil {
				return err
			}
			result, err := newClient().List(cmd.Context(), types.Query{
				Filter:   f,
				Search:   search,
				Tag:      tag,
				Page:     page,
				PageSize: perPage,
			})
			if err != nil {
				return clientError(err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}

			opts := format.DefaultOptions()
			if compact {
				opts = format.CompactOptions()
			}
			if maxLines > 0 {
				opts.MaxLines = maxLines
			}
			opts = display.apply(opts)
			fmt.Fprint(cmd.OutOrStdout(), format.FormatPage(result, opts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "filter: all, text, image, favorites")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text search")
	cmd.Flags().StringVar(&tag, "tag", "", "only items carrying this tag")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&perPage, "limit", "n", types.DefaultPageSize, "items per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw page as JSON")
	cmd.Flags().BoolVar(&compact, "compact", false, "one line per item")
	cmd.Flags().IntVar(&maxLines, "max-lines", 0, "maximum content lines per item")
	cmd.Flags().BoolVar(&display.noColors, "no-colors", false, "disable colored output")
	cmd.Flags().BoolVar(&display.noIcons, "no-icons", false, "disable icons")
	return cmd
}

func newShowCmd() *cobra.Command {
	var (
		raw     bool
		asJSON  bool
		display displayFlags
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one history item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := newClient().Get(cmd.Context(), id)
			if err != nil {
				return clientError(err)
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				return printJSON(out, item)
			case raw:
				if item.ContentType == types.TypeImage {
					_, err := out.Write(item.Image)
					return err
				}
				_, err := io.WriteString(out, item.Text)
				return err
			}

			opts := format.DefaultOptions()
			opts.MaxLines = 0
			fmt.Fprint(out, format.FormatItem(item, display.apply(opts)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print only the content")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the item as JSON")
	cmd.Flags().BoolVar(&display.noColors, "no-colors", false, "disable colored output")
	cmd.Flags().BoolVar(&display.noIcons, "no-icons", false, "disable icons")
	return cmd
}

func newAddCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "add [text|-]",
		Short: "Record text or an image without touching the clipboard",
		Long: `Record an entry as if it had been copied. With no argument or "-" the text
is read from stdin. Use --image to record an image file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			out := cmd.OutOrStdout()

			if imagePath != "" {
				if len(args) > 0 {
					return fmt.Errorf("--image cannot be combined with text")
				}
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				result, err := client.AddImage(cmd.Context(), data)
				if err != nil {
					return clientError(err)
				}
				printAdded(out, result)
				return nil
			}

			var text string
			if len(args) == 0 || args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			} else {
				text = args[0]
			}

			result, err := client.AddText(cmd.Context(), text)
			if err != nil {
				return clientError(err)
			}
			printAdded(out, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path of an image file to record")
	return cmd
}

func printAdded(out io.Writer, result *ipc.AddResult) {
	if result.Inserted {
		fmt.Fprintf(out, "Added item #%d\n", result.ID)
		return
	}
	fmt.Fprintf(out, "Unchanged: item #%d already holds this content\n", result.ID)
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete history items",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			client := newClient()
			var missing []string
			for _, id := range ids {
				deleted, err := client.Delete(cmd.Context(), id)
				if err != nil {
					return clientError(err)
				}
				if !deleted {
					missing = append(missing, fmt.Sprintf("#%d", id))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted item #%d\n", id)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%w: %s", types.ErrNotFound, strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete history, keeping favorites unless --all is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := newClient().Clear(cmd.Context(), !all)
			if err != nil {
				return clientError(err)
			}
			suffix := " (favorites kept)"
			if all {
				suffix = ""
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items%s\n", deleted, suffix)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "also delete favorites")
	return cmd
}

func newFavCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fav <id>",
		Aliases: []string{"favorite"},
		Short:   "Toggle the favorite flag of an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			favorite, err := newClient().ToggleFavorite(cmd.Context(), id)
			if err != nil {
				return clientError(err)
			}
			if favorite {
				fmt.Fprintf(cmd.OutOrStdout(), "Item #%d marked as favorite\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Item #%d is no longer a favorite\n", id)
			}
			return nil
		},
	}
}

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Put a history item back on the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := newClient().Copy(cmd.Context(), id)
			if err != nil {
				return clientError(err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Copied item #%d to clipboard\n", item.ID)
			}
			return nil
		},
	}
}
