package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"planethub/internal/events"
	"planethub/internal/intake"
	"planethub/internal/planetcsv"
	"planethub/internal/view"
	"planethub/pkg/models"
	"planethub/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(utils.NewViper()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "planethub",
		Short:         "Browse and extend the planet catalog served by api-server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("api", "", "API base URL (default http://localhost:8080)")
	_ = v.BindPFlag("api_url", root.PersistentFlags().Lookup("api"))

	client := func() (*apiClient, utils.Config, error) {
		cfg, err := utils.LoadConfig(v)
		if err != nil {
			return nil, cfg, err
		}
		return newAPIClient(cfg.APIURL), cfg, nil
	}

	root.AddCommand(
		newListCmd(client),
		newShowCmd(client),
		newAddCmd(client),
		newWatchCmd(client),
		newExportCmd(client),
	)
	return root
}

type clientFunc func() (*apiClient, utils.Config, error)

func newListCmd(client clientFunc) *cobra.Command {
	var sort string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List planets",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := client()
			if err != nil {
				return err
			}
			st, err := api.List(cmd.Context(), sort, false)
			if err != nil {
				return err
			}
			printDirectory(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "", "name-asc, name-desc or mass-desc")
	return cmd
}

func newShowCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one planet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := client()
			if err != nil {
				return err
			}
			st, err := api.Show(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newAddCmd(client clientFunc) *cobra.Command {
	var f intake.Fields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom planet",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := client()
			if err != nil {
				return err
			}
			// validate locally first so the user gets the same message offline
			if _, err := intake.BuildRecord(f); err != nil {
				return err
			}
			p, err := api.Add(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "planet name (required)")
	fl.StringVar(&f.Image, "image", "", "image URL (required)")
	fl.StringVar(&f.Description, "description", "", "description (required)")
	fl.StringVar(&f.Temperature, "temperature", "", "temperature")
	fl.StringVar(&f.Mass, "mass", "", "mass, e.g. \"5.97×10^24 kg\"")
	fl.StringVar(&f.Volume, "volume", "", "volume")
	fl.StringVar(&f.Atmosphere, "atmosphere", "", "atmosphere composition")
	fl.StringVar(&f.Satellites, "satellites", "", "comma-separated satellites")
	fl.StringVar(&f.Missions, "missions", "", "comma-separated missions")
	fl.StringVar(&f.Source, "source", "", "source URL")
	fl.StringVar(&f.WikiLink, "wiki", "", "Wikipedia URL")
	fl.StringVar(&f.Distance, "distance", "", "distance from the Sun")
	fl.StringVar(&f.Discovery, "discovery", "", "discovery date or discoverer")
	return cmd
}

func newWatchCmd(client clientFunc) *cobra.Command {
	var tcp string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print planet events as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			handle := func(ev events.Event) {
				if ev.Type == events.Welcome {
					return
				}
				fmt.Fprintf(out, "%s  %s  %s\n", ev.At.Local().Format(time.DateTime), ev.Type, ev.Name)
			}
			if tcp != "" {
				return watchTCP(cmd.Context(), tcp, handle)
			}
			return watchWS(cmd.Context(), cfg.APIURL, handle)
		},
	}
	cmd.Flags().StringVar(&tcp, "tcp", "", "read the TCP event feed at this address instead of /ws")
	return cmd
}

func newExportCmd(client clientFunc) *cobra.Command {
	var (
		out  string
		sort string
	)
	cmd := &cobra.Command{
		Use:       "export json|csv",
		Short:     "Export the merged catalog",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"json", "csv"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			if format != "json" && format != "csv" {
				return errors.New("format must be json or csv")
			}
			api, _, err := client()
			if err != nil {
				return err
			}
			st, err := api.List(cmd.Context(), sort, true)
			if err != nil {
				return err
			}
			if out == "" {
				out = "data/planets-export." + format
			}
			if err := writeExport(out, format, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d planets to %s\n", len(st.Planets), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path")
	cmd.Flags().StringVar(&sort, "sort", "", "name-asc, name-desc or mass-desc")
	return cmd
}

func writeExport(path, format string, st view.DirectoryState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	planets := st.Planets
	if planets == nil {
		planets = []models.Planet{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(planets)
	default:
		err = planetcsv.Write(f, planets)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func printDirectory(w io.Writer, st view.DirectoryState) {
	if st.Banner != "" {
		fmt.Fprintln(w, "! "+st.Banner)
	}
	if len(st.Cards) == 0 {
		fmt.Fprintln(w, st.EmptyMessage)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tORIGIN\tDESCRIPTION")
	for _, c := range st.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Origin, truncate(c.Description, 60))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d planets, sorted by %s\n", st.Total, st.SortMode)
}

func printDetail(w io.Writer, st view.DetailState) {
	if !st.Found {
		fmt.Fprintf(w, "%s: %s\n", st.Name, st.Message)
		return
	}
	p := st.Planet
	fmt.Fprintln(w, p.Name)
	fmt.Fprintln(w, p.Description)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range st.Chips {
		value := c.Value
		if c.Link != "" && c.Link != value {
			value += " <" + c.Link + ">"
		}
		fmt.Fprintf(tw, "%s\t%s\n", c.Label, value)
	}
	_ = tw.Flush()

	for _, s := range st.Sections {
		fmt.Fprintf(w, "\n%s\n", s.Title)
		for _, item := range s.Items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
