// CLI commands for working with the thumbnail cache
package kuvaclient

import (
	"context"
	"fmt"
	"os"

	"github.com/function61/gokit/logex"
	"github.com/function61/kuvasto/pkg/kuvaserver"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func Entrypoints() []*cobra.Command {
	return []*cobra.Command{
		genEntrypoint(),
		lsEntrypoint(),
		purgeEntrypoint(),
	}
}

func genEntrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "gen <source> <size> [options...]",
		Short: "Generates (or fetches from cache) a thumbnail and prints its URL",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			panicIfError(func() error {
				rootLogger := logex.StandardLogger()

				scf, err := kuvaserver.ReadConfigFile()
				if err != nil {
					return err
				}

				thumber, _, release, err := kuvaserver.BuildStack(scf, rootLogger)
				if err != nil {
					return err
				}
				defer release()

				thumb, err := thumber.GetThumbnail(context.Background(), args[0], args[1:])
				if err != nil {
					return err
				}

				fmt.Printf("%s (%dx%d)\n", thumber.URL(thumb), thumb.Width, thumb.Height)

				return nil
			}())
		},
	}
}

func lsEntrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "Lists cached thumbnails",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			panicIfError(func() error {
				rootLogger := logex.StandardLogger()

				scf, err := kuvaserver.ReadConfigFile()
				if err != nil {
					return err
				}

				_, cache, release, err := kuvaserver.BuildStack(scf, rootLogger)
				if err != nil {
					return err
				}
				defer release()

				thumbs := []kuvatypes.Thumbnail{}
				if err := cache.Each(func(thumb kuvatypes.Thumbnail) error {
					thumbs = append(thumbs, thumb)
					return nil
				}); err != nil {
					return err
				}

				tbl := tablewriter.NewWriter(os.Stdout)
				tbl.SetHeader([]string{"Source", "Options", "Size", "Path"})

				for _, row := range lo.Map(thumbs, func(thumb kuvatypes.Thumbnail, _ int) []string {
					return []string{
						thumb.SourcePath,
						thumb.Options,
						fmt.Sprintf("%dx%d", thumb.Width, thumb.Height),
						thumb.Path,
					}
				}) {
					tbl.Append(row)
				}

				tbl.Render()

				return nil
			}())
		},
	}
}

func purgeEntrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "purge [source]",
		Short: "Drops cache records - all of them, or one source's",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			panicIfError(func() error {
				rootLogger := logex.StandardLogger()

				scf, err := kuvaserver.ReadConfigFile()
				if err != nil {
					return err
				}

				_, cache, release, err := kuvaserver.BuildStack(scf, rootLogger)
				if err != nil {
					return err
				}
				defer release()

				purged := 0
				if len(args) == 1 {
					purged, err = cache.PurgeSource(args[0])
				} else {
					purged, err = cache.Clear()
				}
				if err != nil {
					return err
				}

				fmt.Printf("purged %d record(s)\n", purged)

				return nil
			}())
		},
	}
}

func panicIfError(err error) {
	if err != nil {
		panic(err)
	}
}
