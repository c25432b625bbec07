package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chenyk320/menu/cmd/menuctl/output"
	"github.com/chenyk320/menu/internal/imaging"
	"github.com/chenyk320/menu/internal/media"

	"github.com/spf13/cobra"
)

var (
	optimizeOut      string
	optimizeMaxWidth int
	optimizeQuality  int
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Dish image storage",
}

var imagesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where dish images are stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImagesStatus(cmd.Context())
	},
}

var imagesMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upload local-only dish images to the CDN",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImagesMigrate(cmd.Context())
	},
}

var imagesCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete local copies of images already on the CDN",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImagesCleanup(cmd.Context())
	},
}

var imagesOptimizeCmd = &cobra.Command{
	Use:   "optimize <dir>",
	Short: "Resize and recompress every image in a directory",
	Long: `Resize images wider than --max-width and re-encode them as JPEG.

Examples:
  menuctl images optimize ./photos --out ./uploads
  menuctl images optimize ./uploads --max-width 1024 --quality 80`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImagesOptimize(args[0])
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)
	imagesCmd.AddCommand(imagesStatusCmd, imagesMigrateCmd, imagesCleanupCmd, imagesOptimizeCmd)

	imagesOptimizeCmd.Flags().StringVar(&optimizeOut, "out", "", "Output directory (defaults to the input directory)")
	imagesOptimizeCmd.Flags().IntVar(&optimizeMaxWidth, "max-width", imaging.DefaultMaxWidth, "Maximum width in pixels")
	imagesOptimizeCmd.Flags().IntVar(&optimizeQuality, "quality", imaging.DefaultQuality, "JPEG quality 1-100")
}

func runImagesStatus(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Migrator.Status(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(st)
	}

	output.Section("Dish Images")
	if st.RemoteEnabled {
		output.Success("CDN storage enabled")
	} else {
		output.Warning("CDN storage not configured")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Dishes\t%d\n", st.Total)
	fmt.Fprintf(w, "Local copy\t%d\n", st.WithLocal)
	fmt.Fprintf(w, "CDN copy\t%d\n", st.WithCDN)
	fmt.Fprintf(w, "Both\t%d\n", st.Both)
	fmt.Fprintf(w, "CDN only\t%d\n", st.CDNOnly)
	fmt.Fprintf(w, "Local only\t%d\n", st.LocalOnly)
	fmt.Fprintf(w, "No image\t%d\n", st.NoImage)
	w.Flush()

	if len(st.MissingFiles) > 0 {
		fmt.Println()
		output.Warning("%d local files are missing:", len(st.MissingFiles))
		for _, f := range st.MissingFiles {
			output.Muted("  %s", f)
		}
	}
	return nil
}

func runImagesMigrate(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Migrator.MigrateToCDN(ctx)
	if errors.Is(err, media.ErrRemoteDisabled) {
		output.Warning("CDN storage not configured, nothing to migrate")
		return nil
	}
	if err != nil {
		return err
	}
	return printResult("Migrated", res)
}

func runImagesCleanup(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Migrator.CleanupLocal(ctx)
	if err != nil {
		return err
	}
	return printResult("Cleaned", res)
}

func printResult(verb string, res *media.Result) error {
	if jsonOutput {
		return printJSON(res)
	}
	for _, f := range res.Failures {
		fmt.Printf("  %s %s\n", output.StatusIcon("failed"), f)
	}
	if res.Failed > 0 {
		output.Warning("%s %d of %d images, %d failed", verb, res.Succeeded, res.Candidates, res.Failed)
		return nil
	}
	output.Success("%s %d of %d images", verb, res.Succeeded, res.Candidates)
	return nil
}

func runImagesOptimize(dir string) error {
	if optimizeQuality < 1 || optimizeQuality > 100 {
		return fmt.Errorf("--quality must be between 1 and 100")
	}
	if optimizeMaxWidth < 1 {
		return fmt.Errorf("--max-width must be positive")
	}

	reports, err := imaging.OptimizeDir(dir, optimizeOut, imaging.Options{
		MaxWidth: optimizeMaxWidth,
		Quality:  optimizeQuality,
	})
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		output.Info("No images found in %s", dir)
		return nil
	}

	var in, out int64
	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
			fmt.Printf("  %s %s: %v\n", output.StatusIcon("failed"), r.Source, r.Err)
			continue
		}
		in += r.BytesIn
		out += r.BytesOut
		fmt.Printf("  %s %s  %s -> %s (%.1f%%)\n", output.StatusIcon("ok"), r.Output,
			output.Bytes(r.BytesIn), output.Bytes(r.BytesOut), r.Saved())
	}

	fmt.Println()
	if failed > 0 {
		output.Warning("%d of %d images failed", failed, len(reports))
	}
	output.Success("Total %s -> %s", output.Bytes(in), output.Bytes(out))
	return nil
}
