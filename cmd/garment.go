package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/scrapers"
)

func newGarmentCmd() *cobra.Command {
	var browsers bool

	cmd := &cobra.Command{
		Use:   "garment <product-url>...",
		Short: "Find the garment image on retail product pages",
		Example: `  fitly garment https://amzn.in/d/8sCIA5h
  fitly garment --browsers=false https://www.myntra.com/tshirts/h%26m/11468714/buy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("browsers") {
				browsers = config.ScraperBrowsers
			}
			finder := scrapers.NewFinder(browsers, config.ChromeDriverPath)

			out := cmd.OutOrStdout()
			failed := 0
			for _, u := range args {
				scraper, resolved, err := finder.GetScraper(cmd.Context(), u)
				if err != nil {
					fmt.Fprintf(out, "%s\n  error: %v\n", u, err)
					failed++
					continue
				}
				image, err := scraper.GarmentImage(cmd.Context(), resolved)
				if err != nil {
					fmt.Fprintf(out, "%s\n  scraper: %T\n  error: %v\n", u, scraper, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "%s\n  resolved: %s\n  scraper: %T\n  image: %s\n", u, resolved, scraper, image)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d urls failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&browsers, "browsers", true, "Fall back to headless Chrome and Selenium when plain HTTP is blocked")

	return cmd
}
