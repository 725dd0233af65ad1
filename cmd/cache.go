package cmd

import (
	"context"
	"fmt"

	"scene-archiver/feature/archive/models"

	"github.com/spf13/cobra"
)

var (
	clearAll       bool
	clearSatellite int
	clearProduct   string
	clearSector    string
	clearBand      int
	clearDate      string
	clearHour      int
)

// cacheCmd is the parent command for scan cache maintenance.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or invalidate the scan cache",
}

// cacheInfoCmd prints cache row counts and scan time bounds.
var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show scan cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := initApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		info, err := a.cache.Stats(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Cached buckets: %d\n", info.Buckets)
		fmt.Printf("Record TTL:     %s\n", a.cache.TTL())
		if info.Oldest != nil {
			fmt.Printf("Oldest scan:    %s\n", info.Oldest)
		}
		if info.Newest != nil {
			fmt.Printf("Newest scan:    %s\n", info.Newest)
		}
		return nil
	},
}

// cacheClearCmd invalidates cache records, either everything or one bucket.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Invalidate scan cache records",
	Long: `Invalidate scan cache records so the next reconciliation re-scans the
remote store.

Examples:
  # Drop everything
  scene-archiver cache clear --all

  # Force a re-scan of one hour bucket
  scene-archiver cache clear --satellite 16 --product RadC --sector C \
    --band 13 --date 2023-06-15 --hour 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := initApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		ctx := context.Background()

		if clearAll {
			if err := a.cache.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("Scan cache cleared")
			return nil
		}

		if clearSatellite == 0 || clearProduct == "" || clearSector == "" ||
			clearBand == 0 || clearDate == "" || clearHour < 0 {
			return fmt.Errorf("either --all or the full bucket tuple (--satellite --product --sector --band --date --hour) is required")
		}

		bucket := models.TimeBucket{
			Satellite: models.Satellite(clearSatellite),
			Product:   models.Product(clearProduct),
			Sector:    models.Sector(clearSector),
			Band:      clearBand,
			Date:      clearDate,
			Hour:      clearHour,
		}
		if err := a.cache.Invalidate(ctx, bucket); err != nil {
			return err
		}
		fmt.Printf("Invalidated bucket %s\n", bucket.Key())
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&clearAll, "all", false, "clear every cache record")
	cacheClearCmd.Flags().IntVar(&clearSatellite, "satellite", 0, "bucket satellite number")
	cacheClearCmd.Flags().StringVar(&clearProduct, "product", "", "bucket product code")
	cacheClearCmd.Flags().StringVar(&clearSector, "sector", "", "bucket sector")
	cacheClearCmd.Flags().IntVar(&clearBand, "band", 0, "bucket band")
	cacheClearCmd.Flags().StringVar(&clearDate, "date", "", "bucket UTC date (2006-01-02)")
	cacheClearCmd.Flags().IntVar(&clearHour, "hour", -1, "bucket UTC hour 0-23")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}
