// Package main is the entry point for the quotes maintenance CLI.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/LucaVano/app-oferte-10-05/internal/app"
	"github.com/LucaVano/app-oferte-10-05/internal/auth"
	"github.com/LucaVano/app-oferte-10-05/internal/config"
	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/pdf"
	"github.com/LucaVano/app-oferte-10-05/internal/pricing"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
)

var rootCmd = &cobra.Command{
	Use:   "offerte-cli",
	Short: "Offerte maintenance CLI",
	Long:  `CLI tools for inspecting and maintaining the quote data directory.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(nextNumberCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(prunePreviewsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

// loadService loads config and builds the quote service.
func loadService() (*quotes.Service, error) {
	components, err := app.Build(config.Load())
	if err != nil {
		return nil, err
	}
	return components.Quotes, nil
}

// Reindex command
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild offerte_index.json",
	Long:  `Scan every record file and rewrite the index from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}
		n, err := svc.Reindex()
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d offerte\n", n)
		return nil
	},
}

// List command
var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List offerte",
	Long:  `List offerte newest first, optionally filtered by status (in_attesa, accettata).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}

		var records []*models.Record
		if listStatus != "" {
			status := models.Status(listStatus)
			if !status.Valid() {
				return fmt.Errorf("invalid status %q (use in_attesa or accettata)", listStatus)
			}
			records, err = svc.ListByStatus(status)
		} else {
			records, err = svc.List()
		}
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No offerte found.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%-12s %-10s %-30s %14s €  %-9s  %s\n",
				r.OfferNumber, r.Date, truncate(r.Customer, 30),
				pricing.Format(pricing.RecordTotal(r)), r.Status.Label(), r.ID)
		}
		fmt.Printf("\n%d offerte\n", len(records))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (in_attesa, accettata)")
}

// Show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one offerta",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}
		rec, err := svc.Get(args[0])
		if err != nil {
			return fmt.Errorf("failed to load offerta: %w", err)
		}

		fmt.Printf("=== Offerta %s ===\n", rec.OfferNumber)
		fmt.Printf("ID:       %s\n", rec.ID)
		fmt.Printf("Date:     %s\n", rec.Date)
		fmt.Printf("Customer: %s\n", rec.Customer)
		if rec.CustomerEmail != "" {
			fmt.Printf("Email:    %s\n", rec.CustomerEmail)
		}
		if rec.Address != "" {
			fmt.Printf("Address:  %s\n", rec.Address)
		}
		fmt.Printf("Status:   %s\n", rec.Status.Label())
		if rec.PDFPath != "" {
			fmt.Printf("PDF:      %s\n", rec.PDFPath)
		}

		for i, tab := range rec.Tabs {
			switch tab.Type() {
			case models.TabSingleProduct:
				p := tab.Single
				fmt.Printf("\n  Tab %d: %s (%s x %s €)\n", i+1, p.ProductName, quantityOrOne(p.Quantity), pricing.FormatPrice(p.UnitPrice))
			case models.TabMultiProduct:
				fmt.Printf("\n  Tab %d: %d products\n", i+1, len(tab.Multi.Products))
				for _, row := range tab.Multi.Products {
					fmt.Printf("    - %s %s (%s x %s €)\n", row.Name, row.Model, quantityOrOne(row.Quantity), pricing.FormatPrice(row.Price))
				}
			}
			fmt.Printf("    Total: %s €\n", pricing.Format(pricing.TabTotal(tab)))
		}

		fmt.Printf("\nTotal: %s €\n", pricing.Format(pricing.RecordTotal(rec)))
		return nil
	},
}

// Next number command
var nextNumberPeek bool

var nextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Issue the next offer number",
	Long:  `Issue the next offer number. With --peek the counter is left unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}
		var number string
		if nextNumberPeek {
			number, err = svc.PeekOfferNumber()
		} else {
			number, err = svc.NextOfferNumber()
		}
		if err != nil {
			return err
		}
		fmt.Println(number)
		return nil
	},
}

func init() {
	nextNumberCmd.Flags().BoolVar(&nextNumberPeek, "peek", false, "Show the next number without consuming it")
}

// Render command
var (
	renderPreview bool
	renderOut     string
)

var renderCmd = &cobra.Command{
	Use:   "render <id>",
	Short: "Render the PDF of an offerta",
	Long: `Render the document of an offerta again. Without --out the stored
document is replaced; with --out the PDF is written to that path only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}

		if renderOut == "" {
			if renderPreview {
				return fmt.Errorf("--preview requires --out")
			}
			path, err := svc.Regenerate(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Rendered %s\n", path)
			return nil
		}

		mode := pdf.ModeFull
		if renderPreview {
			mode = pdf.ModePreview
		}
		path, err := svc.RenderTo(args[0], mode, renderOut)
		if err != nil {
			return err
		}
		fmt.Printf("Rendered %s\n", path)
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderPreview, "preview", false, "Render the preview layout (first tabs only)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Write the PDF to this path")
}

// Prune previews command
var pruneMaxAge time.Duration

var prunePreviewsCmd = &cobra.Command{
	Use:   "prune-previews",
	Short: "Delete old preview PDFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}
		n, err := svc.PrunePreviews(pruneMaxAge)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d previews\n", n)
		return nil
	},
}

func init() {
	prunePreviewsCmd.Flags().DurationVar(&pruneMaxAge, "max-age", quotes.PreviewMaxAge, "Remove previews older than this")
}

// Export command
var exportFormat string

type exportRow struct {
	ID            string `json:"id"`
	OfferNumber   string `json:"offer_number"`
	Date          string `json:"date"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	Status        string `json:"status"`
	Total         string `json:"total"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export offerte",
	Long:  `Export the offerte list with totals to JSON or CSV on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}
		records, err := svc.List()
		if err != nil {
			return err
		}

		rows := make([]exportRow, 0, len(records))
		for _, r := range records {
			rows = append(rows, exportRow{
				ID:            r.ID,
				OfferNumber:   r.OfferNumber,
				Date:          r.Date,
				Customer:      r.Customer,
				CustomerEmail: r.CustomerEmail,
				Status:        string(r.Status),
				Total:         pricing.RecordTotal(r).StringFixed(2),
			})
		}

		switch exportFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		case "csv":
			w := csv.NewWriter(os.Stdout)
			w.Write([]string{"id", "offer_number", "date", "customer", "customer_email", "status", "total"})
			for _, r := range rows {
				w.Write([]string{r.ID, r.OfferNumber, r.Date, r.Customer, r.CustomerEmail, r.Status, r.Total})
			}
			w.Flush()
			return w.Error()
		default:
			return fmt.Errorf("unknown format %q (use json or csv)", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format (json, csv)")
}

// Hash password command
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func quantityOrOne(q string) string {
	if strings.TrimSpace(q) == "" {
		return "1"
	}
	return q
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

var workDir string

func init() {
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "Directory holding .env and the data folder (default: current directory)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if workDir == "" {
			return nil
		}
		if err := os.Chdir(workDir); err != nil {
			return fmt.Errorf("failed to change directory: %w", err)
		}
		return nil
	}
}
