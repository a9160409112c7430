package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/domain"
	"finitefield.org/nutricart/internal/format"
	"finitefield.org/nutricart/internal/render"
)

func newCatalogCmd(a *app) *cobra.Command {
	var health, sortKey string
	cmd := &cobra.Command{
		Use:   "catalog <category>",
		Short: "Print a category's products as the storefront would show them",
		Long: `Fetch a category from the backend and print the filtered, sorted product view.

Examples:
  nutricart catalog snacks
  nutricart catalog dairy --health diabetes --sort price-low-high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			c, err := a.category(reg, args[0])
			if err != nil {
				return err
			}
			products, err := a.fetch(cmd.Context(), c.Slug)
			if catalog.IsFetchError(err) {
				return fmt.Errorf("%s: %w", render.MsgLoadFailed, err)
			}
			if err != nil {
				return err
			}
			view := catalog.View(products, health, catalog.ParseSortKey(sortKey))
			money := format.NewMoney(a.cfg.Display.Locale, a.cfg.Display.Currency)
			return printProducts(cmd.OutOrStdout(), money, view)
		},
	}
	cmd.Flags().StringVar(&health, "health", catalog.HealthNormal, "hide products restricted for this condition")
	cmd.Flags().StringVar(&sortKey, "sort", "", "price-high-low, price-low-high, weight-high-low or weight-low-high")
	return cmd
}

func (a *app) fetch(ctx context.Context, category string) ([]domain.Product, error) {
	client, err := catalog.NewClient(a.cfg.Backend.URL, &http.Client{Timeout: a.cfg.Backend.Timeout})
	if err != nil {
		return nil, err
	}
	return client.Fetch(ctx, category)
}

func printProducts(w io.Writer, money *format.Money, products []domain.Product) error {
	if len(products) == 0 {
		_, err := fmt.Fprintln(w, render.MsgNoMatches)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tWEIGHT\tFAT (g)\tSUGARS (g)\tSODIUM (mg)\tRESTRICTIONS")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, money.Format(p.Price), p.Weight,
			money.Number(p.Fat, 1), money.Number(p.Sugars, 1), money.Number(p.Sodium, 0),
			p.HealthRestrictions)
	}
	return tw.Flush()
}
