package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finitefield.org/nutricart/internal/cart"
	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/domain"
	"finitefield.org/nutricart/internal/format"
	"finitefield.org/nutricart/internal/render"
	"finitefield.org/nutricart/internal/storage"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and edit the local cart",
		Long: `Operate on the cart kept in local storage under the "cli" scope. Changes are
persisted immediately, exactly as the storefront persists a visitor's cart.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withCart(cmd.Context(), nil, func(s *cart.Store) error {
					return a.printCart(cmd.OutOrStdout(), s)
				})
			},
		},
		&cobra.Command{
			Use:   "add <category> <id>",
			Short: "Add one unit of a product from a category",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseProductID(args[1])
				if err != nil {
					return err
				}
				reg, err := a.registry()
				if err != nil {
					return err
				}
				c, err := a.category(reg, args[0])
				if err != nil {
					return err
				}
				products, err := a.fetch(cmd.Context(), c.Slug)
				if err != nil {
					return err
				}
				snap := catalog.NewSnapshot(c.Slug, products)
				lookup := cart.CatalogFunc(func(id int64) (domain.Product, bool) {
					p, ok := snap.Lookup(id)
					if ok {
						p.ImageURL = catalog.ImageURL(p)
					}
					return p, ok
				})
				return a.withCart(cmd.Context(), lookup, func(s *cart.Store) error {
					ev, ok := s.Add(cmd.Context(), id)
					if !ok {
						return fmt.Errorf("product %d is not in %s", id, c.Slug)
					}
					return a.report(cmd.OutOrStdout(), s, ev, render.MsgAdded)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseProductID(args[0])
				if err != nil {
					return err
				}
				return a.withCart(cmd.Context(), nil, func(s *cart.Store) error {
					ev, ok := s.Remove(cmd.Context(), id)
					if !ok {
						return fmt.Errorf("product %d is not in the cart", id)
					}
					return a.report(cmd.OutOrStdout(), s, ev, render.MsgRemoved)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withCart(cmd.Context(), nil, func(s *cart.Store) error {
					return a.report(cmd.OutOrStdout(), s, s.Clear(cmd.Context()), render.MsgCleared)
				})
			},
		},
	)
	return cmd
}

func parseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

func (a *app) withCart(ctx context.Context, c cart.Catalog, fn func(*cart.Store) error) error {
	backend, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	opts := []cart.Option{}
	if c != nil {
		opts = append(opts, cart.WithCatalog(c))
	}
	s, err := cart.Open(ctx, storage.Scope(backend, cliScope), opts...)
	if err != nil {
		return err
	}
	return fn(s)
}

func (a *app) report(w io.Writer, s *cart.Store, ev cart.Event, msg string) error {
	if ev.PersistErr != nil {
		return fmt.Errorf("cart change not saved: %w", ev.PersistErr)
	}
	if _, err := fmt.Fprintln(w, msg); err != nil {
		return err
	}
	return a.printCart(w, s)
}

func (a *app) printCart(w io.Writer, s *cart.Store) error {
	money := format.NewMoney(a.cfg.Display.Locale, a.cfg.Display.Currency)
	if s.Empty() {
		_, err := fmt.Fprintln(w, render.MsgCartEmpty)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tSUBTOTAL")
	for _, l := range s.Lines() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, money.Format(l.Price), l.Quantity, money.Format(l.Subtotal()))
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%d\t%s\n", s.TotalItemCount(), money.Format(s.TotalValue()))
	return tw.Flush()
}
