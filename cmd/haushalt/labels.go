package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"haushalt/internal/services"
)

func (r *runner) labels(ctx context.Context, kind string, svc *services.LabelService, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		fs := newFlagSet(kind + " list")
		query := fs.String("q", "", "search labels")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		labels := svc.List()
		if *query != "" {
			labels = svc.Search(*query)
		}
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tICON")
		for _, l := range labels {
			fmt.Fprintf(w, "%d\t%s\t%s\n", l.ID, l.Label, l.Icon)
		}
		return w.Flush()

	case "add":
		fs := newFlagSet(kind + " add")
		icon := fs.String("icon", "", "icon name")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		l, err := svc.Create(ctx, joinArgs(fs.Args()), *icon)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Added %s %q (%d)\n", kind, l.Label, l.ID)
		return nil

	case "edit":
		fs := newFlagSet(kind + " edit")
		icon := fs.String("icon", "", "icon name")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if fs.NArg() < 2 {
			return usageErr("%s edit: expected ID LABEL", kind)
		}
		id, err := parseID(kind+" edit", fs.Args()[:1])
		if err != nil {
			return err
		}
		ok, err := svc.Edit(ctx, id, joinArgs(fs.Args()[1:]), *icon)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no %s with id %d", kind, id)
		}
		fmt.Fprintf(r.out, "Updated %s %d\n", kind, id)
		return nil

	case "delete", "rm":
		id, err := parseID(kind+" delete", rest)
		if err != nil {
			return err
		}
		ok, err := svc.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no %s with id %d", kind, id)
		}
		fmt.Fprintf(r.out, "Deleted %s %d\n", kind, id)
		return nil

	default:
		return usageErr("unknown %s command %q", kind, sub)
	}
}
