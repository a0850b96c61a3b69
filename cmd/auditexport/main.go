// auditexport writes ledger entries as CSV straight from the database. It is
// the offline counterpart of GET /audit/export for operators holding
// database credentials.
//
//	auditexport --from 2026-01-01 --to 2026-04-01 --action appeal_resolved --out q1.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"dealdesk/internal/ledger"
	ledgerstore "dealdesk/internal/ledger/store"
	"dealdesk/internal/platform/config"
	"dealdesk/internal/platform/postgres"
	id "dealdesk/pkg/domain"
)

type options struct {
	filter ledger.Filter
	out    string
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg := config.FromEnv()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	w := stdout
	if opts.out != "" && opts.out != "-" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	n, err := export(ctx, ledgerstore.NewPostgres(db), opts.filter, w)
	if err != nil {
		return err
	}
	if opts.out != "" && opts.out != "-" {
		fmt.Fprintf(os.Stderr, "wrote %d entries to %s\n", n, opts.out)
	}
	return nil
}

func export(ctx context.Context, store ledger.Store, f ledger.Filter, w io.Writer) (int, error) {
	entries, err := store.List(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	if err := ledger.Export(w, entries); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(entries), nil
}

func parseFlags(args []string) (options, error) {
	var (
		from, to, subject, actor, kind string
		actions                        []string
		opts                           options
	)
	fs := pflag.NewFlagSet("auditexport", pflag.ContinueOnError)
	fs.StringVar(&from, "from", "", "inclusive lower bound, RFC 3339 or YYYY-MM-DD")
	fs.StringVar(&to, "to", "", "exclusive upper bound, RFC 3339 or YYYY-MM-DD")
	fs.StringVar(&subject, "subject", "", "subject or record ID")
	fs.StringVar(&actor, "actor", "", "actor ID")
	fs.StringVar(&kind, "kind", "", "subject kind: deal or response")
	fs.StringSliceVar(&actions, "action", nil, "actions to include; repeatable or comma-separated")
	fs.IntVar(&opts.filter.Limit, "limit", 0, "maximum rows, 0 for all")
	fs.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var err error
	if opts.filter.From, err = parseTime(from); err != nil {
		return options{}, fmt.Errorf("--from: %w", err)
	}
	if opts.filter.To, err = parseTime(to); err != nil {
		return options{}, fmt.Errorf("--to: %w", err)
	}
	if !opts.filter.From.IsZero() && !opts.filter.To.IsZero() && !opts.filter.From.Before(opts.filter.To) {
		return options{}, errors.New("--from must be before --to")
	}
	if subject != "" {
		if opts.filter.SubjectID, err = uuid.Parse(subject); err != nil {
			return options{}, fmt.Errorf("--subject: %w", err)
		}
	}
	if actor != "" {
		parsed, err := uuid.Parse(actor)
		if err != nil {
			return options{}, fmt.Errorf("--actor: %w", err)
		}
		opts.filter.Actor = id.ActorID(parsed)
	}
	switch k := ledger.SubjectKind(kind); k {
	case "", ledger.KindDeal, ledger.KindResponse:
		opts.filter.Kind = k
	default:
		return options{}, fmt.Errorf("--kind: unknown subject kind %q", kind)
	}
	for _, a := range actions {
		action := ledger.Action(strings.TrimSpace(a))
		if !action.IsValid() {
			return options{}, fmt.Errorf("--action: unknown action %q", a)
		}
		opts.filter.Actions = append(opts.filter.Actions, action)
	}
	if opts.filter.Limit < 0 {
		return options{}, errors.New("--limit must not be negative")
	}
	return opts, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}
