// Command menuctl drives the cafeteria menu lifecycle from the shell.
//
//	menuctl -db menu.db import -items items.jsonl -feedback feedback.jsonl
//	menuctl recommend -slot lunch -n 5
//	menuctl rollout -items 7,9
//	menuctl vote -employee e42 -items 7
//	menuctl finalize
//	menuctl curate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/cognicore/cafeteria/internal/importer"
	"github.com/cognicore/cafeteria/internal/logging"
	"github.com/cognicore/cafeteria/internal/metrics"
	"github.com/cognicore/cafeteria/pkg/cafeteria"
	"github.com/cognicore/cafeteria/pkg/cafeteria/config"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/sentiment"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store"
	"github.com/cognicore/cafeteria/pkg/cafeteria/store/sqlite"
)

const usage = `usage: menuctl [flags] <command> [command flags]

commands:
  import     load catalog and feedback from JSONL files
  feedback   record one feedback entry
  recommend  rank items for a meal slot
  rollout    open today's voting menu
  vote       cast votes on today's menu
  menu       show today's voting menu, or a final menu with -final
  finalize   pick today's winners
  curate     flag low-rated items for this month
  discards   list discard candidates for a month
  prefs      show or update an employee's preferences
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, clockwork.NewRealClock()); err != nil {
		logger := logging.Logger()
		logger.Error().Err(err).Msg("menuctl failed")
		os.Exit(1)
	}
}

type app struct {
	engine *cafeteria.Engine
	out    io.Writer
	asJSON bool
}

func run(ctx context.Context, args []string, out io.Writer, clock clockwork.Clock) error {
	fs := flag.NewFlagSet("menuctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fmt.Fprintln(out, "\nflags:")
		fs.PrintDefaults()
	}
	var (
		configPath  = fs.String("config", "", "YAML config file (optional)")
		dbPath      = fs.String("db", "", "Database path (overrides config)")
		lexiconPath = fs.String("lexicon", "", "Sentiment lexicon YAML (overrides config)")
		jsonOut     = fs.Bool("json", false, "Print results as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	loader := config.Loader{ConfigPath: *configPath, LexiconPath: *lexiconPath}
	components, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dbPath != "" {
		components.Config.Database.Path = *dbPath
	}
	logging.Init(components.Config.Logging())

	m := metrics.New()
	engine, cleanup, err := buildEngine(ctx, components, clock, m)
	if err != nil {
		return err
	}
	defer cleanup()

	a := &app{engine: engine, out: out, asJSON: *jsonOut}
	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		return err
	}

	if err := m.WriteTextfile(components.Config.Metrics.Textfile); err != nil {
		logger := logging.Logger()
		logger.Warn().Err(err).Str("path", components.Config.Metrics.Textfile).Msg("write metrics textfile")
	}
	return nil
}

func buildEngine(ctx context.Context, comp *config.Components, clock clockwork.Clock, m *metrics.Metrics) (*cafeteria.Engine, func(), error) {
	st, err := sqlite.OpenSQLite(ctx, comp.Config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	log := logging.Logger()
	engine := cafeteria.New(cafeteria.Options{
		Store:            st,
		Scorer:           comp.Scorer,
		Clock:            clock,
		Weights:          comp.Config.Weights(),
		SummaryOptions:   comp.Config.SummaryOptions(),
		DiscardThreshold: comp.Config.Discard.RatingThreshold,
		DefaultCount:     comp.Config.Ranking.DefaultCount,
		Logger:           &log,
		Metrics:          m,
	})

	cleanup := func() {
		engine.Close()
	}
	return engine, cleanup, nil
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "import":
		return a.importCmd(ctx, args)
	case "feedback":
		return a.feedbackCmd(ctx, args)
	case "recommend":
		return a.recommendCmd(ctx, args)
	case "rollout":
		return a.rolloutCmd(ctx, args)
	case "vote":
		return a.voteCmd(ctx, args)
	case "menu":
		return a.menuCmd(ctx, args)
	case "finalize":
		return a.finalizeCmd(ctx, args)
	case "curate":
		return a.curateCmd(ctx, args)
	case "discards":
		return a.discardsCmd(ctx, args)
	case "prefs":
		return a.prefsCmd(ctx, args)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// emit prints v as JSON in -json mode, otherwise calls text.
func (a *app) emit(v interface{}, text func()) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func (a *app) importCmd(ctx context.Context, args []string) error {
	fs := a.flags("import")
	itemsPath := fs.String("items", "", "Catalog JSONL file")
	feedbackPath := fs.String("feedback", "", "Feedback JSONL file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *itemsPath == "" && *feedbackPath == "" {
		return internalerr.Invalid("import needs -items and/or -feedback")
	}

	var res struct {
		Items    int `json:"items"`
		Feedback int `json:"feedback"`
		Skipped  int `json:"skipped"`
	}
	log := logging.Component("import")

	if *itemsPath != "" {
		recs, err := importer.LoadItems(*itemsPath)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			item, err := rec.FoodItem()
			if err == nil {
				_, err = a.engine.AddItem(ctx, item)
			}
			if err != nil {
				log.Warn().Err(err).Str("item", rec.Name).Msg("skipping item")
				res.Skipped++
				continue
			}
			res.Items++
		}
	}

	if *feedbackPath != "" {
		recs, err := importer.LoadFeedback(*feedbackPath)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fb, err := rec.Feedback()
			if err == nil {
				err = a.engine.SubmitFeedback(ctx, fb)
			}
			if err != nil {
				log.Warn().Err(err).Str("employee", rec.EmployeeID).Int64("item", rec.FoodItemID).Msg("skipping feedback")
				res.Skipped++
				continue
			}
			res.Feedback++
		}
	}

	return a.emit(res, func() {
		fmt.Fprintf(a.out, "Imported %d items and %d feedback entries (%d skipped)\n", res.Items, res.Feedback, res.Skipped)
	})
}

func (a *app) feedbackCmd(ctx context.Context, args []string) error {
	fs := a.flags("feedback")
	employee := fs.String("employee", "", "Employee ID")
	item := fs.Int64("item", 0, "Food item ID")
	rating := fs.Int("rating", 0, "Rating 1-5")
	comment := fs.String("comment", "", "Free-text comment")
	rich := fs.Bool("html", false, "Comment is HTML from a rich text field")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text := *comment
	if *rich {
		text = sentiment.StripMarkup(text)
	}
	fb := store.Feedback{EmployeeID: *employee, FoodItemID: *item, Rating: *rating, Comment: text}
	if err := a.engine.SubmitFeedback(ctx, fb); err != nil {
		return err
	}
	return a.emit(map[string]string{"status": "recorded"}, func() {
		fmt.Fprintln(a.out, "Thanks, feedback recorded.")
	})
}

type recommendation struct {
	Slot         store.MealSlot `json:"slot"`
	ItemID       int64          `json:"item_id"`
	Name         string         `json:"name"`
	Score        float64        `json:"score"`
	AvgRating    float64        `json:"avg_rating"`
	AvgSentiment float64        `json:"avg_sentiment"`
	Summary      string         `json:"summary"`
}

func (a *app) recommendCmd(ctx context.Context, args []string) error {
	fs := a.flags("recommend")
	slotName := fs.String("slot", "", "Meal slot (breakfast, lunch, dinner); empty for all")
	n := fs.Int("n", 0, "Items per slot (0 uses config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	slots := store.MealSlots
	if *slotName != "" {
		slot, err := store.ParseMealSlot(*slotName)
		if err != nil {
			return internalerr.Invalid("%v", err)
		}
		slots = []store.MealSlot{slot}
	}

	var out []recommendation
	for _, slot := range slots {
		recs, err := a.engine.Recommend(ctx, slot, *n)
		if err != nil {
			return err
		}
		for _, r := range recs {
			out = append(out, recommendation{
				Slot:         slot,
				ItemID:       r.Item.ID,
				Name:         r.Item.Name,
				Score:        r.Breakdown.Total,
				AvgRating:    r.Stat.AvgRating(),
				AvgSentiment: r.Stat.AvgSentiment(),
				Summary:      r.Stat.Summary,
			})
		}
	}

	return a.emit(out, func() {
		var current store.MealSlot
		for _, r := range out {
			if r.Slot != current {
				current = r.Slot
				fmt.Fprintf(a.out, "\n%s\n", strings.ToUpper(string(current)))
			}
			fmt.Fprintf(a.out, "  %4d  %-24s score %.2f  rating %.2f  sentiment %.2f\n", r.ItemID, r.Name, r.Score, r.AvgRating, r.AvgSentiment)
			fmt.Fprintf(a.out, "        %s\n", r.Summary)
		}
		if len(out) == 0 {
			fmt.Fprintln(a.out, "No available items.")
		}
	})
}

func (a *app) rolloutCmd(ctx context.Context, args []string) error {
	fs := a.flags("rollout")
	itemsFlag := fs.String("items", "", "Comma-separated food item IDs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids, err := parseIDs(*itemsFlag)
	if err != nil {
		return err
	}

	rows, err := a.engine.RollOut(ctx, ids)
	if errors.Is(err, internalerr.ErrAlreadyRolledOut) {
		return a.emit(map[string]string{"status": "already_rolled_out"}, func() {
			fmt.Fprintln(a.out, "Menu already rolled out today.")
		})
	}
	if err != nil {
		return err
	}
	return a.emit(rows, func() {
		fmt.Fprintf(a.out, "Rolled out %d items for %s\n", len(rows), a.engine.Today())
	})
}

func (a *app) voteCmd(ctx context.Context, args []string) error {
	fs := a.flags("vote")
	employee := fs.String("employee", "", "Employee ID (empty votes anonymously)")
	itemsFlag := fs.String("items", "", "Comma-separated food item IDs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids, err := parseIDs(*itemsFlag)
	if err != nil {
		return err
	}

	outcomes, err := a.engine.Vote(ctx, *employee, ids)
	if err != nil {
		return err
	}
	type result struct {
		ItemID int64  `json:"item_id"`
		Result string `json:"result"`
	}
	res := make([]result, len(outcomes))
	for i, o := range outcomes {
		res[i] = result{ItemID: o.FoodItemID, Result: o.Result.String()}
	}
	return a.emit(res, func() {
		for _, r := range res {
			fmt.Fprintf(a.out, "  %d: %s\n", r.ItemID, r.Result)
		}
	})
}

func (a *app) menuCmd(ctx context.Context, args []string) error {
	fs := a.flags("menu")
	employee := fs.String("employee", "", "Order the menu for this employee's preferences")
	final := fs.Bool("final", false, "Show the final menu instead of the voting menu")
	day := fs.String("day", "", "Day for -final (YYYY-MM-DD, default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *final {
		finals, err := a.engine.FinalMenu(ctx, *day)
		if err != nil {
			return err
		}
		return a.emit(finals, func() { a.printFinals(ctx, finals) })
	}

	if *employee != "" {
		ranked, err := a.engine.PersonalizedMenu(ctx, *employee)
		if err != nil {
			return err
		}
		return a.emit(ranked, func() {
			for _, r := range ranked {
				fmt.Fprintf(a.out, "  %4d  %-24s votes %d  match %d/4\n", r.Item.ID, r.Item.Name, r.Rolled.Votes, r.Score)
			}
			if len(ranked) == 0 {
				fmt.Fprintln(a.out, "Nothing rolled out today.")
			}
		})
	}

	entries, err := a.engine.RolledOut(ctx)
	if err != nil {
		return err
	}
	return a.emit(entries, func() {
		for _, e := range entries {
			fmt.Fprintf(a.out, "  %4d  %-24s votes %d  rating %.2f  %s\n", e.Item.ID, e.Item.Name, e.Rolled.Votes, e.Stat.AvgRating(), e.Stat.Summary)
		}
		if len(entries) == 0 {
			fmt.Fprintln(a.out, "Nothing rolled out today.")
		}
	})
}

func (a *app) printFinals(ctx context.Context, finals []store.FinalItem) {
	if len(finals) == 0 {
		fmt.Fprintln(a.out, "No final menu.")
		return
	}
	names := map[int64]string{}
	if items, err := a.engine.Items(ctx); err == nil {
		for _, it := range items {
			names[it.ID] = it.Name
		}
	}
	for _, f := range finals {
		fmt.Fprintf(a.out, "  %-9s %4d  %-24s votes %d\n", f.Slot, f.FoodItemID, names[f.FoodItemID], f.Votes)
	}
}

func (a *app) finalizeCmd(ctx context.Context, args []string) error {
	if err := a.flags("finalize").Parse(args); err != nil {
		return err
	}
	finals, err := a.engine.Finalize(ctx)
	if errors.Is(err, internalerr.ErrAlreadyFinalized) {
		return a.emit(map[string]string{"status": "already_finalized"}, func() {
			fmt.Fprintln(a.out, "Menu already finalized today.")
		})
	}
	if err != nil {
		return err
	}
	return a.emit(finals, func() { a.printFinals(ctx, finals) })
}

func (a *app) curateCmd(ctx context.Context, args []string) error {
	if err := a.flags("curate").Parse(args); err != nil {
		return err
	}
	res, err := a.engine.CurateDiscards(ctx)
	if err != nil {
		return err
	}
	return a.emit(res, func() {
		if res.AlreadyGenerated {
			fmt.Fprintf(a.out, "Discard candidates already generated for %s.\n", res.Period)
			return
		}
		fmt.Fprintf(a.out, "Flagged %d item(s) for %s\n", len(res.Candidates), res.Period)
		printDiscards(a.out, res.Candidates)
	})
}

func (a *app) discardsCmd(ctx context.Context, args []string) error {
	fs := a.flags("discards")
	period := fs.String("period", "", "Month (YYYY-MM, default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.engine.Discards(ctx, *period)
	if err != nil {
		return err
	}
	return a.emit(list, func() {
		if len(list) == 0 {
			fmt.Fprintln(a.out, "No discard candidates.")
			return
		}
		printDiscards(a.out, list)
	})
}

func printDiscards(w io.Writer, list []store.DiscardCandidate) {
	for _, d := range list {
		fmt.Fprintf(w, "  %4d  rating %.2f  sentiment %.2f  (%s)\n", d.FoodItemID, d.AverageRating, d.AverageSentiment, d.GeneratedOn)
	}
}

func (a *app) prefsCmd(ctx context.Context, args []string) error {
	fs := a.flags("prefs")
	employee := fs.String("employee", "", "Employee ID")
	diet := fs.String("diet", "", "Dietary preference")
	spice := fs.String("spice", "", "Spice level")
	cuisine := fs.String("cuisine", "", "Cuisine type")
	sweet := fs.Bool("sweet", false, "Sweet tooth")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*employee) == "" {
		return internalerr.Invalid("prefs needs -employee")
	}

	profile, _, err := a.engine.Preference(ctx, *employee)
	if err != nil {
		return err
	}
	profile.EmployeeID = *employee

	changed := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "diet":
			profile.DietaryPreference, changed = *diet, true
		case "spice":
			profile.SpiceLevel, changed = *spice, true
		case "cuisine":
			profile.CuisineType, changed = *cuisine, true
		case "sweet":
			profile.SweetTooth, changed = *sweet, true
		}
	})
	if changed {
		if err := a.engine.SetPreference(ctx, profile); err != nil {
			return err
		}
	}

	return a.emit(profile, func() {
		fmt.Fprintf(a.out, "%s: diet=%q spice=%q cuisine=%q sweet=%t\n",
			profile.EmployeeID, profile.DietaryPreference, profile.SpiceLevel, profile.CuisineType, profile.SweetTooth)
	})
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, internalerr.Invalid("item id %q is not a number", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, internalerr.Invalid("no item ids given")
	}
	return ids, nil
}
