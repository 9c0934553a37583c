package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jaswdr/faker"
	"github.com/spf13/cobra"

	"github.com/celesta-db/celesta/internal/expr"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/updater"
	"github.com/celesta-db/celesta/internal/version"
)

var demoRows int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an upgrade on a demo grain, then seed it with fake customer rows",
	Long: `demo builds a small in-memory score — a "shop" grain with a
customers table and a customer_emails materialized view — runs the
same upgrade path "celesta upgrade" would, then seeds customers with
generated rows, so the materialized view's insert trigger fires
against real data.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := cfg.NewLogger()

		ad, db, closeFn, err := openAdaptor(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		score, table, err := buildDemoScore(cfg.SystemGrain)
		if err != nil {
			return fmt.Errorf("build demo score: %w", err)
		}

		up := updater.New(db, ad, cfg.SystemGrain, log)
		if err := up.UpdateSystemSchema(ctx, cfg.ForceDDInitialize); err != nil {
			return fmt.Errorf("update system schema: %w", err)
		}
		if err := up.UpdateDb(ctx, score); err != nil {
			return fmt.Errorf("update db: %w", err)
		}

		if err := seedCustomers(ctx, db, cfg.Dialect, table.GrainName(), table.Name, demoRows); err != nil {
			return fmt.Errorf("seed customers: %w", err)
		}

		fmt.Printf("demo complete: seeded %d customer rows\n", demoRows)
		return nil
	},
}

func init() {
	demoCmd.Flags().IntVar(&demoRows, "rows", 25, "number of fake customer rows to seed")
}

// buildDemoScore constructs a "shop" grain directly through the
// schema package, standing in for the CelestaSQL grammar front end
// this module does not implement: a customers table and a
// customer_emails materialized view derived from it.
func buildDemoScore(systemGrainName string) (*schema.Score, *schema.Table, error) {
	ver, err := version.Parse("version 1.0")
	if err != nil {
		return nil, nil, err
	}

	grain := schema.NewGrain("shop", "-- demo grain, built in-process", ver, true)

	customers := schema.NewTable("customers", true)
	idCol := schema.NewIntegerColumn("id", false, true, "")
	nameCol := schema.NewStringColumn("name", false, 255, "")
	emailCol := schema.NewStringColumn("email", false, 255, "")
	for _, c := range []*schema.Column{idCol, nameCol, emailCol} {
		if err := customers.AddColumn(c); err != nil {
			return nil, nil, err
		}
	}
	if err := customers.AddPKColumn("id"); err != nil {
		return nil, nil, err
	}
	if err := customers.FinalizePK(); err != nil {
		return nil, nil, err
	}
	if err := grain.AddTable(customers); err != nil {
		return nil, nil, err
	}

	idRef, err := expr.FieldRef("", "customers", "id")
	if err != nil {
		return nil, nil, err
	}
	notNull, err := expr.IsNull(idRef)
	if err != nil {
		return nil, nil, err
	}
	root, err := expr.Not(notNull)
	if err != nil {
		return nil, nil, err
	}

	mv := schema.NewMaterializedView("customer_emails", customers, root, 0)
	emailMvCol := schema.NewStringColumn("email", false, 255, "")
	if err := mv.AddColumn(emailMvCol); err != nil {
		return nil, nil, err
	}
	if err := grain.AddMaterializedView(mv); err != nil {
		return nil, nil, err
	}

	score := schema.NewScore()
	if err := score.AddGrain(grain); err != nil {
		return nil, nil, err
	}
	if _, ok := score.Grain(systemGrainName); !ok {
		if err := score.AddGrain(schema.NewGrain(systemGrainName, "", mustVersion("version 1.0"), true)); err != nil {
			return nil, nil, err
		}
	}
	if err := score.SetSystemGrain(systemGrainName); err != nil {
		return nil, nil, err
	}
	if err := score.Finalize(); err != nil {
		return nil, nil, err
	}
	return score, customers, nil
}

// qualifiedTableName mirrors each adaptor's own table-naming
// convention, since the two dialects diverge here: sqlite emulates
// grain namespacing with a "grain_table" prefix, MySQL uses a native
// schema-qualified name.
func qualifiedTableName(dialect, grainName, tableName string) string {
	switch dialect {
	case "mysql":
		return fmt.Sprintf("`%s`.`%s`", grainName, tableName)
	default:
		return grainName + "_" + tableName
	}
}

// seedCustomers inserts generated rows of fake customer data directly
// through the database/sql handle the updater just drove, so the
// customer_emails materialized view's insert trigger fires for each
// row.
func seedCustomers(ctx context.Context, db *sql.DB, dialect, grainName, tableName string, rows int) error {
	qualified := qualifiedTableName(dialect, grainName, tableName)
	stmt := fmt.Sprintf("INSERT INTO %s (name, email) VALUES (?, ?)", qualified)

	f := faker.New()
	for i := 0; i < rows; i++ {
		name := f.Person().Name()
		email := f.Internet().Email()
		if _, err := db.ExecContext(ctx, stmt, name, email); err != nil {
			return fmt.Errorf("insert customer row %d: %w", i, err)
		}
	}
	return nil
}
