package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/cakephp/cakephp-sub067/cache"
	"github.com/cakephp/cakephp-sub067/internal/tracing"
	"github.com/cakephp/cakephp-sub067/orm"
	"github.com/cakephp/cakephp-sub067/orm/middlewares/opentelemetry"
	"github.com/cakephp/cakephp-sub067/orm/middlewares/querylog"
	"github.com/cakephp/cakephp-sub067/orm/schema"
)

type options struct {
	config     string
	envFile    string
	connection string
	verbose    bool
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "ormshell",
		Short:        "读取数据库表结构，管理表结构缓存",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.config, "config", "c", "ormshell.yaml", "配置文件")
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "环境变量文件，不存在的时候忽略")
	root.PersistentFlags().StringVar(&opts.connection, "connection", "default", "使用的连接")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出执行的 SQL")

	root.AddCommand(
		&cobra.Command{
			Use:   "tables",
			Short: "列出所有的表",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCollection(cmd.Context(), opts, func(ctx context.Context, c *schema.Collection) error {
					tables, err := c.ListTables(ctx)
					if err != nil {
						return err
					}
					for _, t := range tables {
						_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "describe <table>",
			Short: "输出表结构",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCollection(cmd.Context(), opts, func(ctx context.Context, c *schema.Collection) error {
					ts, err := c.Describe(ctx, args[0])
					if err != nil {
						return err
					}
					printTable(cmd, ts)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear-cache",
			Short: "清理表结构缓存",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCollection(cmd.Context(), opts, func(ctx context.Context, c *schema.Collection) error {
					tables, err := c.ClearCache(ctx)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d tables\n", len(tables))
					return nil
				})
			},
		},
	)
	return root
}

func withCollection(ctx context.Context, opts *options,
	fn func(ctx context.Context, c *schema.Collection) error) error {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	ds, err := cfg.datasource(opts.connection)
	if err != nil {
		return err
	}
	sc, err := ds.schemaConfig()
	if err != nil {
		return err
	}

	shutdown, err := tracing.Setup(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("ormshell: 关闭 tracer 失败", slog.Any("error", err))
		}
	}()

	mdls := []orm.Middleware{(opentelemetry.MiddlewareBuilder{}).Build()}
	if opts.verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		mdls = append(mdls, querylog.NewMiddlewareBuilder().Logger(logger).Build())
	}
	db, err := orm.Open(ds.Driver, ds.DSN, orm.DBWithMiddlewares(mdls...))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ch, err := cache.New(cfg.Cache)
	if err != nil {
		return err
	}
	return fn(ctx, db.Schema(
		schema.CollectionWithConfig(sc),
		schema.CollectionWithCache(ch, opts.connection),
	))
}

func printTable(cmd *cobra.Command, ts *schema.TableSchema) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tLENGTH\tNULL\tDEFAULT\tKEY")
	for _, c := range ts.Columns {
		def := "NULL"
		if c.Default != nil {
			def = strconv.Quote(*c.Default)
		}
		key := ""
		if c.PrimaryKey {
			key = "PRI"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\t%s\n", c.Name, c.Type, c.Length, c.Null, def, key)
	}
	_ = w.Flush()
}
