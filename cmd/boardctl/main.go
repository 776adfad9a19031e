package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"artfolio/internal/config"
	"artfolio/internal/model"
	"artfolio/internal/repository"
	"artfolio/internal/service/health"
	"artfolio/internal/service/project"
	"artfolio/pkg/db"
	"artfolio/pkg/logger"
	"artfolio/pkg/outbox"
	redisclient "artfolio/pkg/redis"

	"github.com/spf13/cobra"
)

var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "boardctl",
		Short: "Portfolio health board from the command line",
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", os.Getenv("CONFIG_DIR"), "Configuration directory")

	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Print the health board of a user",
		RunE:  runBoard,
	}
	boardCmd.Flags().String("uid", "", "User id")
	boardCmd.Flags().String("tier", "all", "Tier filter (all, green, amber, red)")
	boardCmd.Flags().String("from", "", "Only projects dated on or after this date")
	boardCmd.Flags().String("to", "", "Only projects dated on or before this date")
	boardCmd.Flags().String("search", "", "Case-insensitive search over title and body")
	_ = boardCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(boardCmd)

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Print the tier counts kept by the health worker",
		RunE:  runIndex,
	}
	indexCmd.Flags().String("uid", "", "User id")
	_ = indexCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(indexCmd)

	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a hypothetical project",
		RunE:  runClassify,
	}
	classifyCmd.Flags().Int("images", 0, "Number of images")
	classifyCmd.Flags().Int("body-len", 0, "Body length in characters")
	rootCmd.AddCommand(classifyCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, "Error: %v", err)
		os.Exit(1)
	}
}

func runBoard(cmd *cobra.Command, _ []string) error {
	uid, _ := cmd.Flags().GetString("uid")
	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewDevelopment()
	defer log.Sync()

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := repository.NewProjectRepository(pool, outbox.NewRepository(pool), nil, log)
	projects, err := repo.LoadAll(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}

	printBoard(os.Stdout, uid, health.BuildBoard(projects, filters))
	return nil
}

func runIndex(cmd *cobra.Command, _ []string) error {
	uid, _ := cmd.Flags().GetString("uid")

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := repository.NewHealthIndex(rdb).Counts(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to read health index: %w", err)
	}
	printCounts(os.Stdout, counts)
	return nil
}

func runClassify(cmd *cobra.Command, _ []string) error {
	images, _ := cmd.Flags().GetInt("images")
	bodyLen, _ := cmd.Flags().GetInt("body-len")
	if images < 0 || bodyLen < 0 {
		return fmt.Errorf("images and body-len must not be negative")
	}

	tier := health.Classify(sampleProject(images, bodyLen))
	printTier(os.Stdout, tier)
	return nil
}

func filtersFromFlags(cmd *cobra.Command) (health.Filters, error) {
	tierRaw, _ := cmd.Flags().GetString("tier")
	fromRaw, _ := cmd.Flags().GetString("from")
	toRaw, _ := cmd.Flags().GetString("to")
	search, _ := cmd.Flags().GetString("search")
	return buildFilters(tierRaw, fromRaw, toRaw, search)
}

func buildFilters(tierRaw, fromRaw, toRaw, search string) (health.Filters, error) {
	tier, err := health.ParseTier(tierRaw)
	if err != nil {
		return health.Filters{}, err
	}
	filters := health.Filters{Tier: tier, SearchTerm: search}
	if filters.FromDate, err = parseFlagDate("from", fromRaw); err != nil {
		return health.Filters{}, err
	}
	if filters.ToDate, err = parseFlagDate("to", toRaw); err != nil {
		return health.Filters{}, err
	}
	return filters, nil
}

func parseFlagDate(name, raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	millis, ok := project.ParseDate(raw)
	if !ok {
		return nil, fmt.Errorf("invalid --%s date %q", name, raw)
	}
	return &millis, nil
}

// sampleProject 构造只含分级所需字段的项目
func sampleProject(images, bodyLen int) model.Project {
	p := model.Project{Body: strings.Repeat("x", bodyLen)}
	for i := 0; i < images; i++ {
		p.ImagesURLs = append(p.ImagesURLs, fmt.Sprintf("image-%d", i))
	}
	return p
}
