package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"calexport/internal/config"
	"calexport/internal/db"
	"calexport/internal/export"
	"calexport/internal/sftp"
	"calexport/internal/source"
)

func main() {
	log.SetFlags(log.LstdFlags)

	root := &cli.Command{
		Name:  "calexport",
		Usage: "export local calendars to an ICS file, then upload it or mirror it into another calendar",
		Commands: []*cli.Command{
			exportCommand(),
			listCalendarsCommand(),
			historyCommand(),
			showConfigCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "run one export",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "calendar", Aliases: []string{"c"}, Usage: "calendar to export (repeatable, overrides CALENDAR_NAMES)"},
			&cli.IntFlag{Name: "days-ahead", Usage: "days ahead of today to include"},
			&cli.IntFlag{Name: "days-behind", Usage: "days behind today to include"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "artifact file path"},
			&cli.StringFlag{Name: "name", Usage: "calendar name written into the artifact"},
			&cli.IntFlag{Name: "title-length", Usage: "title truncation limit in runes (0 disables)"},
			&cli.BoolFlag{Name: "include-details", Usage: "keep location, description and URL"},
			&cli.StringFlag{Name: "target", Usage: "local calendar to reconcile into (overrides TARGET_CALENDAR)"},
			&cli.BoolFlag{Name: "no-upload", Usage: "skip the SFTP upload even when configured"},
			&cli.BoolFlag{Name: "mock", Usage: "read from the built-in fixture store"},
		},
		Action: runExport,
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyExportFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Logging.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	loc, err := time.LoadLocation(cfg.Calendar.TimezoneID)
	if err != nil {
		return err
	}

	var src source.Source = source.NewBridge(cfg.Calendar.BridgePath, source.DefaultBridgeTimeout)
	if cmd.Bool("mock") {
		src = source.NewFixture(loc)
	}

	opts := []export.Option{}
	if cfg.Calendar.MockFallback && !cmd.Bool("mock") {
		opts = append(opts, export.WithFallback(source.NewFixture(loc)))
	}
	if cfg.SFTP.Enabled && !cmd.Bool("no-upload") {
		uploader := sftp.NewUploader(sftp.Config{
			Host:       cfg.SFTP.Host,
			Port:       cfg.SFTP.Port,
			Username:   cfg.SFTP.Username,
			Password:   cfg.SFTP.Password,
			KeyFile:    cfg.SFTP.KeyFile,
			CreateDirs: cfg.SFTP.CreateDirs,
			Timeout:    cfg.SFTPTimeout(),
		})
		opts = append(opts, export.WithSink(uploader))
	}
	if cfg.History.Path != "" {
		history, err := db.New(cfg.History.Path)
		if err != nil {
			log.Printf("Run history unavailable: %v", err)
		} else {
			defer history.Close()
			opts = append(opts, export.WithHistory(history))
		}
	}

	engine := export.NewEngine(export.Config{
		CalendarNames:    cfg.Calendar.Names,
		DaysAhead:        cfg.Calendar.DaysAhead,
		DaysBehind:       cfg.Calendar.DaysBehind,
		OutputFile:       cfg.Calendar.OutputFile,
		OutputName:       cfg.Calendar.OutputName,
		IncludeDetails:   cfg.Calendar.IncludeDetails,
		TitleLengthLimit: cfg.Calendar.TitleLengthLimit,
		TimezoneID:       cfg.Calendar.TimezoneID,
		AuthTimeout:      cfg.AuthTimeout(),
		TargetCalendar:   cfg.Target.CalendarName,
		RemotePath:       cfg.SFTP.RemotePath,
	}, src, opts...)

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d events to %s (window %s to %s)\n",
		result.ExportedCount, result.ArtifactPath,
		result.Window.Start.Format("2006-01-02"), result.Window.End.Format("2006-01-02"))
	switch result.Dispatched {
	case export.DispatchSFTP:
		fmt.Println("Uploaded artifact over SFTP")
	case export.DispatchCalendar:
		fmt.Printf("Reconciled target calendar: %d deleted, %d imported\n",
			result.DeletedCount, result.ImportedCount)
	}
	if result.Partial {
		fmt.Println("Run finished partially; see warnings")
	}
	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
	return nil
}

func applyExportFlags(cfg *config.Config, cmd *cli.Command) {
	if names := cmd.StringSlice("calendar"); len(names) > 0 {
		cfg.Calendar.Names = names
	}
	if cmd.IsSet("days-ahead") {
		cfg.Calendar.DaysAhead = int(cmd.Int("days-ahead"))
	}
	if cmd.IsSet("days-behind") {
		cfg.Calendar.DaysBehind = int(cmd.Int("days-behind"))
	}
	if cmd.IsSet("output") {
		cfg.Calendar.OutputFile = cmd.String("output")
	}
	if cmd.IsSet("name") {
		cfg.Calendar.OutputName = cmd.String("name")
	}
	if cmd.IsSet("title-length") {
		cfg.Calendar.TitleLengthLimit = int(cmd.Int("title-length"))
	}
	if cmd.IsSet("include-details") {
		cfg.Calendar.IncludeDetails = cmd.Bool("include-details")
	}
	if cmd.IsSet("target") {
		cfg.Target.CalendarName = cmd.String("target")
	}
}

func listCalendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-calendars",
		Usage: "list the calendars the store offers",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mock", Usage: "read from the built-in fixture store"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var src source.Source = source.NewBridge(cfg.Calendar.BridgePath, source.DefaultBridgeTimeout)
			if cmd.Bool("mock") {
				src = source.NewFixture(nil)
			}

			authCtx, cancel := context.WithTimeout(ctx, cfg.AuthTimeout())
			defer cancel()
			if err := src.RequestAccess(authCtx); err != nil {
				return err
			}

			calendars, err := src.ListCalendars(ctx)
			if err != nil {
				return err
			}
			for _, cal := range calendars {
				fmt.Printf("%s\t%s/%s\n", cal.Title, cal.Source, cal.Type)
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent export runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "number of runs to show"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("run history is disabled (HISTORY_DB_PATH is empty)")
			}

			history, err := db.New(cfg.History.Path)
			if err != nil {
				return err
			}
			defer history.Close()

			entries, err := history.RecentRunLogs(int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}
			for _, entry := range entries {
				fmt.Printf("%s  %-7s  exported=%d deleted=%d imported=%d  via=%s  %s\n",
					entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Status, entry.ExportedCount, entry.DeletedCount,
					entry.ImportedCount, entry.Dispatched, entry.Message)
			}
			return nil
		},
	}
}

func showConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "show-config",
		Usage: "print the effective configuration (secrets excluded)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
