// Command dbadmin backs up, restores and inspects the SQLite database.
// Stop the server before restoring.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"mess-o-midi-backend/internal/config"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/logger"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "dbadmin",
		Usage: "manage the Mess o Midi database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "database driver (sqlite or postgres)",
				Value:   config.DefaultDatabaseDriver,
				EnvVars: []string{"DATABASE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "database DSN",
				Value:   config.DefaultDatabaseURL,
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "backup",
				Usage: "write a consistent copy of the database to a new file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "backup file", Required: true},
				},
				Action: backup,
			},
			{
				Name:  "restore",
				Usage: "replace the database with a verified backup",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "backup file", Required: true},
				},
				Action: restore,
			},
			{
				Name:   "stats",
				Usage:  "print row counts",
				Action: stats,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending migrations",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func open(c *cli.Context) (*database.Store, error) {
	return database.Open(c.String("driver"), c.String("database-url"))
}

func backup(c *cli.Context) error {
	store, err := open(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := database.Backup(c.Context, store, c.String("out")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Backup written to %s\n", c.String("out"))
	return nil
}

func restore(c *cli.Context) error {
	if c.String("driver") != "sqlite" {
		return fmt.Errorf("restore is only supported for sqlite")
	}
	dbPath := database.SQLitePath(c.String("database-url"))

	if err := database.Restore(c.Context, dbPath, c.String("in")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Restored %s from %s\n", dbPath, c.String("in"))
	return nil
}

func stats(c *cli.Context) error {
	store, err := open(c)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := database.CollectStats(c.Context, store)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "users:       %d\nprojects:    %d\nmidi assets: %d\n", s.Users, s.Projects, s.MidiAssets)
	return nil
}

func migrate(c *cli.Context) error {
	logg, err := logger.New("development")
	if err != nil {
		return err
	}
	defer logg.Sync()

	store, err := open(c)
	if err != nil {
		return err
	}
	defer store.Close()

	return database.NewMigrator(store, logg).Run(c.Context)
}
