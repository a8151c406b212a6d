package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/devmemory/memento/internal/backup"
)

// runBackup snapshots the sqlite data file (or lists/restores existing
// snapshots), using the retention policy the backup service already
// enforces for the sqlite-backed data directory.
func runBackup(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	list := fs.Bool("list", false, "list existing backups instead of taking a new one")
	restore := fs.String("restore", "", "restore the named backup file instead of taking a new one")
	fs.Parse(args)

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	if a.cfg.Storage.Backend != "sqlite" {
		fatalf("backup: only the sqlite storage backend supports local snapshots")
	}

	dbPath := filepath.Join(a.cfg.Storage.DataPath, "memento.db")
	backupDir := filepath.Join(a.cfg.Storage.DataPath, "backups")

	svc, err := backup.NewBackupService(backup.BackupConfig{
		DBPath:        dbPath,
		BackupDir:     backupDir,
		Interval:      time.Hour,
		Retention:     backup.RetentionPolicy{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12},
		VerifyBackups: true,
	})
	if err != nil {
		fatalf("backup: %v", err)
	}

	switch {
	case *list:
		backups, err := svc.ListBackups()
		if err != nil {
			fatalf("backup: %v", err)
		}
		for _, b := range backups {
			fmt.Printf("%s  %s  %d bytes  verified=%v\n", b.Path, b.Timestamp.Format(time.RFC3339), b.Size, b.Verified)
		}
	case *restore != "":
		if err := svc.RestoreBackup(ctx, *restore); err != nil {
			fatalf("backup: restore: %v", err)
		}
		fmt.Println("restored " + *restore)
	default:
		result, err := svc.BackupNow(ctx)
		if err != nil {
			fatalf("backup: %v", err)
		}
		fmt.Printf("backed up to %s (%d bytes, verified=%v, took %s)\n", result.Path, result.Size, result.Verified, result.Duration)
	}
}
