package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidgallery/internal/cast"
	"vidgallery/internal/config"
	"vidgallery/internal/system"
	"vidgallery/internal/vlc"
)

func healthCheck(cfg config.Config) system.HealthStatus {
	vlcPath := cfg.Player.VLCPath
	if vlcPath == "" {
		vlcPath, _ = vlc.FindVLC()
	}
	return system.RunHealthCheck(system.CheckOptions{
		VLC:      vlcPath,
		FFmpeg:   cfg.Cast.FFmpeg,
		DiskPath: filepath.Dir(cfg.Library.IndexPath),
	})
}

func checkCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the player binaries, disk space and cast device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := healthCheck(cfg)
			for _, b := range status.Binaries {
				state := "missing"
				if b.Found {
					state = b.Path
				}
				fmt.Fprintf(out, "%-16s: %s\n", b.Name, state)
			}
			fmt.Fprintf(out, "Disk Usage      : %.1f%% (%s)\n", status.DiskUsedPct, status.DiskPath)
			fmt.Fprintf(out, "Disk Free       : %d MB\n", status.DiskFreeBytes/1024/1024)
			if status.CPUTempC > 0 {
				fmt.Fprintf(out, "CPU Temperature : %.1f°C\n", status.CPUTempC)
			}
			if cfg.Cast.Device != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
				err := cast.Available(ctx, cfg.Cast.Device)
				cancel()
				state := "reachable"
				if err != nil {
					state = err.Error()
				}
				fmt.Fprintf(out, "Cast device     : %s\n", state)
			}
			if !status.OK() {
				return fmt.Errorf("missing required: %s", strings.Join(status.Missing(), ", "))
			}
			return nil
		},
	}
}
