package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xastro/uhd/internal/config"
	"github.com/0xastro/uhd/internal/control"
	"github.com/0xastro/uhd/internal/hal/sim"
	"github.com/0xastro/uhd/internal/link"
	"github.com/0xastro/uhd/internal/log"
	"github.com/0xastro/uhd/internal/metrics"
)

var shutdownTimeout time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control plane in the foreground",
	Long: `
Run the device control loop until SIGINT or SIGTERM.

Examples:
  u2ctl run                                 # pcap on the default device, defaults
  u2ctl run -c config.yml                   # settings from config.yml
  U2CTL_LINK_TYPE=afpacket U2CTL_LINK_DEVICE=eth1 u2ctl run
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runDevice(ctx, cfg)
	},
}

func init() {
	runCmd.Flags().DurationVarP(&shutdownTimeout, "timeout", "t", 5*time.Second, "shutdown timeout for the metrics server")
}

func runDevice(ctx context.Context, cfg *config.GlobalConfig) error {
	if err := log.Init(&cfg.Log); err != nil {
		return err
	}
	logger := log.Module("run")

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(sctx); err != nil {
				logger.WithError(err).Warn("stop metrics server")
			}
		}()
	}

	l, err := link.Open(cfg.Link)
	if err != nil {
		return err
	}
	defer l.Close()

	dev := sim.New(sim.Options{
		MAC:        cfg.DeviceMAC(),
		HWRevMajor: cfg.Device.HWRev.Major,
		HWRevMinor: cfg.Device.HWRev.Minor,
		Egress: func(port int, frame []byte) error {
			return l.WriteFrame(frame)
		},
	})
	ctrl := control.New(dev.HAL(), control.Config{
		ControlPort: cfg.Device.ControlPort,
		DataPort:    cfg.Device.DataPort,
		CICMin:      cfg.DSP.CICMin,
		CICMax:      cfg.DSP.CICMax,
	})

	ctrl.OnLinkChange(cfg.Device.LinkSpeed)
	defer ctrl.OnLinkChange(0)

	logger.WithFields(map[string]interface{}{
		"mac":       cfg.Device.MAC,
		"link":      cfg.Link.Type,
		"device":    cfg.Link.Device,
		"ctrl_port": cfg.Device.ControlPort,
	}).Info("control plane started")

	sink := control.DataSinkFunc(func(frame []byte) error {
		if logger.IsTraceEnabled() {
			logger.WithField("len", len(frame)).Trace("data frame")
		}
		return nil
	})
	if err := ctrl.Run(ctx, l, sink); err != nil {
		return err
	}
	logger.Info("control plane stopped")
	return nil
}
